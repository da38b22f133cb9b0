// Package dbus provides the dbus block: one property of a D-Bus object,
// refreshed whenever the object emits PropertiesChanged for its interface.
package dbus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	godbus "github.com/godbus/dbus/v5"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/format"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

const propertiesInterface = "org.freedesktop.DBus.Properties"

// Settings are the dbus block's keys. States and Icons are keyed by the
// property's string form.
type Settings struct {
	Bus         string            `toml:"bus"`
	Destination string            `toml:"destination"`
	Path        string            `toml:"path"`
	Interface   string            `toml:"interface"`
	Property    string            `toml:"property"`
	States      map[string]string `toml:"states"`
	Icons       map[string]string `toml:"icons"`
}

// Type returns the registrable dbus block type. It has no interval: the
// property is re-read on PropertiesChanged, clicks and signals.
func Type() blocks.Type {
	return blocks.Type{
		Name:          "dbus",
		New:           New,
		DefaultFormat: "{value}",
	}
}

// source reads the property and reports changes.
type source interface {
	Get(ctx context.Context) (any, error)
	Changes() <-chan struct{}
	Close() error
}

// Block shows a single D-Bus property.
type Block struct {
	src    source
	states map[string]widget.Severity
	icons  map[string]string
}

// New connects to the configured bus and subscribes to property changes.
func New(s blocks.Settings, env blocks.Env) (blocks.Block, error) {
	cfg := Settings{Bus: "session"}
	if err := s.Decode(env.Name, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(env.Name); err != nil {
		return nil, err
	}
	src, err := dialBus(cfg)
	if err != nil {
		return nil, blocks.Fail("dbus unavailable", err)
	}
	b, err := newWithSource(cfg, env.Name, src)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return b, nil
}

func (c Settings) validate(name string) error {
	switch c.Bus {
	case "session", "system":
	default:
		return blocks.Configf(name, "bus must be session or system, got %q", c.Bus)
	}
	var missing []string
	for key, v := range map[string]string{
		"destination": c.Destination,
		"path":        c.Path,
		"interface":   c.Interface,
		"property":    c.Property,
	} {
		if v == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return blocks.Configf(name, "missing %s", strings.Join(missing, ", "))
	}
	if !godbus.ObjectPath(c.Path).IsValid() {
		return blocks.Configf(name, "invalid object path %q", c.Path)
	}
	return nil
}

func newWithSource(cfg Settings, name string, src source) (*Block, error) {
	b := &Block{src: src, states: make(map[string]widget.Severity, len(cfg.States)), icons: cfg.Icons}
	for value, sev := range cfg.States {
		st, err := widget.ParseSeverity(sev)
		if err != nil {
			return nil, blocks.Configf(name, "states[%q]: %v", value, err)
		}
		b.states[value] = st
	}
	return b, nil
}

// Update implements blocks.Block.
func (b *Block) Update(ctx context.Context) (*blocks.Output, error) {
	raw, err := b.src.Get(ctx)
	if err != nil {
		return nil, blocks.Retry("dbus error", err)
	}
	v := toValue(raw)
	key := v.String()
	return &blocks.Output{
		Icon:  b.icons[key],
		State: b.states[key],
		Values: format.Values{
			"value": v,
			"text":  format.Text(key),
		},
	}, nil
}

// Events implements blocks.Notifier.
func (b *Block) Events() <-chan struct{} { return b.src.Changes() }

// Close drops the bus connection.
func (b *Block) Close() error { return b.src.Close() }

// toValue maps a D-Bus variant payload onto a format value.
func toValue(raw any) format.Value {
	switch v := raw.(type) {
	case godbus.Variant:
		return toValue(v.Value())
	case string:
		return format.Text(v)
	case godbus.ObjectPath:
		return format.Text(string(v))
	case bool:
		return format.Flag(v)
	case uint8:
		return format.Integer(int64(v))
	case int16:
		return format.Integer(int64(v))
	case uint16:
		return format.Integer(int64(v))
	case int32:
		return format.Integer(int64(v))
	case uint32:
		return format.Integer(int64(v))
	case int64:
		return format.Integer(v)
	case uint64:
		return format.Integer(int64(v))
	case float64:
		return format.Float(v)
	case []string:
		return format.Text(strings.Join(v, ","))
	}
	return format.Text(fmt.Sprint(raw))
}

// busSource is the real source backed by a godbus connection.
type busSource struct {
	conn     *godbus.Conn
	obj      godbus.BusObject
	iface    string
	property string

	signals chan *godbus.Signal
	events  chan struct{}
	once    sync.Once
}

func dialBus(cfg Settings) (*busSource, error) {
	var (
		conn *godbus.Conn
		err  error
	)
	if cfg.Bus == "system" {
		conn, err = godbus.ConnectSystemBus()
	} else {
		conn, err = godbus.ConnectSessionBus()
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s bus: %w", cfg.Bus, err)
	}
	path := godbus.ObjectPath(cfg.Path)
	err = conn.AddMatchSignal(
		godbus.WithMatchObjectPath(path),
		godbus.WithMatchInterface(propertiesInterface),
		godbus.WithMatchMember("PropertiesChanged"),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", cfg.Path, err)
	}

	s := &busSource{
		conn:     conn,
		obj:      conn.Object(cfg.Destination, path),
		iface:    cfg.Interface,
		property: cfg.Property,
		signals:  make(chan *godbus.Signal, 8),
		events:   make(chan struct{}, 1),
	}
	conn.Signal(s.signals)
	go s.forward()
	return s, nil
}

// forward turns matching PropertiesChanged signals into wake-ups. The
// signal channel is closed when the connection closes.
func (s *busSource) forward() {
	for sig := range s.signals {
		if !changesInterface(sig, s.iface) {
			continue
		}
		select {
		case s.events <- struct{}{}:
		default:
		}
	}
}

// changesInterface reports whether sig is a PropertiesChanged for iface.
func changesInterface(sig *godbus.Signal, iface string) bool {
	if sig == nil || sig.Name != propertiesInterface+".PropertiesChanged" || len(sig.Body) == 0 {
		return false
	}
	name, ok := sig.Body[0].(string)
	return ok && name == iface
}

func (s *busSource) Get(ctx context.Context) (any, error) {
	var v godbus.Variant
	call := s.obj.CallWithContext(ctx, propertiesInterface+".Get", 0, s.iface, s.property)
	if err := call.Store(&v); err != nil {
		return nil, fmt.Errorf("get %s.%s: %w", s.iface, s.property, err)
	}
	return v, nil
}

func (s *busSource) Changes() <-chan struct{} { return s.events }

func (s *busSource) Close() error {
	var err error
	s.once.Do(func() { err = s.conn.Close() })
	return err
}
