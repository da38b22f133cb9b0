package dbus

import (
	"context"
	"errors"
	"strings"
	"testing"

	godbus "github.com/godbus/dbus/v5"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/format"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

type fakeSource struct {
	value  any
	err    error
	events chan struct{}
	closed bool
}

func (f *fakeSource) Get(context.Context) (any, error) { return f.value, f.err }
func (f *fakeSource) Changes() <-chan struct{}         { return f.events }
func (f *fakeSource) Close() error                     { f.closed = true; return nil }

func validSettings() Settings {
	return Settings{
		Bus:         "system",
		Destination: "org.freedesktop.UPower",
		Path:        "/org/freedesktop/UPower/devices/DisplayDevice",
		Interface:   "org.freedesktop.UPower.Device",
		Property:    "State",
	}
}

func TestUpdateMapsStatesAndIcons(t *testing.T) {
	cfg := validSettings()
	cfg.States = map[string]string{"2": "warning", "1": "good"}
	cfg.Icons = map[string]string{"1": "bat_charging"}
	src := &fakeSource{value: godbus.MakeVariant(uint32(2))}
	b, err := newWithSource(cfg, "dbus", src)
	if err != nil {
		t.Fatalf("newWithSource: %v", err)
	}

	out, err := b.Update(context.Background())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if out.State != widget.Warning {
		t.Errorf("state = %v, want warning", out.State)
	}
	if out.Values["value"].Kind() != format.KindInteger {
		t.Errorf("value kind = %v", out.Values["value"].Kind())
	}

	src.value = godbus.MakeVariant(uint32(1))
	out, _ = b.Update(context.Background())
	if out.State != widget.Good || out.Icon != "bat_charging" {
		t.Errorf("got state %v icon %q", out.State, out.Icon)
	}

	src.value = godbus.MakeVariant(uint32(7))
	out, _ = b.Update(context.Background())
	if out.State != widget.Idle || out.Icon != "" {
		t.Errorf("unmapped value: state %v icon %q", out.State, out.Icon)
	}
}

func TestUpdateErrorIsRetryable(t *testing.T) {
	b, _ := newWithSource(validSettings(), "dbus", &fakeSource{err: errors.New("name has no owner")})
	_, err := b.Update(context.Background())
	if !blocks.Retryable(err) {
		t.Errorf("error = %v, want retryable", err)
	}
}

func TestBadStateSeverity(t *testing.T) {
	cfg := validSettings()
	cfg.States = map[string]string{"x": "purple"}
	_, err := newWithSource(cfg, "dbus", &fakeSource{})
	var ce *blocks.ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("error = %v, want ConfigError", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"valid", func(*Settings) {}, ""},
		{"bad bus", func(s *Settings) { s.Bus = "user" }, "bus must be"},
		{"missing keys", func(s *Settings) { s.Property, s.Destination = "", "" }, "missing destination, property"},
		{"bad path", func(s *Settings) { s.Path = "not/a/path" }, "invalid object path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validSettings()
			tt.mutate(&cfg)
			err := cfg.validate("dbus")
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestToValue(t *testing.T) {
	tests := []struct {
		in   any
		kind format.Kind
		str  string
	}{
		{"Playing", format.KindText, "Playing"},
		{godbus.MakeVariant("nested"), format.KindText, "nested"},
		{godbus.ObjectPath("/a/b"), format.KindText, "/a/b"},
		{true, format.KindFlag, "true"},
		{uint8(3), format.KindInteger, "3"},
		{int32(-4), format.KindInteger, "-4"},
		{uint64(5), format.KindInteger, "5"},
		{float64(42.5), format.KindFloat, "42.5"},
		{[]string{"a", "b"}, format.KindText, "a,b"},
		{struct{ X int }{1}, format.KindText, "{1}"},
	}
	for _, tt := range tests {
		v := toValue(tt.in)
		if v.Kind() != tt.kind || v.String() != tt.str {
			t.Errorf("toValue(%#v) = %v %q, want %v %q", tt.in, v.Kind(), v.String(), tt.kind, tt.str)
		}
	}
}

func TestChangesInterface(t *testing.T) {
	const iface = "org.mpris.MediaPlayer2.Player"
	name := propertiesInterface + ".PropertiesChanged"
	tests := []struct {
		name string
		sig  *godbus.Signal
		want bool
	}{
		{"match", &godbus.Signal{Name: name, Body: []any{iface, map[string]godbus.Variant{}, []string{}}}, true},
		{"other interface", &godbus.Signal{Name: name, Body: []any{"org.other"}}, false},
		{"other member", &godbus.Signal{Name: "org.foo.Changed", Body: []any{iface}}, false},
		{"empty body", &godbus.Signal{Name: name}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := changesInterface(tt.sig, iface); got != tt.want {
				t.Errorf("changesInterface = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventsAndClose(t *testing.T) {
	src := &fakeSource{events: make(chan struct{}, 1)}
	b, _ := newWithSource(validSettings(), "dbus", src)
	src.events <- struct{}{}
	select {
	case <-b.Events():
	default:
		t.Error("expected a pending event")
	}
	if err := b.Close(); err != nil || !src.closed {
		t.Errorf("Close = %v, closed = %v", err, src.closed)
	}
}
