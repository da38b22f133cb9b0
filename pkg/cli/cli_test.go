package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/daemon"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/scheduler"
	"gitlab.com/tinyland/lab/barpulse/pkg/theme"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command with args and captures stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		flags = globalFlags{}
		ctlSocket, ctlJSON = "", false
		checkPlaceholders = false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestOutputMode(t *testing.T) {
	tests := []struct {
		flag    string
		tty     bool
		want    protocol.Mode
		wantErr bool
	}{
		{"auto", true, protocol.ModeTerm, false},
		{"auto", false, protocol.ModeI3bar, false},
		{"", false, protocol.ModeI3bar, false},
		{"i3bar", true, protocol.ModeI3bar, false},
		{"term", false, protocol.ModeTerm, false},
		{"json", false, 0, true},
	}
	for _, tt := range tests {
		got, err := outputMode(tt.flag, tt.tty)
		if (err != nil) != tt.wantErr {
			t.Errorf("outputMode(%q, %v) err = %v, wantErr %v", tt.flag, tt.tty, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("outputMode(%q, %v) = %v, want %v", tt.flag, tt.tty, got, tt.want)
		}
	}
}

func TestLoadConfigErrorsAreConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "theme = \n"},
		{"unknown block", "[[block]]\nblock = \"nope\"\n"},
		{"bad signal", "[[block]]\nblock = \"time\"\nsignal = 99\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body), newRegistry())
			var ce *configError
			if !errors.As(err, &ce) {
				t.Fatalf("err = %v, want configError", err)
			}
		})
	}
}

func TestLoadConfigValid(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "[[block]]\nblock = \"time\"\ntimezone = \"UTC\"\n"), newRegistry())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if len(cfg.Blocks) != 1 || cfg.Blocks[0].Type != "time" {
		t.Errorf("blocks = %+v", cfg.Blocks)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "log_level = \"warn\"\n"), newRegistry())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	logger, closer, err := newLogger(cfg, false, &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("log output = %q", buf.String())
	}

	buf.Reset()
	logger, _, _ = newLogger(cfg, true, &buf)
	logger.Debug("debug line")
	if !strings.Contains(buf.String(), "debug line") {
		t.Errorf("verbose did not enable debug: %q", buf.String())
	}

	cfg.LogLevel = "loud"
	if _, _, err := newLogger(cfg, false, io.Discard); err == nil {
		t.Error("bad log_level accepted")
	}
}

func TestNewLoggerTeesToFile(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, ""), newRegistry())
	if err != nil {
		t.Fatal(err)
	}
	cfg.LogFile = filepath.Join(t.TempDir(), "logs", "barpulse.log")
	var console bytes.Buffer
	logger, closer, err := newLogger(cfg, false, &console)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("to both")
	closer.Close()

	data, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to both") || !strings.Contains(console.String(), "to both") {
		t.Errorf("file = %q, console = %q", data, console.String())
	}
}

func TestBuildFuncReloadsConfig(t *testing.T) {
	path := writeConfig(t, "[[block]]\nblock = \"time\"\n")
	build := buildFunc(path, newRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	specs, err := build(context.Background())
	if err != nil || len(specs) != 1 {
		t.Fatalf("first build = %d specs, %v", len(specs), err)
	}

	if err := os.WriteFile(path, []byte("[[block]]\nblock = \"time\"\n[[block]]\nblock = \"time\"\ninstance = \"utc\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	specs, err = build(context.Background())
	if err != nil || len(specs) != 2 {
		t.Fatalf("second build = %d specs, %v", len(specs), err)
	}
	if specs[1].Instance != "utc" {
		t.Errorf("instance = %q", specs[1].Instance)
	}

	if err := os.WriteFile(path, []byte("[[block]]\nblock = \"nope\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := build(context.Background()); err == nil {
		t.Error("broken config built")
	}
}

func TestBarBuildUsesInitialSpecsOnce(t *testing.T) {
	path := writeConfig(t, "[[block]]\nblock = \"time\"\n[[block]]\nblock = \"time\"\ninstance = \"b\"\n")
	b := &bar{
		path:     path,
		registry: newRegistry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		initial:  []scheduler.SlotSpec{{Name: "only"}},
	}
	build := b.build()
	first, _ := build(context.Background())
	if len(first) != 1 || first[0].Name != "only" {
		t.Fatalf("first = %+v", first)
	}
	second, err := build(context.Background())
	if err != nil || len(second) != 2 {
		t.Fatalf("second = %d specs, %v", len(second), err)
	}
}

func TestCheckCommand(t *testing.T) {
	path := writeConfig(t, `
[[block]]
block = "custom"
command = "echo hello"

[[block]]
block = "custom"
instance = "broken"
command = "exit 3"
`)
	out, err := execute(t, "check", "--config", path)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 blocks failed") {
		t.Fatalf("err = %v", err)
	}
	for _, want := range []string{"config: " + path, "ok", "custom[0]", "hello", "FAIL", "custom[broken]", "command failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckCommandSuccess(t *testing.T) {
	path := writeConfig(t, "[[block]]\nblock = \"custom\"\ncommand = \"echo fine\"\n")
	out, err := execute(t, "check", "--config", path)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "fine") {
		t.Errorf("output = %q", out)
	}
}

func TestCheckListsPlaceholders(t *testing.T) {
	path := writeConfig(t, `
[[block]]
block = "custom"
command = "echo hi"
format = { full = "{text} [{short_text}] {text}", short = "{short_text}" }
`)
	out, err := execute(t, "check", "--placeholders", "--config", path)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "uses text, short_text\n") {
		t.Errorf("output missing placeholder list:\n%s", out)
	}
}

func TestExecuteExitCodes(t *testing.T) {
	bad := writeConfig(t, "[[block]]\nblock = \"nope\"\n")
	failing := writeConfig(t, "[[block]]\nblock = \"custom\"\ncommand = \"exit 1\"\n")

	tests := []struct {
		args []string
		want int
	}{
		{[]string{"version"}, ExitOK},
		{[]string{"check", "--config", bad}, ExitConfig},
		{[]string{"check", "--config", failing}, ExitError},
		{[]string{"run", "--config", bad}, ExitConfig},
	}
	for _, tt := range tests {
		rootCmd.SetOut(io.Discard)
		rootCmd.SetArgs(tt.args)
		got := Execute()
		rootCmd.SetOut(nil)
		flags = globalFlags{}
		if got != tt.want {
			t.Errorf("Execute(%v) = %d, want %d", tt.args, got, tt.want)
		}
	}
	rootCmd.SetArgs(nil)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "barpulse "+Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestThemesCommand(t *testing.T) {
	out, err := execute(t, "themes")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"themes:", "plain", "gruvbox", "icon sets:", "presets:", "minimal"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestThemesExport(t *testing.T) {
	out, err := execute(t, "themes", "--export", "gruvbox")
	exportTheme = ""
	if err != nil {
		t.Fatal(err)
	}
	th, err := theme.LoadFromTOML([]byte(out))
	if err != nil {
		t.Fatalf("exported theme does not load: %v\n%s", err, out)
	}
	if th != theme.Get("gruvbox") {
		t.Errorf("exported theme differs:\n%+v\n%+v", th, theme.Get("gruvbox"))
	}

	if _, err := execute(t, "themes", "--export", "nope"); err == nil {
		t.Error("unknown theme exported")
	}
	exportTheme = ""
}

// ctlHandler records commands and answers HEALTH with a fixed report.
type ctlHandler struct {
	mu       sync.Mutex
	commands []string
}

func (h *ctlHandler) HandleCommand(cmd string, args map[string]string) (string, error) {
	h.mu.Lock()
	h.commands = append(h.commands, cmd)
	h.mu.Unlock()
	if cmd != "HEALTH" {
		return `{"ok":true}`, nil
	}
	st := daemon.NewHealthStatus(daemon.ProcessInfo{Version: "1.2.3", PID: 42, StartedAt: time.Now()}, []scheduler.SlotStatus{
		{Position: 0, Name: "cpu", Instance: "0", State: scheduler.StateRunning.String(), Text: "12%", Updates: 3},
		{Position: 1, Name: "time", Instance: "1", State: scheduler.StateErroring.String(), Errors: 1, LastError: "boom"},
	})
	data, err := json.Marshal(st)
	return string(data), err
}

func startCtlServer(t *testing.T) (string, *ctlHandler) {
	t.Helper()
	dir, err := os.MkdirTemp("", "bpctl")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	socket := filepath.Join(dir, "s.sock")
	h := &ctlHandler{}
	srv := daemon.NewIPCServer(socket, h, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(srv.Stop)
	return socket, h
}

func TestCtlCommands(t *testing.T) {
	socket, h := startCtlServer(t)

	for _, args := range [][]string{
		{"ctl", "refresh", "--socket", socket},
		{"ctl", "restart", "--socket", socket},
		{"ctl", "signal", "4", "--socket", socket},
		{"ctl", "click", "cpu", "0", "left", "--socket", socket},
	} {
		out, err := execute(t, args...)
		if err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		if strings.TrimSpace(out) != "ok" {
			t.Errorf("%v output = %q", args, out)
		}
	}

	h.mu.Lock()
	got := strings.Join(h.commands, ",")
	h.mu.Unlock()
	if got != "REFRESH,RESTART,SIGNAL,CLICK" {
		t.Errorf("commands = %s", got)
	}
}

func TestCtlRejectsBadArgsLocally(t *testing.T) {
	socket, h := startCtlServer(t)
	if _, err := execute(t, "ctl", "signal", "99", "--socket", socket); err == nil {
		t.Error("signal 99 accepted")
	}
	if _, err := execute(t, "ctl", "click", "cpu", "0", "sideways", "--socket", socket); err == nil {
		t.Error("bad button accepted")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.commands) != 0 {
		t.Errorf("commands sent: %v", h.commands)
	}
}

func TestCtlHealth(t *testing.T) {
	socket, _ := startCtlServer(t)
	out, err := execute(t, "ctl", "health", "--socket", socket)
	if err == nil || !strings.Contains(err.Error(), "1 blocks erroring") {
		t.Errorf("err = %v", err)
	}
	for _, want := range []string{"barpulse 1.2.3", "pid 42", "cpu", "12%", "error: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, _ = execute(t, "ctl", "health", "--json", "--socket", socket)
	var st daemon.HealthStatus
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("--json output is not JSON: %v\n%s", err, out)
	}
	if len(st.Blocks) != 2 {
		t.Errorf("blocks = %d", len(st.Blocks))
	}
}

func TestCtlNoDaemon(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "missing.sock")
	if _, err := execute(t, "ctl", "refresh", "--socket", socket); err == nil {
		t.Error("refresh without daemon succeeded")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/x/y"); got != filepath.Join(home, "x/y") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs"); got != "/abs" {
		t.Errorf("expandHome(/abs) = %q", got)
	}
}

func TestDefaultRuntimePath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got := defaultRuntimePath("", "barpulse.sock"); got != "/run/user/1000/barpulse/barpulse.sock" {
		t.Errorf("default = %q", got)
	}
	if got := defaultRuntimePath("/tmp/x.sock", "barpulse.sock"); got != "/tmp/x.sock" {
		t.Errorf("configured = %q", got)
	}
}
