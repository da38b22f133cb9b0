package clock

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/format"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
)

var fixed = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func render(t *testing.T, b blocks.Block, tmpl string) string {
	t.Helper()
	out, err := b.Update(context.Background())
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	s, err := format.Render(tmpl, out.Values)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return s
}

func TestUpdateRendersLayout(t *testing.T) {
	b := newBlock("%Y-%m-%d %H:%M:%S", []*time.Location{time.UTC}, func() time.Time { return fixed })
	if got := render(t, b, "{time}"); got != "2024-03-09 14:05:07" {
		t.Errorf("time = %q", got)
	}
	if got := render(t, b, "{timezone} {timestamp}"); got != "UTC 1709993107" {
		t.Errorf("extras = %q", got)
	}
}

func TestNewSettings(t *testing.T) {
	settings := blocks.Settings{"timezone": "Asia/Tokyo", "time_format": "%H:%M"}
	b, err := newWithClock(settings, blocks.Env{Name: "time"}, func() time.Time { return fixed })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer b.Close()

	if got := render(t, b, "{time} {timezone}"); got != "23:05 Asia/Tokyo" {
		t.Errorf("got %q", got)
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings blocks.Settings
		want     string
	}{
		{"bad zone", blocks.Settings{"timezone": "Mars/Olympus"}, "Mars/Olympus"},
		{"typo", blocks.Settings{"timezon": "UTC"}, `did you mean "timezone"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.settings, blocks.Env{Name: "time"})
			var ce *blocks.ConfigError
			if !errors.As(err, &ce) || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want ConfigError mentioning %q", err, tt.want)
			}
		})
	}
}

func TestClickCyclesZones(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	b := newBlock("%H", []*time.Location{time.UTC, tokyo}, func() time.Time { return fixed })
	ctx := context.Background()

	if got := render(t, b, "{time}"); got != "14" {
		t.Fatalf("initial = %q", got)
	}
	if up, _ := b.Click(ctx, protocol.ClickEvent{Button: protocol.ButtonWheelUp}); !up {
		t.Error("wheel up should request an update")
	}
	if got := render(t, b, "{time}"); got != "23" {
		t.Errorf("after wheel up = %q", got)
	}
	_, _ = b.Click(ctx, protocol.ClickEvent{Button: protocol.ButtonWheelDown})
	if got := render(t, b, "{time}"); got != "14" {
		t.Errorf("after wheel down = %q", got)
	}
	if up, _ := b.Click(ctx, protocol.ClickEvent{Button: protocol.ButtonMiddle}); up {
		t.Error("middle click should be ignored")
	}
}

func TestClickSingleZoneIgnored(t *testing.T) {
	b := newBlock("%H", []*time.Location{time.UTC}, time.Now)
	if up, _ := b.Click(context.Background(), protocol.ClickEvent{Button: protocol.ButtonLeft}); up {
		t.Error("single zone click requested update")
	}
}

func TestStep(t *testing.T) {
	tests := []struct {
		layout string
		want   time.Duration
	}{
		{"%H:%M:%S", time.Second},
		{"%T", time.Second},
		{"%R", time.Minute},
		{DefaultTimeFormat, time.Minute},
	}
	for _, tt := range tests {
		if got := Step(tt.layout); got != tt.want {
			t.Errorf("Step(%q) = %v, want %v", tt.layout, got, tt.want)
		}
	}
}

func TestTickAlignsAndStops(t *testing.T) {
	b := newBlock("%T", []*time.Location{time.UTC}, time.Now)
	go b.tick(20 * time.Millisecond)

	for i := 0; i < 3; i++ {
		select {
		case <-b.Events():
		case <-time.After(time.Second):
			t.Fatalf("no tick %d", i)
		}
	}
	b.Close()
	b.Close()
}
