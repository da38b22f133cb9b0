// Package protocol implements the i3bar/swaybar JSON protocol: the header,
// the endless array of status lines written to stdout, and the click
// events read from stdin.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Header is the first line written to the bar.
type Header struct {
	Version     int  `json:"version"`
	ClickEvents bool `json:"click_events"`
	StopSignal  int  `json:"stop_signal,omitempty"`
	ContSignal  int  `json:"cont_signal,omitempty"`
}

// Block is one element of a status line.
type Block struct {
	FullText            string `json:"full_text"`
	ShortText           string `json:"short_text,omitempty"`
	Color               string `json:"color,omitempty"`
	Background          string `json:"background,omitempty"`
	Border              string `json:"border,omitempty"`
	MinWidth            int    `json:"min_width,omitempty"`
	Align               string `json:"align,omitempty"`
	Urgent              bool   `json:"urgent,omitempty"`
	Name                string `json:"name,omitempty"`
	Instance            string `json:"instance,omitempty"`
	Separator           *bool  `json:"separator,omitempty"`
	SeparatorBlockWidth *int   `json:"separator_block_width,omitempty"`
	Markup              string `json:"markup,omitempty"`
}

// Button is a mouse button number as sent by the bar.
type Button int

const (
	ButtonLeft       Button = 1
	ButtonMiddle     Button = 2
	ButtonRight      Button = 3
	ButtonWheelUp    Button = 4
	ButtonWheelDown  Button = 5
	ButtonWheelLeft  Button = 6
	ButtonWheelRight Button = 7
	ButtonBack       Button = 8
	ButtonForward    Button = 9
)

var buttonNames = map[Button]string{
	ButtonLeft:       "left",
	ButtonMiddle:     "middle",
	ButtonRight:      "right",
	ButtonWheelUp:    "up",
	ButtonWheelDown:  "down",
	ButtonWheelLeft:  "wheel_left",
	ButtonWheelRight: "wheel_right",
	ButtonBack:       "back",
	ButtonForward:    "forward",
}

// String returns the config name of the button.
func (b Button) String() string {
	if name, ok := buttonNames[b]; ok {
		return name
	}
	return "button" + strconv.Itoa(int(b))
}

// ParseButton accepts a button name ("left", "up", ...) or number.
func ParseButton(s string) (Button, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for b, name := range buttonNames {
		if name == s {
			return b, nil
		}
	}
	switch s {
	case "wheel_up":
		return ButtonWheelUp, nil
	case "wheel_down":
		return ButtonWheelDown, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return Button(n), nil
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

// ValidButton reports whether s names a button.
func ValidButton(s string) bool {
	_, err := ParseButton(s)
	return err == nil
}

// ClickEvent is one click reported by the bar. Coordinates are floats
// because some bars report fractional positions on scaled outputs.
type ClickEvent struct {
	Name      string   `json:"name"`
	Instance  string   `json:"instance"`
	Button    Button   `json:"button"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	RelativeX float64  `json:"relative_x"`
	RelativeY float64  `json:"relative_y"`
	Width     float64  `json:"width"`
	Height    float64  `json:"height"`
	Modifiers []string `json:"modifiers,omitempty"`
}

// Error reports a malformed line on the click-event stream.
type Error struct {
	Line string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("protocol: bad click event %q: %v", e.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
