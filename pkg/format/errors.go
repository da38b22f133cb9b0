package format

import "fmt"

// SyntaxError reports a malformed template. Placeholder holds the raw text
// of the offending placeholder when the error is local to one.
type SyntaxError struct {
	Template    string
	Placeholder string
	Pos         int
	Msg         string
}

func (e *SyntaxError) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("format %q: placeholder {%s} at offset %d: %s", e.Template, e.Placeholder, e.Pos, e.Msg)
	}
	return fmt.Sprintf("format %q: offset %d: %s", e.Template, e.Pos, e.Msg)
}

// UnknownPlaceholderError is returned by Render when a template references
// a name the block did not provide.
type UnknownPlaceholderError struct {
	Name       string
	Suggestion string
}

func (e *UnknownPlaceholderError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown placeholder %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown placeholder %q", e.Name)
}

// ValueError is returned by Render when a placeholder's options cannot be
// applied to the value it names (a bar over text, an impossible unit
// conversion).
type ValueError struct {
	Name string
	Err  error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("placeholder %q: %v", e.Name, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }
