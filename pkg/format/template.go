package format

import "strings"

// Template is a compiled format string: an ordered sequence of literal
// spans and placeholders. A nil *Template renders as the empty string.
type Template struct {
	source string
	tokens []token
}

type token struct {
	literal string
	ph      *Placeholder
}

// Compile parses src into a Template. Malformed syntax yields a
// *SyntaxError naming the offending placeholder.
func Compile(src string) (*Template, error) {
	raw, err := lex(src)
	if err != nil {
		return nil, err
	}
	t := &Template{source: src, tokens: make([]token, 0, len(raw))}
	for _, r := range raw {
		if !r.isPH {
			t.tokens = append(t.tokens, token{literal: r.literal})
			continue
		}
		ph, err := parsePlaceholder(r.placeholder, src, r.pos)
		if err != nil {
			return nil, err
		}
		t.tokens = append(t.tokens, token{ph: ph})
	}
	return t, nil
}

// MustCompile is like Compile but panics on error. It is intended for
// built-in default formats.
func MustCompile(src string) *Template {
	t, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the source the template was compiled from.
func (t *Template) String() string {
	if t == nil {
		return ""
	}
	return t.source
}

// Placeholders lists the placeholder names in order of appearance,
// duplicates included.
func (t *Template) Placeholders() []string {
	if t == nil {
		return nil
	}
	var names []string
	for _, tok := range t.tokens {
		if tok.ph != nil {
			names = append(names, tok.ph.Name)
		}
	}
	return names
}

// Render substitutes vals into t. A placeholder whose name is missing from
// vals yields an *UnknownPlaceholderError.
func (t *Template) Render(vals Values) (string, error) {
	if t == nil {
		return "", nil
	}
	var b strings.Builder
	for _, tok := range t.tokens {
		if tok.ph == nil {
			b.WriteString(tok.literal)
			continue
		}
		v, ok := vals[tok.ph.Name]
		if !ok {
			return "", unknownPlaceholder(tok.ph.Name, vals)
		}
		s, err := tok.ph.Format(v)
		if err != nil {
			return "", &ValueError{Name: tok.ph.Name, Err: err}
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// Render compiles src and renders it in one step.
func Render(src string, vals Values) (string, error) {
	t, err := Compile(src)
	if err != nil {
		return "", err
	}
	return t.Render(vals)
}
