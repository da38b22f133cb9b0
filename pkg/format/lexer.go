package format

import "strings"

// rawToken is either a literal span or the unparsed body of a placeholder.
type rawToken struct {
	literal     string
	placeholder string
	isPH        bool
	pos         int
}

// lex splits src into literal spans and placeholder bodies. Escapes are
// resolved here so the parser only ever sees placeholder syntax.
func lex(src string) ([]rawToken, error) {
	var (
		toks []rawToken
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			toks = append(toks, rawToken{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '\\':
			if i+1 < len(src) {
				i++
				lit.WriteByte(src[i])
			} else {
				lit.WriteByte(c)
			}
		case '}':
			return nil, &SyntaxError{Template: src, Pos: i, Msg: "unmatched '}'"}
		case '{':
			end := -1
			for j := i + 1; j < len(src); j++ {
				if src[j] == '{' {
					return nil, &SyntaxError{Template: src, Placeholder: src[i+1 : j], Pos: i, Msg: "nested '{'"}
				}
				if src[j] == '}' {
					end = j
					break
				}
			}
			if end < 0 {
				return nil, &SyntaxError{Template: src, Placeholder: src[i+1:], Pos: i, Msg: "unclosed '{'"}
			}
			flush()
			toks = append(toks, rawToken{placeholder: src[i+1 : end], isPH: true, pos: i})
			i = end
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return toks, nil
}
