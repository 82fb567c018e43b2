package jsliteral

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Limits on accepted input. Consent declarations are at most a few hundred
// kilobytes in practice; anything beyond these bounds is either corrupt or
// hostile.
const (
	// MaxInputSize is the maximum input length in bytes.
	MaxInputSize = 4 << 20 // 4MB

	// MaxDepth is the maximum nesting depth of objects and arrays.
	MaxDepth = 64
)

// Sentinel errors returned by Parse. Syntax errors wrap ErrSyntax with
// position detail.
var (
	ErrInputTooLarge = errors.New("jsliteral: input exceeds size limit")
	ErrTooDeep       = errors.New("jsliteral: nesting exceeds depth limit")
	ErrSyntax        = errors.New("jsliteral: invalid literal syntax")
)

// Parse converts a script literal into Go values: map[string]any for
// objects, []any for arrays, string, float64, bool, and nil for null and
// undefined. Trailing input after the literal (such as a terminating
// semicolon) is rejected; use ParsePrefix when the literal is embedded in
// surrounding script text.
func Parse(input string) (any, error) {
	v, rest, err := ParsePrefix(input)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rest) != "" {
		return nil, fmt.Errorf("%w: trailing data after literal", ErrSyntax)
	}
	return v, nil
}

// ParsePrefix parses a literal at the start of input (after leading
// whitespace) and returns the parsed value together with the unconsumed
// remainder. This is what the bracket-matched extraction paths use, where
// the literal is followed by more script text.
func ParsePrefix(input string) (any, string, error) {
	if len(input) > MaxInputSize {
		return nil, "", ErrInputTooLarge
	}
	p := &parser{src: input}
	p.skipSpace()
	v, err := p.value(0)
	if err != nil {
		return nil, "", err
	}
	return v, p.src[p.pos:], nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errf(format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: %s at offset %d", ErrSyntax, detail, p.pos)
}

// skipSpace advances past whitespace and // and /* */ comments. Comments
// show up in hand-edited consent scripts often enough to be worth the
// few extra lines.
func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '/':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		case c == '/' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '*':
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += 2 + end + 2
		default:
			return
		}
	}
}

func (p *parser) value(depth int) (any, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	if p.pos >= len(p.src) {
		return nil, p.errf("unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '{':
		return p.object(depth)
	case c == '[':
		return p.array(depth)
	case c == '"' || c == '\'':
		return p.quotedString()
	case c == '-' || c == '+' || (c >= '0' && c <= '9') || c == '.':
		return p.number()
	default:
		return p.keyword()
	}
}

func (p *parser) object(depth int) (any, error) {
	p.pos++ // consume '{'
	obj := make(map[string]any)

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '}' {
		p.pos++
		return obj, nil
	}

	for {
		p.skipSpace()
		key, err := p.objectKey()
		if err != nil {
			return nil, err
		}

		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return nil, p.errf("expected ':' after object key %q", key)
		}
		p.pos++

		p.skipSpace()
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		obj[key] = v

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errf("unterminated object")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
			p.skipSpace()
			// Tolerate a trailing comma before the closing brace.
			if p.pos < len(p.src) && p.src[p.pos] == '}' {
				p.pos++
				return obj, nil
			}
		case '}':
			p.pos++
			return obj, nil
		default:
			return nil, p.errf("expected ',' or '}' in object")
		}
	}
}

// objectKey accepts quoted strings, bare identifiers, and bare integers
// (seen in OneTrust scripts for numeric group ids).
func (p *parser) objectKey() (string, error) {
	if p.pos >= len(p.src) {
		return "", p.errf("unexpected end of input in object key")
	}
	c := p.src[p.pos]
	if c == '"' || c == '\'' {
		return p.quotedString()
	}

	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errf("invalid object key")
	}
	return p.src[start:p.pos], nil
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *parser) array(depth int) (any, error) {
	p.pos++ // consume '['
	arr := make([]any, 0)

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ']' {
		p.pos++
		return arr, nil
	}

	for {
		p.skipSpace()
		v, err := p.value(depth + 1)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errf("unterminated array")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
			p.skipSpace()
			if p.pos < len(p.src) && p.src[p.pos] == ']' {
				p.pos++
				return arr, nil
			}
		case ']':
			p.pos++
			return arr, nil
		default:
			return nil, p.errf("expected ',' or ']' in array")
		}
	}
}

func (p *parser) quotedString() (string, error) {
	quote := p.src[p.pos]
	p.pos++

	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", p.errf("unterminated escape sequence")
			}
			if err := p.escape(&b); err != nil {
				return "", err
			}
		case '\n', '\r':
			return "", p.errf("unescaped newline in string")
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errf("unterminated string")
}

func (p *parser) escape(b *strings.Builder) error {
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case 'u':
		return p.unicodeEscape(b)
	case 'x':
		if p.pos+2 > len(p.src) {
			return p.errf("truncated hex escape")
		}
		n, err := strconv.ParseUint(p.src[p.pos:p.pos+2], 16, 8)
		if err != nil {
			return p.errf("invalid hex escape")
		}
		b.WriteByte(byte(n))
		p.pos += 2
	default:
		// JS permits escaping any character; the escape resolves to the
		// character itself (covers \', \", \\, \/).
		b.WriteByte(c)
	}
	return nil
}

func (p *parser) unicodeEscape(b *strings.Builder) error {
	if p.pos+4 > len(p.src) {
		return p.errf("truncated unicode escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
	if err != nil {
		return p.errf("invalid unicode escape")
	}
	p.pos += 4

	r := rune(n)
	if utf16.IsSurrogate(r) && p.pos+6 <= len(p.src) &&
		p.src[p.pos] == '\\' && p.src[p.pos+1] == 'u' {
		n2, err := strconv.ParseUint(p.src[p.pos+2:p.pos+6], 16, 32)
		if err == nil {
			if combined := utf16.DecodeRune(r, rune(n2)); combined != utf8.RuneError {
				b.WriteRune(combined)
				p.pos += 6
				return nil
			}
		}
	}
	b.WriteRune(r)
	return nil
}

func (p *parser) number() (any, error) {
	start := p.pos
	if p.src[p.pos] == '-' || p.src[p.pos] == '+' {
		p.pos++
	}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' ||
			((c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E')) {
			p.pos++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return nil, p.errf("invalid number %q", p.src[start:p.pos])
	}
	return f, nil
}

// keyword accepts the three constant keywords. Any other identifier in
// value position means the input is real script, not a literal, and is
// rejected.
func (p *parser) keyword() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	switch p.src[start:p.pos] {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null", "undefined":
		return nil, nil
	default:
		p.pos = start
		return nil, p.errf("unexpected token")
	}
}
