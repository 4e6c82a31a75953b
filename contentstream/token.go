// Package contentstream implements the redaction engine's core pipeline
// over a page's drawing instructions: a lexer, a state-tracking parser
// that emits typed operations with computed page-space bounds, and a
// builder that re-serializes surviving operations into a state-complete
// stream.
package contentstream

import (
	"bytes"
	"io"
	"strconv"
)

type TokenType int

const (
	TokenInteger    TokenType = iota // whole number
	TokenReal                        // number with fraction
	TokenString                      // literal '(...)' or hex '<...>' string
	TokenName                        // '/Name'
	TokenArrayStart                  // '['
	TokenArrayEnd                    // ']'
	TokenDictStart                   // '<<'
	TokenDictEnd                     // '>>'
	TokenOperator                    // bare keyword
)

// Token is one lexical unit of a content stream. Value holds int64 for
// integers, float64 for reals, []byte for strings, and string for names
// and operator keywords.
type Token struct {
	Type  TokenType
	Value interface{}
	Pos   int
}

// Lexer turns decoded content-stream bytes into tokens. Unlike the
// document-level scanner a content stream arrives fully decoded, so the
// whole buffer is lexed in place with no windowed loading.
type Lexer struct {
	data []byte
	pos  int
}

func NewLexer(data []byte) *Lexer { return &Lexer{data: data} }

// Pos returns the current byte offset.
func (lx *Lexer) Pos() int { return lx.pos }

// Next returns the next token, io.EOF at end of input, or a *ParseError
// for malformed input.
func (lx *Lexer) Next() (Token, error) {
	lx.skipWSAndComments()
	if lx.pos >= len(lx.data) {
		return Token{}, io.EOF
	}
	start := lx.pos
	c := lx.data[lx.pos]
	switch c {
	case '<':
		if lx.peek(1) == '<' {
			lx.pos += 2
			return Token{Type: TokenDictStart, Value: "<<", Pos: start}, nil
		}
		return lx.scanHexString()
	case '>':
		if lx.peek(1) == '>' {
			lx.pos += 2
			return Token{Type: TokenDictEnd, Value: ">>", Pos: start}, nil
		}
		return Token{}, &ParseError{Pos: start, Msg: "unexpected '>'"}
	case '[':
		lx.pos++
		return Token{Type: TokenArrayStart, Value: "[", Pos: start}, nil
	case ']':
		lx.pos++
		return Token{Type: TokenArrayEnd, Value: "]", Pos: start}, nil
	case '(':
		return lx.scanLiteralString()
	case '/':
		return lx.scanName()
	case ')':
		return Token{}, &ParseError{Pos: start, Msg: "unexpected ')'"}
	case '{', '}':
		// PostScript function braces; pass through as keywords so the
		// surrounding construct round-trips as Generic.
		lx.pos++
		return Token{Type: TokenOperator, Value: string(c), Pos: start}, nil
	}
	if isNumberStart(c) {
		return lx.scanNumber()
	}
	return lx.scanKeyword()
}

// CaptureThrough scans raw bytes until the keyword appears at a token
// boundary, consuming it, and returns the end offset. Used to carry
// inline image payloads (ID ... EI) through verbatim.
func (lx *Lexer) CaptureThrough(keyword string) (int, error) {
	needle := []byte(keyword)
	for p := lx.pos; ; {
		idx := bytes.Index(lx.data[p:], needle)
		if idx < 0 {
			return 0, &ParseError{Pos: lx.pos, Msg: "unterminated " + keyword + " span"}
		}
		at := p + idx
		end := at + len(needle)
		beforeOK := at == 0 || isWhitespace(lx.data[at-1])
		afterOK := end >= len(lx.data) || isWhitespace(lx.data[end]) || isDelimiter(lx.data[end])
		if beforeOK && afterOK {
			lx.pos = end
			return end, nil
		}
		p = at + 1
	}
}

func (lx *Lexer) peek(ahead int) byte {
	if lx.pos+ahead >= len(lx.data) {
		return 0
	}
	return lx.data[lx.pos+ahead]
}

func (lx *Lexer) skipWSAndComments() {
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isWhitespace(c) {
			lx.pos++
			continue
		}
		if c == '%' {
			for lx.pos < len(lx.data) && lx.data[lx.pos] != '\n' && lx.data[lx.pos] != '\r' {
				lx.pos++
			}
			continue
		}
		return
	}
}

func (lx *Lexer) scanNumber() (Token, error) {
	start := lx.pos
	dots := 0
	if c := lx.data[lx.pos]; c == '+' || c == '-' {
		lx.pos++
	}
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if c >= '0' && c <= '9' {
			lx.pos++
			continue
		}
		if c == '.' {
			dots++
			lx.pos++
			continue
		}
		break
	}
	text := string(lx.data[start:lx.pos])
	if dots > 1 || text == "" || text == "+" || text == "-" || text == "." {
		return Token{}, &ParseError{Pos: start, Msg: "malformed number " + strconv.Quote(text)}
	}
	if dots == 0 {
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Token{}, &ParseError{Pos: start, Msg: "malformed number " + strconv.Quote(text)}
		}
		return Token{Type: TokenInteger, Value: v, Pos: start}, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, &ParseError{Pos: start, Msg: "malformed number " + strconv.Quote(text)}
	}
	return Token{Type: TokenReal, Value: v, Pos: start}, nil
}

func (lx *Lexer) scanName() (Token, error) {
	start := lx.pos
	lx.pos++ // '/'
	var out bytes.Buffer
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		if c == '#' {
			if lx.pos+2 >= len(lx.data) || !isHexDigit(lx.data[lx.pos+1]) || !isHexDigit(lx.data[lx.pos+2]) {
				return Token{}, &ParseError{Pos: lx.pos, Msg: "malformed name escape"}
			}
			out.WriteByte(fromHex(lx.data[lx.pos+1])<<4 | fromHex(lx.data[lx.pos+2]))
			lx.pos += 3
			continue
		}
		out.WriteByte(c)
		lx.pos++
	}
	return Token{Type: TokenName, Value: out.String(), Pos: start}, nil
}

// scanLiteralString handles balanced parentheses, backslash escapes,
// octal escapes, and line continuations (PDF 7.3.4.2). An unterminated
// string is a hard ParseError.
func (lx *Lexer) scanLiteralString() (Token, error) {
	start := lx.pos
	lx.pos++ // '('
	var buf bytes.Buffer
	depth := 1
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		switch c {
		case '\\':
			lx.pos++
			if lx.pos >= len(lx.data) {
				return Token{}, &ParseError{Pos: start, Msg: "unterminated literal string"}
			}
			esc := lx.data[lx.pos]
			switch {
			case esc == '\r':
				lx.pos++
				if lx.pos < len(lx.data) && lx.data[lx.pos] == '\n' {
					lx.pos++
				}
			case esc == '\n':
				lx.pos++
			case esc >= '0' && esc <= '7':
				val := int(esc - '0')
				lx.pos++
				for k := 0; k < 2 && lx.pos < len(lx.data); k++ {
					d := lx.data[lx.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val<<3 + int(d-'0')
					lx.pos++
				}
				buf.WriteByte(byte(val))
			default:
				buf.WriteByte(translateEscape(esc))
				lx.pos++
			}
		case '(':
			depth++
			buf.WriteByte(c)
			lx.pos++
		case ')':
			depth--
			if depth == 0 {
				lx.pos++
				return Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
			buf.WriteByte(c)
			lx.pos++
		default:
			buf.WriteByte(c)
			lx.pos++
		}
	}
	return Token{}, &ParseError{Pos: start, Msg: "unterminated literal string"}
}

func (lx *Lexer) scanHexString() (Token, error) {
	start := lx.pos
	lx.pos++ // '<'
	var hexbuf []byte
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if c == '>' {
			lx.pos++
			if len(hexbuf)%2 == 1 {
				hexbuf = append(hexbuf, '0')
			}
			out := make([]byte, 0, len(hexbuf)/2)
			for i := 0; i < len(hexbuf); i += 2 {
				out = append(out, fromHex(hexbuf[i])<<4|fromHex(hexbuf[i+1]))
			}
			return Token{Type: TokenString, Value: out, Pos: start}, nil
		}
		if isWhitespace(c) {
			lx.pos++
			continue
		}
		if !isHexDigit(c) {
			return Token{}, &ParseError{Pos: lx.pos, Msg: "invalid hex string digit"}
		}
		hexbuf = append(hexbuf, c)
		lx.pos++
	}
	return Token{}, &ParseError{Pos: start, Msg: "unterminated hex string"}
}

func (lx *Lexer) scanKeyword() (Token, error) {
	start := lx.pos
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		if isWhitespace(c) || isDelimiter(c) {
			break
		}
		lx.pos++
	}
	if lx.pos == start {
		return Token{}, &ParseError{Pos: start, Msg: "unexpected byte " + strconv.Quote(string(lx.data[start]))}
	}
	return Token{Type: TokenOperator, Value: string(lx.data[start:lx.pos]), Pos: start}, nil
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		// Unknown escapes keep the escaped byte itself.
		return c
	}
}

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isNumberStart(c byte) bool {
	return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}
