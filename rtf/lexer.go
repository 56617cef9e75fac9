package rtf

import "strconv"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokGroupStart
	tokGroupEnd
	tokControl // control word, possibly with a numeric parameter
	tokSymbol  // control symbol such as \~ or \{
	tokHex     // \'hh
	tokText
	tokBinary // payload of \binN
)

type token struct {
	kind     tokenKind
	word     string
	param    int
	hasParam bool
	data     []byte
}

// lexer splits RTF into tokens. It never fails: malformed control words
// are returned as text.
type lexer struct {
	src []byte
	pos int
}

func (l *lexer) next() token {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '{':
			l.pos++
			return token{kind: tokGroupStart}
		case '}':
			l.pos++
			return token{kind: tokGroupEnd}
		case '\\':
			return l.control()
		case '\r', '\n':
			l.pos++
			continue
		}
		start := l.pos
		for l.pos < len(l.src) {
			c := l.src[l.pos]
			if c == '{' || c == '}' || c == '\\' || c == '\r' || c == '\n' {
				break
			}
			l.pos++
		}
		return token{kind: tokText, data: l.src[start:l.pos]}
	}
	return token{kind: tokEOF}
}

func (l *lexer) control() token {
	l.pos++ // backslash
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}
	}
	c := l.src[l.pos]

	if !isAlpha(c) {
		l.pos++
		if c == '\'' {
			if l.pos+2 <= len(l.src) {
				if v, err := strconv.ParseUint(string(l.src[l.pos:l.pos+2]), 16, 8); err == nil {
					l.pos += 2
					return token{kind: tokHex, data: []byte{byte(v)}}
				}
			}
			return token{kind: tokText, data: nil}
		}
		if c == '\r' || c == '\n' {
			// \<newline> is a paragraph mark.
			return token{kind: tokControl, word: "par"}
		}
		return token{kind: tokSymbol, word: string(c)}
	}

	start := l.pos
	for l.pos < len(l.src) && isAlpha(l.src[l.pos]) && l.pos-start < 32 {
		l.pos++
	}
	tok := token{kind: tokControl, word: string(l.src[start:l.pos])}

	numStart := l.pos
	if l.pos < len(l.src) && l.src[l.pos] == '-' {
		l.pos++
	}
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) && l.pos-numStart < 11 {
		l.pos++
	}
	if l.pos > numStart && !(l.pos == numStart+1 && l.src[numStart] == '-') {
		if v, err := strconv.Atoi(string(l.src[numStart:l.pos])); err == nil {
			tok.param, tok.hasParam = v, true
		}
	} else {
		l.pos = numStart
	}

	// A single space delimits the control word and is not text.
	if l.pos < len(l.src) && l.src[l.pos] == ' ' {
		l.pos++
	}

	if tok.word == "bin" && tok.hasParam && tok.param > 0 {
		end := min(l.pos+tok.param, len(l.src))
		data := l.src[l.pos:end]
		l.pos = end
		return token{kind: tokBinary, data: data}
	}
	return tok
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
