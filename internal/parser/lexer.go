package parser

import (
	"strings"

	"backforge/internal/core"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokComma
	tokEquals
	tokEOF
)

// token is a lexeme with its byte offset in the definition string.
type token struct {
	kind tokenKind
	text string
	pos  int
}

// lexer splits a field definition into words, quoted strings, commas and
// equals signs. Bare words run until the next ',' or '=' and are trimmed, so
// "hello world" lexes as one word.
type lexer struct {
	input string
	pos   int
}

func lex(input string) ([]token, error) {
	l := &lexer{input: input}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	switch c := l.input[l.pos]; c {
	case ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case '=':
		l.pos++
		return token{kind: tokEquals, text: "=", pos: start}, nil
	case '\'', '"':
		end := strings.IndexByte(l.input[start+1:], c)
		if end < 0 {
			return token{}, &Error{
				Kind:   core.KindMalformedFieldDefinition,
				Input:  l.input,
				Token:  l.input[start:],
				Offset: start,
				Reason: "unterminated quoted value",
			}
		}
		l.pos = start + 1 + end + 1
		return token{kind: tokQuoted, text: l.input[start+1 : start+1+end], pos: start}, nil
	default:
		for l.pos < len(l.input) {
			ch := l.input[l.pos]
			if ch == ',' || ch == '=' || ch == '\'' || ch == '"' {
				break
			}
			l.pos++
		}
		return token{kind: tokWord, text: strings.TrimSpace(l.input[start:l.pos]), pos: start}, nil
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}
