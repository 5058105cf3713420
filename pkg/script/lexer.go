// Package script implements the proteus command language: one command per
// line, driving a Session of named objects.
package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"proteus/pkg/errors"
)

// TokenType represents the type of a token.
type TokenType string

const (
	WORD     TokenType = "WORD"     // command names, object names, keys, keywords
	STRING   TokenType = "STRING"   // "hello world"
	NUMBER   TokenType = "NUMBER"   // 12, -3.5, 1e9
	REF      TokenType = "REF"      // @name
	TEMPLATE TokenType = "TEMPLATE" // fn"Hello ${name}"
	ASSIGN   TokenType = "="
)

// Token represents a lexical token.
type Token struct {
	Type     TokenType
	Literal  string // decoded text: string contents, template body, ref name
	Raw      string // text as written
	Line     int    // 1-based line number
	Column   int    // 1-based column number (rune index)
	StartPos int    // 0-based byte offset where the token starts
	EndPos   int    // 0-based byte offset after the token ends
}

// Pos returns the token's position for error reporting.
func (t Token) Pos(file string) errors.Position {
	return errors.Position{Line: t.Line, Column: t.Column, StartPos: t.StartPos, EndPos: t.EndPos, File: file}
}

var tokenPattern = regexp2.MustCompile(`\G(?:`+
	`(?<ws>[ \t\r]+)`+
	`|(?<comment>#.*)`+
	`|(?<template>fn"(?:[^"\\]|\\.)*")`+
	`|(?<string>"(?:[^"\\]|\\.)*")`+
	`|(?<number>[-+]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][-+]?\d+)?(?![^\s=]))`+
	`|(?<ref>@[A-Za-z_]\w*)`+
	`|(?<assign>=)`+
	`|(?<word>(?!fn")[^\s="@#]+)`+
	`)`, regexp2.None)

// Lexer splits one line of input into tokens.
type Lexer struct {
	line    string
	runes   []rune
	offsets []int // byte offset of each rune, plus len(line)
	lineNo  int
	base    int // byte offset of line within the whole source
	file    string
}

// NewLexer creates a lexer for line, which starts at byte offset base of
// the source and is line number lineNo.
func NewLexer(line string, lineNo, base int, file string) *Lexer {
	runes := []rune(line)
	offsets := make([]int, 0, len(runes)+1)
	for i := range line {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(line))
	return &Lexer{line: line, runes: runes, offsets: offsets, lineNo: lineNo, base: base, file: file}
}

// Tokens returns every significant token on the line. Whitespace and
// comments are dropped.
func (l *Lexer) Tokens() ([]Token, error) {
	var out []Token
	pos := 0
	for pos < len(l.runes) {
		m, err := tokenPattern.FindRunesMatchStartingAt(l.runes, pos)
		if err != nil {
			return nil, l.errorAt(pos, pos+1, fmt.Sprintf("lexer failure: %v", err))
		}
		if m == nil || m.Index != pos || m.Length == 0 {
			if l.runes[pos] == '"' || strings.HasPrefix(string(l.runes[pos:]), `fn"`) {
				return nil, l.errorAt(pos, len(l.runes), "unterminated string literal")
			}
			return nil, l.errorAt(pos, pos+1, fmt.Sprintf("unexpected character %q", l.runes[pos]))
		}
		end := pos + m.Length
		tok, keep, err := l.classify(m, pos, end)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, tok)
		}
		pos = end
	}
	return out, nil
}

func (l *Lexer) classify(m *regexp2.Match, start, end int) (Token, bool, error) {
	raw := m.String()
	tok := Token{
		Raw:      raw,
		Line:     l.lineNo,
		Column:   start + 1,
		StartPos: l.base + l.offsets[start],
		EndPos:   l.base + l.offsets[end],
	}
	switch {
	case matched(m, "ws"), matched(m, "comment"):
		return tok, false, nil
	case matched(m, "template"):
		body, err := strconv.Unquote(raw[2:])
		if err != nil {
			return tok, false, l.errorAt(start, end, "invalid template literal")
		}
		tok.Type, tok.Literal = TEMPLATE, body
	case matched(m, "string"):
		s, err := strconv.Unquote(raw)
		if err != nil {
			return tok, false, l.errorAt(start, end, "invalid string literal")
		}
		tok.Type, tok.Literal = STRING, s
	case matched(m, "number"):
		tok.Type, tok.Literal = NUMBER, raw
	case matched(m, "ref"):
		tok.Type, tok.Literal = REF, raw[1:]
	case matched(m, "assign"):
		tok.Type, tok.Literal = ASSIGN, raw
	default:
		tok.Type, tok.Literal = WORD, raw
	}
	return tok, true, nil
}

func (l *Lexer) errorAt(start, end int, msg string) error {
	if end > len(l.runes) {
		end = len(l.runes)
	}
	return &errors.SyntaxError{
		Position: errors.Position{
			Line:     l.lineNo,
			Column:   start + 1,
			StartPos: l.base + l.offsets[start],
			EndPos:   l.base + l.offsets[end],
			File:     l.file,
		},
		Msg: msg,
	}
}

func matched(m *regexp2.Match, name string) bool {
	_, ok := group(m, name)
	return ok
}
