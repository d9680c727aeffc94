package internal

import (
	"strings"

	"go.uber.org/zap"
)

// FragmentKind tells a Fragment apart as plain text or an expression to
// hand to the parser.
type FragmentKind string

const (
	FragmentText FragmentKind = "text"
	FragmentExpr FragmentKind = "expr"
)

// Fragment is one chunk produced by the lexer: either literal text (with
// escapes already resolved) or the raw content of a {{ }} pair, not yet
// parsed.
type Fragment struct {
	Kind FragmentKind
	Text string
	Pos  Position
}

const (
	openDelim  = "{{"
	closeDelim = "}}"
	escapeOpen = "\\{{"
)

// Lexer splits a template string into literal-text and expression
// fragments, honoring backslash-escaping of "{{" and brace-depth nesting
// so inner "{{…}}" occurrences (switch result bodies, quoted-string
// interpolation) don't terminate the outer fragment early.
type Lexer struct {
	source string
	pos    int
	line   int
	column int
	logger *zap.Logger
}

// NewLexer creates a Lexer over source. A nil logger is replaced with a
// no-op logger.
func NewLexer(source string, logger *zap.Logger) *Lexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lexer{source: source, pos: 0, line: 1, column: 1, logger: logger}
}

// Tokenize scans the whole source into an ordered list of Fragments.
func (l *Lexer) Tokenize() ([]Fragment, error) {
	l.logger.Debug("lexer: start", zap.Int("length", len(l.source)))
	var out []Fragment

	for !l.isAtEnd() {
		if l.matchStr(escapeOpen) {
			pos := l.currentPosition()
			l.advanceN(len(escapeOpen))
			out = append(out, Fragment{Kind: FragmentText, Text: openDelim + l.scanText(), Pos: pos})
			continue
		}

		if l.matchStr(openDelim) {
			pos := l.currentPosition()
			l.advanceN(len(openDelim))
			expr, err := l.scanExpr()
			if err != nil {
				return nil, err
			}
			out = append(out, Fragment{Kind: FragmentExpr, Text: expr, Pos: pos})
			continue
		}

		textPos := l.currentPosition()
		text := l.scanText()
		if text != "" {
			out = append(out, Fragment{Kind: FragmentText, Text: text, Pos: textPos})
		}
	}

	l.logger.Debug("lexer: done", zap.Int("fragments", len(out)))
	return out, nil
}

// scanText reads literal text up to the next "{{" or escaped "\{{".
func (l *Lexer) scanText() string {
	var sb strings.Builder
	for !l.isAtEnd() {
		if l.matchStr(escapeOpen) || l.matchStr(openDelim) {
			break
		}
		sb.WriteByte(l.advance())
	}
	return sb.String()
}

// scanExpr reads the content of a {{ … }} pair, already past the opening
// delimiter, tracking nested "{{"/"}}" depth and honoring string quoting
// so a "}}" inside a quoted result body doesn't prematurely close.
func (l *Lexer) scanExpr() (string, error) {
	startPos := l.currentPosition()
	depth := 1
	var sb strings.Builder
	var quote byte

	for !l.isAtEnd() {
		if quote != 0 {
			ch := l.peek()
			if ch == '\\' && l.pos+1 < len(l.source) {
				sb.WriteByte(l.advance())
				sb.WriteByte(l.advance())
				continue
			}
			if ch == quote {
				quote = 0
			}
			sb.WriteByte(l.advance())
			continue
		}

		ch := l.peek()
		if ch == '"' || ch == '\'' {
			quote = ch
			sb.WriteByte(l.advance())
			continue
		}
		if l.matchStr(openDelim) {
			depth++
			sb.WriteString(openDelim)
			l.advanceN(len(openDelim))
			continue
		}
		if l.matchStr(closeDelim) {
			depth--
			l.advanceN(len(closeDelim))
			if depth == 0 {
				return sb.String(), nil
			}
			sb.WriteString(closeDelim)
			continue
		}
		sb.WriteByte(l.advance())
	}

	return "", NewLexError(ErrMsgUnterminatedFragment, startPos)
}

func (l *Lexer) currentPosition() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.column}
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) advance() byte {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n && !l.isAtEnd(); i++ {
		l.advance()
	}
}

func (l *Lexer) matchStr(s string) bool {
	return strings.HasPrefix(l.source[l.pos:], s)
}
