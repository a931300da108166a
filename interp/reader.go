package interp

import (
	"bufio"
	"strings"
)

// SymbolMaxLen and StringBufMax are the design constants from spec.md 4.5:
// a symbol name longer than SymbolMaxLen, or a string literal longer than
// StringBufMax, fails with MalformedToken.
const (
	SymbolMaxLen = 200
	StringBufMax = 1024
)

const symChars = "~!@#$%^&*-_=+:/?<>"

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isSymChar(c byte) bool {
	return strings.IndexByte(symChars, c) >= 0
}
func isSymStart(c byte) bool { return isAlpha(c) || isSymChar(c) }
func isSymCont(c byte) bool  { return isAlpha(c) || isDigit(c) || isSymChar(c) }
func isSpace(c byte) bool    { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// CharSource is the abstract byte-oriented pull interface every top-level
// driver installs for the duration of an expression or file (spec.md 6.1).
// It carries no position information by design — the original design note
// (spec.md 9) recommends threading the source through the reader rather
// than relying on a process-global file handle, and keeping this contract
// to exactly three operations keeps any byte-producer (stdin, an in-memory
// file, a test fixture) a trivial implementation.
type CharSource interface {
	Next() (byte, bool)
	Peek() (byte, bool)
	PushBack(byte)
}

// Positioned is an optional extension a CharSource may implement to supply
// the current {file, line} for error messages (SPEC_FULL.md 9: adopted
// source-position policy). A source that doesn't implement it simply
// produces errors with a zero Position.
type Positioned interface {
	Pos() Position
}

// ByteSource is a CharSource backed by a bufio.Reader, suitable for both
// stdin and in-memory file contents. Line tracking is line-feed based:
// \n and \r\n advance the line count, a bare \r does not. This only
// affects line numbers in diagnostics, never parsing.
type ByteSource struct {
	r     *bufio.Reader
	stack []byte // unconsumed bytes; Peek/PushBack push here, Next/Peek pop from here first
	file  string
	line  int
}

// NewByteSource wraps r as a CharSource, reporting position against name
// (typically a file path, or "<stdin>"/"<string>").
func NewByteSource(r *bufio.Reader, name string) *ByteSource {
	return &ByteSource{r: r, file: name, line: 1}
}

func (s *ByteSource) fill() (byte, bool) {
	if n := len(s.stack); n > 0 {
		b := s.stack[n-1]
		s.stack = s.stack[:n-1]
		return b, true
	}
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

func (s *ByteSource) Next() (byte, bool) {
	b, ok := s.fill()
	if ok && b == '\n' {
		s.line++
	}
	return b, ok
}

func (s *ByteSource) Peek() (byte, bool) {
	b, ok := s.fill()
	if ok {
		s.stack = append(s.stack, b)
	}
	return b, ok
}

func (s *ByteSource) PushBack(b byte) {
	s.stack = append(s.stack, b)
}

func (s *ByteSource) Pos() Position {
	return Position{File: s.file, Line: s.line}
}

// Reader is the recursive-descent S-expression parser of spec.md 4.5. It
// holds no state of its own beyond the character source and the heap it
// allocates into; every Value it returns must be consumed by the caller
// before the caller allocates again, or pinned via the heap's root-set
// protocol, exactly like any other allocation-sensitive code path.
type Reader struct {
	h   *Heap
	src CharSource
}

// NewReader returns a Reader consuming src and allocating into h.
func NewReader(h *Heap, src CharSource) *Reader {
	return &Reader{h: h, src: src}
}

func (rd *Reader) pos() Position {
	if p, ok := rd.src.(Positioned); ok {
		return p.Pos()
	}
	return Position{}
}

func (rd *Reader) errAt(kind ErrKind, format string, args ...any) *LispError {
	return newErrorAt(kind, rd.pos(), format, args...)
}

// skipSpaceAndComments consumes whitespace and `;`-to-end-of-line comments
// until the next significant character or EOF.
func (rd *Reader) skipSpaceAndComments() {
	for {
		c, ok := rd.src.Peek()
		if !ok {
			return
		}
		if isSpace(c) {
			rd.src.Next()
			continue
		}
		if c == ';' {
			for {
				c, ok := rd.src.Next()
				if !ok || c == '\n' || c == '\r' {
					break
				}
			}
			continue
		}
		return
	}
}

// ReadExpr reads one top-level expr production (spec.md 4.5 grammar). The
// bool result is false only on EOF at the very start of an expression (no
// error); once any token has begun, EOF is UnclosedInput. Callers that
// receive a Dot or CloseParen sentinel outside of readList's own handling
// must treat it as MalformedForm — readList consumes both correctly, and
// ReadExpr's own callers (EvalInput, readQuote) check for them.
func (rd *Reader) ReadExpr() (Value, bool, error) {
	rd.skipSpaceAndComments()

	c, ok := rd.src.Peek()
	if !ok {
		return Nil, false, nil
	}

	switch {
	case c == '(':
		rd.src.Next()
		v, err := rd.readList()
		if err != nil {
			return Value{}, false, err
		}
		return v, true, nil

	case c == ')':
		rd.src.Next()
		return CloseParen, true, nil

	case c == '.':
		rd.src.Next()
		return Dot, true, nil

	case c == '\'':
		rd.src.Next()
		return rd.readQuote()

	case c == '"':
		rd.src.Next()
		v, err := rd.readString()
		if err != nil {
			return Value{}, false, err
		}
		return v, true, nil

	case isDigit(c):
		v, err := rd.readNumber(false)
		if err != nil {
			return Value{}, false, err
		}
		return v, true, nil

	case c == '-':
		rd.src.Next()
		c2, ok2 := rd.src.Peek()
		if ok2 && isDigit(c2) {
			v, err := rd.readNumber(true)
			if err != nil {
				return Value{}, false, err
			}
			return v, true, nil
		}
		v, err := rd.readSymbol([]byte{'-'})
		if err != nil {
			return Value{}, false, err
		}
		return v, true, nil

	case isSymStart(c):
		v, err := rd.readSymbol(nil)
		if err != nil {
			return Value{}, false, err
		}
		return v, true, nil

	default:
		rd.src.Next()
		return Value{}, false, rd.errAt(ErrMalformedToken, "unexpected character %q", rune(c))
	}
}

// readList reads the body of a list after the opening '(' has already been
// consumed: zero or more exprs, an optional ". expr", then a ')'.
func (rd *Reader) readList() (Value, error) {
	head, tail, cell := Nil, Nil, Nil
	f := rd.h.PushRoots(&head, &tail, &cell)
	defer rd.h.PopRoots(f)

	rd.skipSpaceAndComments()
	c, ok := rd.src.Peek()
	if !ok {
		return Value{}, rd.errAt(ErrUnclosedInput, "unexpected end of input in list")
	}
	if c == ')' {
		rd.src.Next()
		return Nil, nil
	}

	v, ok2, err := rd.ReadExpr()
	if err != nil {
		return Value{}, err
	}
	if !ok2 {
		return Value{}, rd.errAt(ErrUnclosedInput, "unexpected end of input in list")
	}

	if v.Same(Dot) {
		tailExpr, ok3, err3 := rd.ReadExpr()
		if err3 != nil {
			return Value{}, err3
		}
		if !ok3 {
			return Value{}, rd.errAt(ErrUnclosedInput, "unexpected end of input after dot")
		}
		if tailExpr.Same(Dot) || tailExpr.Same(CloseParen) {
			return Value{}, rd.errAt(ErrMalformedToken, "malformed dotted pair")
		}
		tail = tailExpr

		rd.skipSpaceAndComments()
		c2, ok4 := rd.src.Next()
		if !ok4 {
			return Value{}, rd.errAt(ErrUnclosedInput, "expected ) after dotted tail")
		}
		if c2 != ')' {
			return Value{}, rd.errAt(ErrMalformedToken, "expected ) after dotted tail, got %q", rune(c2))
		}
		return tail, nil
	}

	if v.Same(CloseParen) {
		// Already handled by the peek above in the well-formed case; a
		// defensive fallback in case a nested call somehow returns it.
		return Nil, nil
	}

	head = v

	rest, err4 := rd.readList()
	if err4 != nil {
		return Value{}, err4
	}
	tail = rest

	cell, err5 := rd.h.allocCell(head, tail)
	if err5 != nil {
		return Value{}, err5
	}
	return cell, nil
}

// readQuote reads the expr following a leading `'` and builds (quote e).
func (rd *Reader) readQuote() (Value, bool, error) {
	inner, quoteSym, tail, result := Nil, Nil, Nil, Nil
	f := rd.h.PushRoots(&inner, &quoteSym, &tail, &result)
	defer rd.h.PopRoots(f)

	v, ok, err := rd.ReadExpr()
	if err != nil {
		return Value{}, false, err
	}
	if !ok {
		return Value{}, false, rd.errAt(ErrUnclosedInput, "unexpected end of input after quote")
	}
	if v.Same(Dot) || v.Same(CloseParen) {
		return Value{}, false, rd.errAt(ErrMalformedToken, "unexpected token after quote")
	}
	inner = v

	quoteSym, err = rd.h.Intern("quote")
	if err != nil {
		return Value{}, false, err
	}
	tail, err = rd.h.allocCell(inner, Nil)
	if err != nil {
		return Value{}, false, err
	}
	result, err = rd.h.allocCell(quoteSym, tail)
	if err != nil {
		return Value{}, false, err
	}
	return result, true, nil
}

// readString reads a string literal after the opening '"' has already been
// consumed, honoring the escape sequences from spec.md 4.5.
func (rd *Reader) readString() (Value, error) {
	var buf []byte
	for {
		c, ok := rd.src.Next()
		if !ok {
			return Value{}, rd.errAt(ErrUnclosedInput, "unterminated string literal")
		}
		if c == '"' {
			break
		}
		if c == '\\' {
			e, ok2 := rd.src.Next()
			if !ok2 {
				return Value{}, rd.errAt(ErrUnclosedInput, "unterminated string literal")
			}
			switch e {
			case 'n':
				buf = append(buf, '\n')
			case 't':
				buf = append(buf, '\t')
			case 'r':
				buf = append(buf, '\r')
			case '"':
				buf = append(buf, '"')
			case '\\':
				buf = append(buf, '\\')
			default:
				buf = append(buf, e)
			}
		} else {
			buf = append(buf, c)
		}
		if len(buf) > StringBufMax {
			return Value{}, rd.errAt(ErrMalformedToken, "string literal exceeds maximum length")
		}
	}
	return rd.h.allocString(string(buf))
}

// readNumber reads a run of digits (the sign, if any, has already been
// consumed by the caller) and builds an Int, wrapping silently on overflow
// per spec.md 4.5.
func (rd *Reader) readNumber(neg bool) (Value, error) {
	var mag uint64
	n := 0
	for {
		c, ok := rd.src.Peek()
		if !ok || !isDigit(c) {
			break
		}
		rd.src.Next()
		mag = mag*10 + uint64(c-'0')
		n++
	}
	if n == 0 {
		return Value{}, rd.errAt(ErrMalformedToken, "malformed number literal")
	}
	v := int64(mag)
	if neg {
		v = -v
	}
	return rd.h.allocInt(v)
}

// scanSymbolChars appends sym-continuation characters to buf until a
// non-symbol character or EOF, enforcing SymbolMaxLen.
func (rd *Reader) scanSymbolChars(buf []byte) ([]byte, error) {
	for {
		c, ok := rd.src.Peek()
		if !ok || !isSymCont(c) {
			break
		}
		rd.src.Next()
		buf = append(buf, c)
		if len(buf) > SymbolMaxLen {
			return nil, rd.errAt(ErrMalformedToken, "symbol name exceeds maximum length")
		}
	}
	return buf, nil
}

// readSymbol scans a symbol name (continuing from prefix, which may
// already contain a leading '-') and interns it.
func (rd *Reader) readSymbol(prefix []byte) (Value, error) {
	buf, err := rd.scanSymbolChars(prefix)
	if err != nil {
		return Value{}, err
	}
	return rd.h.Intern(string(buf))
}
