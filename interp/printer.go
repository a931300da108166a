package interp

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Print writes the printed form of v to w, per spec.md 6.4. It never
// allocates, so it needs no root frame: Function/Macro/Primitive print as
// literal tokens without descending into their (possibly cyclic) closure
// environments.
func (h *Heap) Print(w io.Writer, v Value) error {
	switch h.Tag(v) {
	case TagInt:
		_, err := io.WriteString(w, strconv.FormatInt(h.IntValue(v), 10))
		return err

	case TagSymbol:
		_, err := io.WriteString(w, h.SymbolName(v))
		return err

	case TagString:
		_, err := io.WriteString(w, escapeString(h.StringValue(v)))
		return err

	case TagCell:
		return h.printCell(w, v)

	case TagPrimitive:
		_, err := io.WriteString(w, "<primitive>")
		return err

	case TagFunction:
		_, err := io.WriteString(w, "<function>")
		return err

	case TagMacro:
		_, err := io.WriteString(w, "<macro>")
		return err

	case TagTrue:
		_, err := io.WriteString(w, "t")
		return err

	case TagNil:
		_, err := io.WriteString(w, "()")
		return err

	default:
		return fmt.Errorf("minilisp: internal bug: cannot print tag %v", h.Tag(v))
	}
}

func (h *Heap) printCell(w io.Writer, v Value) error {
	if _, err := io.WriteString(w, "("); err != nil {
		return err
	}
	cur := v
	for {
		if err := h.Print(w, h.Car(cur)); err != nil {
			return err
		}
		next := h.Cdr(cur)
		if next.Same(Nil) {
			break
		}
		if h.Tag(next) == TagCell {
			if _, err := io.WriteString(w, " "); err != nil {
				return err
			}
			cur = next
			continue
		}
		if _, err := io.WriteString(w, " . "); err != nil {
			return err
		}
		if err := h.Print(w, next); err != nil {
			return err
		}
		break
	}
	_, err := io.WriteString(w, ")")
	return err
}

// ToString renders v's printed form as a Go string, for error messages and
// tests.
func (h *Heap) ToString(v Value) string {
	var sb strings.Builder
	_ = h.Print(&sb, v)
	return sb.String()
}

func escapeString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteByte('\n')
		case '\t':
			sb.WriteByte('\t')
		case '\r':
			sb.WriteByte('\r')
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
