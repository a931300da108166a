package interp

// Tag identifies the variant of a heap object. Every in-heap object carries
// exactly one of these in its header; the collector switches on it to know
// which fields (if any) are references that must be forwarded.
type Tag uint8

const (
	TagInt Tag = iota
	TagCell
	TagSymbol
	TagPrimitive
	TagFunction
	TagMacro
	TagEnv
	TagString
	TagMoved
	TagTrue
	TagNil
	TagDot
	TagCloseParen
)

func (t Tag) String() string {
	switch t {
	case TagInt:
		return "int"
	case TagCell:
		return "cell"
	case TagSymbol:
		return "symbol"
	case TagPrimitive:
		return "primitive"
	case TagFunction:
		return "function"
	case TagMacro:
		return "macro"
	case TagEnv:
		return "env"
	case TagString:
		return "string"
	case TagMoved:
		return "moved"
	case TagTrue:
		return "t"
	case TagNil:
		return "nil"
	case TagDot:
		return "dot"
	case TagCloseParen:
		return "close-paren"
	}
	return "unknown"
}

// headerSize is the fixed prefix of every in-heap object: one tag byte,
// three bytes of padding to keep the payload aligned, and a uint32 total
// object size (used by the collector to skip to the next object while
// scanning to-space).
const headerSize = 8

// refSize is sizeof(reference) in this implementation: a reference is a
// little-endian int32 byte offset into the active semispace, or one of the
// negative sentinel codes below. Every object's rounded-up size must be at
// least refSize so a Moved tombstone's forwarding target always fits.
const refSize = 4

// Sentinel reference codes. True, Nil, Dot and CloseParen are statically
// allocated outside the managed heap (spec.md 3.1); they are represented
// here as negative Value offsets rather than real heap allocations, so
// forward() can recognize and pass them through unchanged in O(1) without
// touching from-space.
const (
	offNil = -1 - iota
	offTrue
	offDot
	offCloseParen
)

// Value is a reference to an object: either a byte offset into the heap's
// active semispace (off >= 0) or one of the sentinel codes above. Value is
// a plain value type so it can be stored in root slots, struct fields, and
// Go slices; the collector rewrites the off field in place during a scan.
type Value struct {
	off int32
}

var (
	Nil        = Value{offNil}
	True       = Value{offTrue}
	Dot        = Value{offDot}
	CloseParen = Value{offCloseParen}
)

// IsSentinel reports whether v is one of the four statically allocated
// singletons, never an in-heap object.
func (v Value) IsSentinel() bool {
	return v.off < 0
}

// Same compares two values by identity (same heap slot, or same sentinel).
// Per spec.md 3.1, Nil/True/Dot/CloseParen and Symbol are compared by
// identity; this is also the implementation of primitive `eq` for every
// tag except String (content compare, see primEq).
func (v Value) Same(o Value) bool {
	return v.off == o.off
}
