// Package types implements qcc's type descriptor model: the Kind/Mod/
// Cvr/Storage bitmasks, cast compatibility, and scalar/struct sizing,
// grounded on the original implementation's type_system.hpp/.cpp.
package types

import "fmt"

// Kind classifies the shape of a Type. Kind is a bitmask so derived
// groupings (Scalar, Record, Gpr, Fpr) can be tested with one AND.
type Kind uint16

const (
	Void Kind = 1 << iota
	Char
	Int
	Float
	Double
	Pointer
	Struct
	Union
	Enum
	Array
	FuncPointer
)

const (
	Scalar = Char | Int | Float | Double | Pointer | Enum
	Record = Struct | Union
	// Gpr is the set of kinds whose values live in general-purpose
	// registers or on the stack as raw bytes (as opposed to Fpr,
	// which needs the SSE register file in a fuller implementation;
	// qcc keeps float/double in GPRs at the instruction-selection
	// level it currently targets, see internal/emit).
	Gpr = Char | Int | Pointer | Enum | FuncPointer
	Fpr = Float | Double
)

func (k Kind) Has(mask Kind) bool { return k&mask != 0 }

func (k Kind) String() string {
	switch k {
	case Void:
		return "void"
	case Char:
		return "char"
	case Int:
		return "int"
	case Float:
		return "float"
	case Double:
		return "double"
	case Pointer:
		return "pointer"
	case Struct:
		return "struct"
	case Union:
		return "union"
	case Enum:
		return "enum"
	case Array:
		return "array"
	case FuncPointer:
		return "function"
	default:
		return "?"
	}
}

// Mod is the signedness/width modifier bitmask (signed/unsigned are
// mutually exclusive by construction in the parser, as are short/long).
type Mod uint8

const (
	Signed Mod = 1 << iota
	Unsigned
	Short
	Long
)

// Cvr is the const/volatile/restrict qualifier bitmask.
type Cvr uint8

const (
	Const Cvr = 1 << iota
	Volatile
	Restrict
)

// Storage is the storage-duration/linkage class of an object.
type Storage int

const (
	Local Storage = iota
	Extern
	Register
	StaticStorage
	Auto
)

func (s Storage) String() string {
	switch s {
	case Local:
		return "local"
	case Extern:
		return "extern"
	case Register:
		return "register"
	case StaticStorage:
		return "static"
	case Auto:
		return "auto"
	default:
		return "?"
	}
}

// Member is one field of a struct/union layout.
type Member struct {
	Name   string
	Type   *Type
	Offset int
}

// Type is qcc's type descriptor. Go has no tagged union, so the
// payload fields below are simply gated by Kind: Pointee is valid for
// Pointer/Array/FuncPointer return composition, Members for
// Struct/Union, Params/Return for FuncPointer.
type Type struct {
	Kind    Kind
	Mod     Mod
	Cvr     Cvr
	Storage Storage
	Size    int

	Pointee  *Type // Pointer, Array element type
	ArrayLen int   // Array: element count, 0 if unknown (decayed parameter)

	Members []Member // Struct, Union

	Params []*Type // FuncPointer
	Return *Type   // FuncPointer
}

// Void/Char/Int/... are not package-level Type values (storage and
// cvr vary per declaration), but ScalarSize below gives every
// fundamental kind its canonical width so callers build concrete
// *Type values via NewScalar.

// ScalarSize returns the storage size in bytes of a scalar kind/mod
// pair, grounded on type_system.cpp's scalar_size(): char=1, short
// int=2, long int=8, plain int=4, float=4, double=8, pointer=8.
func ScalarSize(kind Kind, mod Mod) int {
	switch kind {
	case Void:
		return 0
	case Char:
		return 1
	case Int:
		switch {
		case mod&Short != 0:
			return 2
		case mod&Long != 0:
			return 8
		default:
			return 4
		}
	case Float:
		return 4
	case Double:
		return 8
	case Pointer, FuncPointer:
		return 8
	case Enum:
		return 4
	default:
		return 0
	}
}

// NewScalar builds a fundamental Type.
func NewScalar(kind Kind, mod Mod) *Type {
	return &Type{Kind: kind, Mod: mod, Size: ScalarSize(kind, mod)}
}

// NewPointer builds a Type pointing at pointee.
func NewPointer(pointee *Type) *Type {
	return &Type{Kind: Pointer, Pointee: pointee, Size: 8}
}

// NewArray builds a Type describing an array of length elements of
// elem. Multidimensional arrays are Arrays-of-Arrays: each dimension
// wraps the next inner Type exactly as a single dimension would, so
// int xs[3][4] is Array{Len:3, Pointee: Array{Len:4, Pointee: int}}.
// Element-offset arithmetic in internal/emit treats the whole chain as
// one flat run of Size bytes, so no special multi-dimension subscript
// case exists — see DESIGN.md Open Question #2.
func NewArray(elem *Type, length int) *Type {
	return &Type{Kind: Array, Pointee: elem, ArrayLen: length, Size: elem.Size * length}
}

// Decay returns the pointer type an array decays to when used as an
// rvalue, or t itself for any other type.
func (t *Type) Decay() *Type {
	if t == nil {
		return nil
	}
	if t.Kind == Array {
		return NewPointer(t.Pointee)
	}
	return t
}

// StructSize sums member sizes without alignment padding, matching
// type_system.cpp's struct_size(); true alignment-aware offsets are
// computed by the parser as each member is placed (see
// internal/parser's struct completion, which calls AlignUp per
// member rather than relying on this naive sum for layout).
func StructSize(members []Member) int {
	total := 0
	for _, m := range members {
		total += m.Type.Size
	}
	return total
}

// AlignUp rounds offset up to the next multiple of align. This is the
// corrected form of the original's parse_function_stack align_up,
// which used `& !(alignment)` (logical-not) instead of a bitwise
// complement and so never actually rounded anything up. See
// DESIGN.md Open Question #1.
func AlignUp(offset, align int) int {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Cast is the outcome of comparing two types for assignment/cast
// compatibility.
type Cast int

const (
	Same Cast = iota
	Inferred
	Narrowed
	Transmuted
	CastError
)

func (c Cast) String() string {
	switch c {
	case Same:
		return "same"
	case Inferred:
		return "inferred"
	case Narrowed:
		return "narrowed"
	case Transmuted:
		return "transmuted"
	default:
		return "error"
	}
}

// CastTo reports how costly it would be to convert from into t (read
// "cast(from, into)" in the original). Structs/unions only cast to
// the same aggregate: the same Type, or a copy of it sharing its
// member list; two separately declared records never match, whatever
// their layout. Pointers cast as Same when their pointees do and as
// Transmuted otherwise.
func CastTo(from, into *Type) Cast {
	if from == nil || into == nil {
		return CastError
	}
	if from == into {
		return Same
	}
	if from.Kind.Has(Record) || into.Kind.Has(Record) {
		if from.Kind == into.Kind && sameMembers(from.Members, into.Members) {
			return Same
		}
		return CastError
	}
	if from.Kind == FuncPointer || into.Kind == FuncPointer {
		if from.Kind == into.Kind && sameSignature(from, into) {
			return Same
		}
		return CastError
	}
	if from.Kind == Pointer && into.Kind == Pointer {
		if CastTo(from.Pointee, into.Pointee) == Same {
			return Same
		}
		return Transmuted
	}
	switch {
	case from.Kind == into.Kind && from.Mod == into.Mod:
		return Same
	case from.Kind.Has(Scalar) && into.Kind.Has(Scalar) && from.Kind != Pointer && into.Kind != Pointer:
		if into.Size >= from.Size {
			return Inferred
		}
		return Narrowed
	case (from.Kind == Pointer || from.Kind == Array) && (into.Kind == Pointer || into.Kind == Array):
		return Transmuted
	case from.Kind.Has(Scalar) && (into.Kind == Pointer || into.Kind == Array):
		return Transmuted
	case (from.Kind == Pointer || from.Kind == Array) && into.Kind.Has(Scalar):
		return Transmuted
	default:
		return CastError
	}
}

// sameMembers reports whether a and b are the same member list. Merge
// copies a record Type for each declaration that names it but keeps
// its Members slice, so a shared backing array identifies the record.
func sameMembers(a, b []Member) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}

func sameSignature(a, b *Type) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if CastTo(a.Params[i], b.Params[i]) == CastError {
			return false
		}
	}
	return CastTo(a.Return, b.Return) != CastError
}

// Merge overlays b's kind/size/payload onto a and unions their mods and
// cvr qualifiers, grounded on type_system.cpp's merge(). The parser
// uses it to apply specifiers to a typedef or record type and to type
// the result of binary and ternary expressions.
func Merge(a, b *Type) *Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := *b
	out.Mod = a.Mod | b.Mod
	out.Cvr = a.Cvr | b.Cvr
	return &out
}

// Name renders a human-readable type name for diagnostics.
func Name(t *Type) string {
	if t == nil {
		return "<nil>"
	}
	mod := ""
	if t.Mod&Unsigned != 0 {
		mod = "unsigned "
	} else if t.Mod&Signed != 0 {
		mod = "signed "
	}
	if t.Mod&Short != 0 {
		mod += "short "
	} else if t.Mod&Long != 0 {
		mod += "long "
	}
	switch t.Kind {
	case Pointer:
		return fmt.Sprintf("%s%s*", mod, Name(t.Pointee))
	case Array:
		return fmt.Sprintf("%s[%d]", Name(t.Pointee), t.ArrayLen)
	case FuncPointer:
		return fmt.Sprintf("%s (*)(...)", Name(t.Return))
	default:
		return mod + t.Kind.String()
	}
}

// IsLong reports whether a Char/Int kind carries a Long modifier.
func (t *Type) IsLong() bool { return t.Mod&Long != 0 }
