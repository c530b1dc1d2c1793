package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignUp(t *testing.T) {
	tests := []struct {
		name     string
		offset   int
		align    int
		expected int
	}{
		{"already aligned", 8, 8, 8},
		{"needs one byte of padding", 9, 8, 16},
		{"four-byte alignment", 5, 4, 8},
		{"alignment of one is a no-op", 7, 1, 7},
		{"zero offset stays zero", 0, 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AlignUp(tt.offset, tt.align))
		})
	}
}

func TestScalarSize(t *testing.T) {
	assert.Equal(t, 1, ScalarSize(Char, 0))
	assert.Equal(t, 4, ScalarSize(Int, 0))
	assert.Equal(t, 2, ScalarSize(Int, Short))
	assert.Equal(t, 8, ScalarSize(Int, Long))
	assert.Equal(t, 8, ScalarSize(Pointer, 0))
	assert.Equal(t, 8, ScalarSize(Double, 0))
}

func TestCastTo(t *testing.T) {
	intT := NewScalar(Int, 0)
	longT := NewScalar(Int, Long)
	charT := NewScalar(Char, 0)
	ptrToInt := NewPointer(intT)
	ptrToChar := NewPointer(charT)

	assert.Equal(t, Same, CastTo(intT, intT))
	assert.Equal(t, Inferred, CastTo(charT, intT))
	assert.Equal(t, Narrowed, CastTo(longT, charT))
	assert.Equal(t, Transmuted, CastTo(ptrToInt, ptrToChar))
	assert.Equal(t, Transmuted, CastTo(intT, ptrToInt))

	structA := &Type{Kind: Struct, Members: []Member{{Name: "x", Type: intT, Offset: 0}}}
	structB := &Type{Kind: Struct, Members: []Member{{Name: "x", Type: intT, Offset: 0}}}
	structC := &Type{Kind: Struct, Members: []Member{{Name: "y", Type: intT, Offset: 0}}}
	assert.Equal(t, CastError, CastTo(structA, structB), "a separately declared struct with the same layout is a different aggregate")
	copyA := *structA
	assert.Equal(t, Same, CastTo(structA, &copyA), "a copy sharing the member list is the same aggregate")
	assert.Equal(t, CastError, CastTo(structA, structC), "a differently-named member breaks the match")
	assert.Equal(t, Same, CastTo(structA, structA))
}

func TestDecay(t *testing.T) {
	elem := NewScalar(Int, 0)
	arr := NewArray(elem, 4)
	decayed := arr.Decay()
	assert.Equal(t, Pointer, decayed.Kind)
	assert.Same(t, elem, decayed.Pointee)

	assert.Same(t, elem, elem.Decay(), "a non-array type decays to itself")
}

func TestNewArrayMultidimensional(t *testing.T) {
	elem := NewScalar(Int, 0)
	inner := NewArray(elem, 4)
	outer := NewArray(inner, 3)

	assert.Equal(t, 3, outer.ArrayLen)
	assert.Equal(t, 4, outer.Pointee.ArrayLen)
	assert.Equal(t, elem.Size*4*3, outer.Size, "size is the flat byte run across both dimensions")
}

func TestMerge(t *testing.T) {
	base := NewScalar(Int, Unsigned)
	suffix := NewPointer(NewScalar(Char, 0))
	merged := Merge(base, suffix)
	assert.Equal(t, Pointer, merged.Kind)
	assert.Equal(t, Unsigned, merged.Mod&Unsigned)
}
