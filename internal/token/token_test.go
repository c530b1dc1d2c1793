package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAliases(t *testing.T) {
	assert.Equal(t, Star, Pointer)
	assert.Equal(t, Star, Mul)
	assert.Equal(t, Star, Deref)
	assert.Equal(t, Ampersand, BinAnd)
	assert.Equal(t, Ampersand, Address)
}

func TestString(t *testing.T) {
	assert.Equal(t, "while", While.String())
	assert.Equal(t, "+=", AddAssign.String())
	assert.Equal(t, "?", Kind(255).String(), "an unknown kind falls back to a placeholder rather than panicking")
}

func TestMerge(t *testing.T) {
	lhs := Token{Str: "struct", Kind: Struct, Line: 1, Col: 1}
	rhs := Token{Str: "Point", Kind: Id, Line: 1, Col: 8}
	merged := Merge(lhs, rhs)
	assert.Equal(t, "structPoint", merged.Str)
	assert.Equal(t, None, merged.Kind)

	assert.Equal(t, rhs, Merge(Token{}, rhs))
	assert.Equal(t, lhs, Merge(lhs, Token{}))
}
