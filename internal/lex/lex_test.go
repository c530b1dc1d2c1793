package lex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcc-project/qcc/internal/token"
)

func kinds(t *testing.T, source string) []token.Kind {
	toks, err := TokenizeAll(source)
	require.NoError(t, err)
	var ks []token.Kind
	for _, tok := range toks {
		ks = append(ks, tok.Kind)
	}
	return ks
}

func TestTokenizeAllSkipsBlankAndComment(t *testing.T) {
	got := kinds(t, "int   x; // trailing\n/* block */ return;")
	assert.Equal(t, []token.Kind{
		token.IntType, token.Id, token.Semicolon, token.Return, token.Semicolon, token.Eof,
	}, got)
}

func TestKeywordRequiresIdBoundary(t *testing.T) {
	got := kinds(t, "intx")
	assert.Equal(t, []token.Kind{token.Id, token.Eof}, got, "intx must lex as one identifier, not `int`+`x`")
}

func TestMultiCharOperatorsBeatPrefixes(t *testing.T) {
	got := kinds(t, "a <<= b; c <= d; e << f;")
	assert.Contains(t, got, token.ShiftLAssign)
	assert.Contains(t, got, token.LessEq)
	assert.Contains(t, got, token.ShiftL)
}

func TestIntLiteralSuffixesAndBases(t *testing.T) {
	toks, err := TokenizeAll("0x1Fu 0b101L 42ULL 3.14f")
	require.NoError(t, err)
	require.Len(t, toks, 5) // four literals + Eof
	assert.Equal(t, token.IntHex, toks[0].Kind)
	assert.Equal(t, token.IntBin, toks[1].Kind)
	assert.Equal(t, token.Int, toks[2].Kind)
	assert.Equal(t, token.Float, toks[3].Kind)
}

func TestStringAndCharLiterals(t *testing.T) {
	toks, err := TokenizeAll(`"hi\n" 'a' '\\'`)
	require.NoError(t, err)
	assert.Equal(t, token.String, toks[0].Kind)
	assert.Equal(t, token.Char, toks[1].Kind)
	assert.Equal(t, token.Char, toks[2].Kind)
}

func TestUnrecognizedCharacterIsADiagError(t *testing.T) {
	_, err := TokenizeAll("int x = 1 $ 2;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized character")
}

func TestOffsetTracksBytePosition(t *testing.T) {
	toks, err := TokenizeAll("int main")
	require.NoError(t, err)
	assert.Equal(t, 0, toks[0].Offset)
	assert.Equal(t, 4, toks[1].Offset)
}
