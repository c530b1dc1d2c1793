package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnippetPointsAtOffendingToken(t *testing.T) {
	source := "int main() {\n    return x;\n}\n"
	offset := 24 // the 'x'
	err := New(Type, source, offset, 1, "undeclared identifier %q", "x")

	assert.Equal(t, "type", err.Category.String())
	snippet := err.Snippet()
	assert.Contains(t, snippet, "return x;")
	assert.Contains(t, snippet, "^")
	assert.Contains(t, err.Error(), `undeclared identifier "x"`)
}

func TestSnippetEmptyWhenSourceMissing(t *testing.T) {
	err := New(Lex, "", 0, 1, "unexpected character")
	assert.Empty(t, err.Snippet())
}

func TestSnippetFirstLine(t *testing.T) {
	source := "int x = ;\n"
	err := New(Parse, source, 8, 1, "expected expression")
	snippet := err.Snippet()
	assert.Contains(t, snippet, "1 | int x = ;")
}

func TestCategoryStrings(t *testing.T) {
	assert.Equal(t, "lex", Lex.String())
	assert.Equal(t, "parse", Parse.String())
	assert.Equal(t, "type", Type.String())
	assert.Equal(t, "constant-eval", Constant.String())
}
