package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcc-project/qcc/internal/ast"
	"github.com/qcc-project/qcc/internal/config"
	"github.com/qcc-project/qcc/internal/trace"
	"github.com/qcc-project/qcc/internal/types"
)

func mustParse(t *testing.T, source string) *ast.Ast {
	t.Helper()
	tree, err := Parse(source, config.Default(), trace.New(false))
	require.NoError(t, err)
	return tree
}

func findFunction(t *testing.T, tree *ast.Ast, name string) *ast.Function {
	t.Helper()
	for _, stmt := range tree.TopScope.Body {
		if fs, ok := stmt.(*ast.FunctionStatement); ok && fs.Function.Name == name {
			return fs.Function
		}
	}
	t.Fatalf("no function named %q", name)
	return nil
}

func TestParseAddFunction(t *testing.T) {
	tree := mustParse(t, `
int add(int a, int b) {
	return a + b;
}
`)
	fn := findFunction(t, tree, "add")
	require.Len(t, fn.Parameters, 2)
	require.Len(t, fn.Scope.Body, 1)

	ret, ok := fn.Scope.Body[0].(*ast.ReturnStatement)
	require.True(t, ok)
	bin, ok := ret.Expression.(*ast.BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, types.Int, bin.ResultType.Kind)
}

func TestParseRejectsUndeclaredIdentifier(t *testing.T) {
	_, err := Parse(`int main() { return x; }`, config.Default(), trace.New(false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared identifier")
}

func TestParsePointerIndirection(t *testing.T) {
	tree := mustParse(t, `
int deref(int *p) {
	return *p;
}
`)
	fn := findFunction(t, tree, "deref")
	ret := fn.Scope.Body[0].(*ast.ReturnStatement)
	deref, ok := ret.Expression.(*ast.DerefExpression)
	require.True(t, ok)
	id, ok := deref.Operand.(*ast.IdExpression)
	require.True(t, ok)
	assert.Equal(t, "p", id.Variable.Name)
}

func TestParseStructByPointerMemberAccess(t *testing.T) {
	tree := mustParse(t, `
struct Point { int x; int y; };

int getX(struct Point *p) {
	return p->x;
}
`)
	fn := findFunction(t, tree, "getX")
	ret := fn.Scope.Body[0].(*ast.ReturnStatement)
	dot, ok := ret.Expression.(*ast.DotExpression)
	require.True(t, ok)
	assert.Equal(t, "x", dot.Member)
	assert.Equal(t, 0, dot.Offset)

	_, ok = dot.Record.(*ast.DerefExpression)
	assert.True(t, ok, "p->x desugars into (*p).x")
}

func TestStructMemberOffsetsAreAligned(t *testing.T) {
	tree := mustParse(t, `
struct Mixed {
	char tag;
	int value;
};

int use(struct Mixed *m) {
	return m->value;
}
`)
	fn := findFunction(t, tree, "use")
	ret := fn.Scope.Body[0].(*ast.ReturnStatement)
	dot := ret.Expression.(*ast.DotExpression)
	assert.Equal(t, 4, dot.Offset, "int value is padded to a 4-byte boundary after the leading char")
}

func TestArrayDecayToPointerParameter(t *testing.T) {
	tree := mustParse(t, `
int first(int xs[10]) {
	return xs[0];
}
`)
	fn := findFunction(t, tree, "first")
	assert.Equal(t, types.Pointer, fn.Parameters[0].Type.Kind, "array parameters decay to pointers")
}

func TestMultidimensionalArraySubscript(t *testing.T) {
	tree := mustParse(t, `
int grid() {
	int xs[3][4];
	return xs[1][2];
}
`)
	fn := findFunction(t, tree, "grid")
	def := fn.Scope.Body[0].(*ast.DefineStatement)
	assert.Equal(t, 3, def.Variable.Type.ArrayLen)
	assert.Equal(t, 4, def.Variable.Type.Pointee.ArrayLen)

	ret := fn.Scope.Body[1].(*ast.ReturnStatement)
	_, ok := ret.Expression.(*ast.DerefExpression)
	assert.True(t, ok, "xs[1][2] desugars through nested deref/add")
}

func TestForLoopRequiresSemicolons(t *testing.T) {
	tree := mustParse(t, `
int count() {
	int total = 0;
	for (int i = 0; i < 10; i = i + 1) {
		total = total + i;
	}
	return total;
}
`)
	fn := findFunction(t, tree, "count")
	scope, ok := fn.Scope.Body[1].(*ast.ScopeStatement)
	require.True(t, ok, "for wraps its init/body in its own scope")
	forStmt, ok := scope.Scope.Body[0].(*ast.ForStatement)
	require.True(t, ok)
	require.NotNil(t, forStmt.Init)
	require.NotNil(t, forStmt.Boolean)
	require.NotNil(t, forStmt.Loop)
}

func TestForLoopRejectsOriginalParenSeparator(t *testing.T) {
	_, err := Parse(`
int bad() {
	for (int i = 0 (i < 10) i = i + 1) {}
	return 0;
}
`, config.Default(), trace.New(false))
	require.Error(t, err, "the corrected grammar requires semicolons, not parens, between clauses")
}

func TestCompoundAssignmentDesugars(t *testing.T) {
	tree := mustParse(t, `
int inc(int n) {
	n += 5;
	return n;
}
`)
	fn := findFunction(t, tree, "inc")
	exprStmt := fn.Scope.Body[0].(*ast.ExpressionStatement)
	assign, ok := exprStmt.Expression.(*ast.AssignExpression)
	require.True(t, ok)
	bin, ok := assign.Rhs.(*ast.BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, types.NewScalar(types.Int, 0).Kind, bin.ResultType.Kind)
}

func TestTernaryMergesBranchTypes(t *testing.T) {
	tree := mustParse(t, `
int pick(int cond) {
	return cond ? 1 : 2;
}
`)
	fn := findFunction(t, tree, "pick")
	ret := fn.Scope.Body[0].(*ast.ReturnStatement)
	tern, ok := ret.Expression.(*ast.TernaryExpression)
	require.True(t, ok)
	assert.Equal(t, types.Int, tern.ResultType.Kind)
}

func TestSizeofFoldsAtParseTime(t *testing.T) {
	tree := mustParse(t, `
int sz() {
	return sizeof(int);
}
`)
	fn := findFunction(t, tree, "sz")
	ret := fn.Scope.Body[0].(*ast.ReturnStatement)
	cast, ok := ret.Expression.(*ast.CastExpression)
	require.True(t, ok, "the unsigned sizeof result is cast to the int return type")
	intLit, ok := cast.Operand.(*ast.IntExpression)
	require.True(t, ok)
	assert.EqualValues(t, 4, intLit.Value)
}

func TestEnumConstantFolding(t *testing.T) {
	tree := mustParse(t, `
enum Color { Red, Green, Blue = 10, Violet };

int use() {
	return Violet;
}
`)
	fn := findFunction(t, tree, "use")
	ret := fn.Scope.Body[0].(*ast.ReturnStatement)
	lit, ok := ret.Expression.(*ast.IntExpression)
	require.True(t, ok)
	assert.EqualValues(t, 11, lit.Value)
}

func TestFunctionCallArgumentBinding(t *testing.T) {
	tree := mustParse(t, `
int add(int a, int b) {
	return a + b;
}

int main() {
	return add(1, 2);
}
`)
	main := findFunction(t, tree, "main")
	ret := main.Scope.Body[0].(*ast.ReturnStatement)
	invoke, ok := ret.Expression.(*ast.InvokeExpression)
	require.True(t, ok)
	require.Len(t, invoke.Arguments, 2)
	assign, ok := invoke.Arguments[0].(*ast.AssignExpression)
	require.True(t, ok, "each argument is bound through a synthetic ref/assign wrapper")
	_, ok = assign.Lhs.(*ast.RefExpression)
	assert.True(t, ok)
}

func TestFunctionCallArityMismatch(t *testing.T) {
	_, err := Parse(`
int add(int a, int b) { return a + b; }
int main() { return add(1); }
`, config.Default(), trace.New(false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 2 argument")
}

func TestCharLiteralRejectsEmptyBody(t *testing.T) {
	_, err := Parse(`int main() { return ''; }`, config.Default(), trace.New(false))
	require.Error(t, err)
}

func TestCharLiteralRejectsUnresolvedMultibyteEscape(t *testing.T) {
	// '\z' is not a recognized escape letter, so unescape() leaves the
	// backslash and the 'z' as two literal bytes rather than folding
	// them into one — exactly the multibyte case unescapeChar must
	// reject instead of silently keeping only the first byte.
	_, err := Parse(`int main() { return '\z'; }`, config.Default(), trace.New(false))
	require.Error(t, err)
}

func TestStructUnionTagKindMismatchIsRejected(t *testing.T) {
	_, err := Parse(`
struct Foo { int x; };
union Foo { int y; };
int main() { return 0; }
`, config.Default(), trace.New(false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different kind of tag")
}

func TestTypedefPointerPreservesPointee(t *testing.T) {
	tree := mustParse(t, `
typedef int *P;
int deref(P x) {
	return *x;
}
`)
	fn := findFunction(t, tree, "deref")
	assert.Equal(t, types.Pointer, fn.Parameters[0].Type.Kind)
	require.NotNil(t, fn.Parameters[0].Type.Pointee, "a typedef'd pointer must keep its pointee type")
	assert.Equal(t, types.Int, fn.Parameters[0].Type.Pointee.Kind)
}
