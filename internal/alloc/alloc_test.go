package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcc-project/qcc/internal/ast"
	"github.com/qcc-project/qcc/internal/config"
	"github.com/qcc-project/qcc/internal/parser"
	"github.com/qcc-project/qcc/internal/trace"
)

func allocate(t *testing.T, source string, cfg config.Options) *ast.Ast {
	t.Helper()
	tree, err := parser.Parse(source, cfg, trace.New(false))
	require.NoError(t, err)
	a := New(cfg, trace.New(false))
	require.NoError(t, a.Allocate(tree))
	return tree
}

func findFn(t *testing.T, tree *ast.Ast, name string) *ast.Function {
	t.Helper()
	for _, stmt := range tree.TopScope.Body {
		if fs, ok := stmt.(*ast.FunctionStatement); ok && fs.Function.Name == name {
			return fs.Function
		}
	}
	t.Fatalf("no function named %q", name)
	return nil
}

func TestOverlappingLivesGetDistinctRegisters(t *testing.T) {
	cfg := config.Default()
	tree := allocate(t, `
int sum(int a, int b) {
	int c = a + b;
	return c;
}
`, cfg)
	fn := findFn(t, tree, "sum")
	a, b := fn.Parameters[0], fn.Parameters[1]
	assert.Equal(t, ast.SourceGpr, a.Source.Kind)
	assert.Equal(t, ast.SourceGpr, b.Source.Kind)
	assert.NotEqual(t, a.Source.Reg, b.Source.Reg, "a and b are simultaneously live and must not alias a register")
}

func TestRegisterPoolExhaustionFallsBackToStack(t *testing.T) {
	cfg := config.Default()
	cfg.GprCount = 1
	tree := allocate(t, `
int sum(int a, int b) {
	return a + b;
}
`, cfg)
	fn := findFn(t, tree, "sum")
	a, b := fn.Parameters[0], fn.Parameters[1]
	kinds := []ast.SourceKind{a.Source.Kind, b.Source.Kind}
	assert.Contains(t, kinds, ast.SourceStack, "with only one register, one of two simultaneously-live parameters must spill")
}

func TestAggregateVariableAlwaysOnStack(t *testing.T) {
	cfg := config.Default()
	tree := allocate(t, `
struct Point { int x; int y; };

int use() {
	struct Point p;
	p.x = 1;
	return p.x;
}
`, cfg)
	fn := findFn(t, tree, "use")
	def := fn.Scope.Body[0].(*ast.DefineStatement)
	assert.Equal(t, ast.SourceStack, def.Variable.Source.Kind, "a struct never fits in a single register")
}

func TestRegisterFreedAfterLastUseIsReused(t *testing.T) {
	cfg := config.Default()
	cfg.GprCount = 1
	tree := allocate(t, `
int chain() {
	int a = 1;
	int b = a;
	int c = b;
	return c;
}
`, cfg)
	fn := findFn(t, tree, "chain")
	defA := fn.Scope.Body[0].(*ast.DefineStatement)
	defB := fn.Scope.Body[1].(*ast.DefineStatement)
	defC := fn.Scope.Body[2].(*ast.DefineStatement)

	assert.Equal(t, ast.SourceGpr, defA.Variable.Source.Kind)
	assert.Equal(t, ast.SourceGpr, defC.Variable.Source.Kind)
	_ = defB
}

func TestFrameLayoutParameterStride(t *testing.T) {
	cfg := config.Default()
	tree := allocate(t, `
int three(int a, int b, int c) {
	return a + b + c;
}
`, cfg)
	fn := findFn(t, tree, "three")
	assert.Equal(t, 24, fn.InvokeSize, "three 8-byte-stride parameters")

	offsets := map[string]int{}
	for _, p := range fn.Parameters {
		if p.Source.Kind == ast.SourceStack {
			offsets[p.Name] = p.Source.StackOffset
		}
	}
	for _, off := range offsets {
		assert.Equal(t, 0, (off-16)%8, "every stack-resident parameter sits on an 8-byte stride from +16")
	}
}

func TestLocalFrameOffsetsAreNegativeAndAligned(t *testing.T) {
	cfg := config.Default()
	cfg.GprCount = 0
	tree := allocate(t, `
int locals() {
	char tag;
	int value;
	return value;
}
`, cfg)
	fn := findFn(t, tree, "locals")
	tagDef := fn.Scope.Body[0].(*ast.DefineStatement)
	valueDef := fn.Scope.Body[1].(*ast.DefineStatement)

	assert.Equal(t, ast.SourceStack, tagDef.Variable.Source.Kind)
	assert.Equal(t, ast.SourceStack, valueDef.Variable.Source.Kind)
	assert.Less(t, tagDef.Variable.Source.StackOffset, 0)
	assert.Less(t, valueDef.Variable.Source.StackOffset, 0)
	assert.Equal(t, 0, valueDef.Variable.Source.StackOffset%4, "int-sized local lands on a 4-byte-aligned offset")
}

func TestLiveAtReturnsRegisterResidentVariablesAcrossACall(t *testing.T) {
	cfg := config.Default()
	tree, err := parser.Parse(`
int helper(int z) {
	return z;
}

int main() {
	int a = 5;
	int b = helper(a);
	return a + b;
}
`, cfg, trace.New(false))
	require.NoError(t, err)

	fn := findFn(t, tree, "main")
	bDef := fn.Scope.Body[1].(*ast.DefineStatement)
	invoke := bDef.Initializer.(*ast.InvokeExpression)

	allocator := New(cfg, trace.New(false))
	require.NoError(t, allocator.Allocate(tree))
	live := allocator.LiveAt(invoke)

	for _, v := range live {
		assert.True(t, v.Source.Kind == ast.SourceGpr || v.Source.Kind == ast.SourceFpr)
	}
}
