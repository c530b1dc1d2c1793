package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qcc-project/qcc/internal/alloc"
	"github.com/qcc-project/qcc/internal/config"
	"github.com/qcc-project/qcc/internal/parser"
	"github.com/qcc-project/qcc/internal/trace"
)

func compile(t *testing.T, source string) string {
	t.Helper()
	cfg := config.Default()
	tr := trace.New(false)
	tree, err := parser.Parse(source, cfg, tr)
	require.NoError(t, err)
	allocator := alloc.New(cfg, tr)
	require.NoError(t, allocator.Allocate(tree))
	asm, err := Emit(tree, allocator, tr)
	require.NoError(t, err)
	return asm
}

func TestEmitAddFunction(t *testing.T) {
	asm := compile(t, `
int add(int a, int b) {
	return a + b;
}
`)
	assert.Contains(t, asm, "add:")
	assert.Contains(t, asm, "\tadd ")
	assert.Contains(t, asm, "\tret")
}

func TestEmitMainUsesLegacySyscallExit(t *testing.T) {
	asm := compile(t, `
int main() {
	return 0;
}
`)
	assert.Contains(t, asm, "_start:")
	assert.Contains(t, asm, "int 0x80")
	assert.NotContains(t, asm, "main:", "main is emitted under the _start label, not its own name")
}

func TestEmitForLoopGeneratesLoopLabels(t *testing.T) {
	asm := compile(t, `
int count() {
	int total = 0;
	for (int i = 0; i < 10; i = i + 1) {
		total = total + i;
	}
	return total;
}
`)
	assert.Contains(t, asm, ".L.continue0:")
	assert.Contains(t, asm, ".L.break0:")
}

func TestEmitWhileLoopBreakUsesItsOwnLabel(t *testing.T) {
	asm := compile(t, `
int first() {
	int i = 0;
	while (i < 10) {
		if (i == 5) {
			break;
		}
		i = i + 1;
	}
	return i;
}
`)
	assert.Contains(t, asm, "jmp .L.break0")
}

func TestEmitStringLiteralPooledInDataSection(t *testing.T) {
	asm := compile(t, `
char *greeting() {
	return "hi";
}
`)
	assert.Contains(t, asm, "section .data")
	assert.Contains(t, asm, "str0:")
}

func TestEmitDivisionUsesCqoIdiv(t *testing.T) {
	asm := compile(t, `
int div(int a, int b) {
	return a / b;
}
`)
	assert.Contains(t, asm, "\tcqo")
	assert.Contains(t, asm, "\tidiv rdi")
}

func TestEmitModulusReadsRemainderFromRdx(t *testing.T) {
	asm := compile(t, `
int mod(int a, int b) {
	return a % b;
}
`)
	assert.Contains(t, asm, "\tcqo")
	assert.Contains(t, asm, "\tidiv rdi")
	assert.Contains(t, asm, "\tmov rax, rdx")
}

func TestEmitFunctionCallPushesArgumentsAndCleansStack(t *testing.T) {
	asm := compile(t, `
int helper(int z) {
	return z;
}

int main() {
	return helper(41);
}
`)
	assert.Contains(t, asm, "call helper")
	assert.Contains(t, asm, "add rsp, 8")
}

func TestEmitCastWidensWithMovsxOrMovzx(t *testing.T) {
	asm := compile(t, `
int widen(char c) {
	int x = c;
	return x;
}
`)
	assert.True(t, strings.Contains(asm, "movsx") || strings.Contains(asm, "movzx"),
		"narrow-to-wide conversion uses a genuine x86 sign/zero-extend instruction")
}

func TestEmitGlobalConstantGoesInDataSection(t *testing.T) {
	asm := compile(t, `
int counter = 41;

int bump() {
	return counter + 1;
}
`)
	assert.Contains(t, asm, "section .data")
	assert.Contains(t, asm, "dd 41")
	assert.Contains(t, asm, "[rel g0]")
}

func TestEmitGlobalWithoutInitializerGoesInBss(t *testing.T) {
	asm := compile(t, `
int total;

int read() {
	return total;
}
`)
	assert.Contains(t, asm, "section .bss")
	assert.Contains(t, asm, "resd 1")
	assert.Contains(t, asm, "[rel g0]")
}

func TestAllocateRejectsNonConstantGlobalInitializer(t *testing.T) {
	cfg := config.Default()
	tr := trace.New(false)
	tree, err := parser.Parse(`
int a;
int b = a;
int main() { return 0; }
`, cfg, tr)
	require.NoError(t, err)

	allocator := alloc.New(cfg, tr)
	err = allocator.Allocate(tree)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a constant integer")
}
