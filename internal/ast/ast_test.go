package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qcc-project/qcc/internal/types"
)

func TestScopeLookupWalksOwnerChain(t *testing.T) {
	top := NewScope(nil)
	inner := NewScope(top)

	g := &Variable{Name: "g", Type: types.NewScalar(types.Int, 0)}
	top.Objects["g"] = g

	assert.Same(t, g, inner.Lookup("g"), "lookup must walk up to the owning scope")
	assert.Nil(t, inner.LookupLocal("g"), "LookupLocal must not see bindings from an owner scope")
}

func TestScopeLookupLocalShadowsOwner(t *testing.T) {
	top := NewScope(nil)
	inner := NewScope(top)

	outer := &Variable{Name: "x", Type: types.NewScalar(types.Int, 0)}
	shadow := &Variable{Name: "x", Type: types.NewScalar(types.Char, 0)}
	top.Objects["x"] = outer
	inner.Objects["x"] = shadow

	assert.Same(t, shadow, inner.Lookup("x"), "the nearest binding wins")
	assert.Same(t, outer, top.Lookup("x"))
}

func TestScopeLookupRecordWalksOwnerChain(t *testing.T) {
	top := NewScope(nil)
	inner := NewScope(top)

	point := &types.Type{Kind: types.Struct}
	top.Records["Point"] = point

	got, sameKind := inner.LookupRecord("Point", types.Struct)
	assert.Same(t, point, got)
	assert.True(t, sameKind)

	got, _ = inner.LookupRecord("Missing", types.Struct)
	assert.Nil(t, got)
}

func TestScopeLookupRecordRejectsKindMismatch(t *testing.T) {
	top := NewScope(nil)

	top.Records["Foo"] = &types.Type{Kind: types.Struct}

	got, sameKind := top.LookupRecord("Foo", types.Union)
	assert.NotNil(t, got, "the tag is still found")
	assert.False(t, sameKind, "a union lookup must not silently match a struct tag")
}

func TestAstNewVariableAndNewFunctionAppendToArena(t *testing.T) {
	a := NewAst()

	v1 := a.NewVariable(&Variable{Name: "a", Type: types.NewScalar(types.Int, 0)})
	v2 := a.NewVariable(&Variable{Name: "b", Type: types.NewScalar(types.Int, 0)})
	require := assert.New(t)
	require.Len(a.Variables, 2)
	require.Same(v1, a.Variables[0])
	require.Same(v2, a.Variables[1])

	fn := a.NewFunction(&Function{Name: "main", IsMain: true})
	require.Len(a.Functions, 1)
	require.Same(fn, a.Functions[0])
}

func TestObjKindAndObjName(t *testing.T) {
	v := &Variable{Name: "x"}
	f := &Function{Name: "f"}
	td := &Typedef{Name: "Byte"}
	r := &Record{Name: "Point"}

	assert.Equal(t, ObjVariable, v.ObjKind())
	assert.Equal(t, ObjFunction, f.ObjKind())
	assert.Equal(t, ObjTypedef, td.ObjKind())
	assert.Equal(t, ObjRecord, r.ObjKind())

	assert.Equal(t, "x", v.ObjName())
	assert.Equal(t, "f", f.ObjName())
	assert.Equal(t, "Byte", td.ObjName())
	assert.Equal(t, "Point", r.ObjName())
}
