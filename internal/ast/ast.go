// Package ast implements qcc's object model, scope tree, and the two
// polymorphic node hierarchies (Statement, Expression) as Go tagged
// variants: an interface plus a Kind() discriminant and exhaustive
// type switches in consumers, per spec.md's redesign guidance, rather
// than the original's virtual-dispatch classes (object.hpp,
// statement.hpp, expression.hpp, and the wider node set parser.cpp/
// x86.cpp actually use).
package ast

import "github.com/qcc-project/qcc/internal/types"

// ObjectKind discriminates the Object tagged variant.
type ObjectKind int

const (
	ObjFunction ObjectKind = iota
	ObjVariable
	ObjTypedef
	ObjRecord
)

// Object is anything bound to a name in a Scope.
type Object interface {
	ObjKind() ObjectKind
	ObjName() string
}

// SourceKind discriminates where a Variable's runtime value lives.
// Assigned by internal/alloc, consumed by internal/emit.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceStack
	SourceGpr
	SourceFpr
	SourceData
)

// Source is the storage location the allocator assigned a Variable.
type Source struct {
	Kind        SourceKind
	StackOffset int // SourceStack: offset from rbp
	Reg         int // SourceGpr/SourceFpr: register file index
	DataOffset  int // SourceData: index N of the global's gN label in .data or .bss
}

// Variable is a named, typed storage slot: a local, a parameter, or a
// global.
type Variable struct {
	Name     string
	Type     *types.Type
	Constant bool
	Source   Source

	// UseBegin/UseEnd are the use-range timestamps internal/alloc
	// computes in its first phase; kept on the Variable itself so the
	// allocator and emitter do not need a parallel side table keyed by
	// pointer identity beyond what alloc.go already keeps for its
	// own bookkeeping.
	UseBegin uint32
	UseEnd   uint32
}

func (v *Variable) ObjKind() ObjectKind { return ObjVariable }
func (v *Variable) ObjName() string     { return v.Name }

// Function is a named callable: its parameters and locals are owned by
// its Scope; Function itself only tracks what the allocator/emitter
// need across the whole body (frame size, whether it is `main`).
type Function struct {
	Name       string
	Parameters []*Variable
	ReturnType *types.Type
	Scope      *Scope
	IsMain     bool

	StackSize  int // total local frame size, set by internal/alloc
	InvokeSize int // total argument-passing size, set by internal/alloc
}

func (f *Function) ObjKind() ObjectKind { return ObjFunction }
func (f *Function) ObjName() string     { return f.Name }

// Typedef binds a name to an existing Type.
type Typedef struct {
	Name string
	Type *types.Type
}

func (t *Typedef) ObjKind() ObjectKind { return ObjTypedef }
func (t *Typedef) ObjName() string     { return t.Name }

// Record binds a struct/union/enum tag to its Type.
type Record struct {
	Name string
	Type *types.Type
}

func (r *Record) ObjKind() ObjectKind { return ObjRecord }
func (r *Record) ObjName() string     { return r.Name }

// Scope is a lexical block: a flat name table for objects plus a
// separate tag table for struct/union/enum names (C's two
// namespaces), a parent link for lookup, and the ordered statement
// list that is the scope's body.
type Scope struct {
	Owner   *Scope
	Objects map[string]Object
	Records map[string]*types.Type
	Body    []Statement
}

// NewScope allocates a child scope of owner (owner may be nil for the
// translation unit's top-level scope).
func NewScope(owner *Scope) *Scope {
	return &Scope{
		Owner:   owner,
		Objects: make(map[string]Object),
		Records: make(map[string]*types.Type),
	}
}

// Lookup searches this scope and its owners for name, returning the
// nearest binding.
func (s *Scope) Lookup(name string) Object {
	for scope := s; scope != nil; scope = scope.Owner {
		if obj, ok := scope.Objects[name]; ok {
			return obj
		}
	}
	return nil
}

// LookupLocal searches only this scope, used by variable definitions
// and function declarations where redefinition is checked within the
// immediate scope only, not the whole chain.
func (s *Scope) LookupLocal(name string) Object {
	return s.Objects[name]
}

// LookupRecord searches this scope and its owners for a tag bound under
// kind. It returns the bound type and whether kind matches the type the
// tag was originally recorded with; a non-nil type with sameKind false
// means the tag already names a different kind of record (struct vs.
// union vs. enum), which the caller must reject rather than silently
// reuse or shadow.
func (s *Scope) LookupRecord(name string, kind types.Kind) (t *types.Type, sameKind bool) {
	for scope := s; scope != nil; scope = scope.Owner {
		if found, ok := scope.Records[name]; ok {
			return found, found.Kind == kind
		}
	}
	return nil, true
}

// Ast holds the translation unit's top-level statements and every
// Function and Variable the parser allocated; nested statements live
// in their Scope's Body, and the parser does not fill Expressions.
// Nodes are appended and never individually freed, so cross-references
// between nodes (a Variable's owning Scope, a Return statement's
// Function, a pointer Type's pointee) are ordinary Go pointers without
// fear of reallocation invalidating them, since Go slices store *T
// here, not T — growing the backing array only moves the pointers
// themselves, never the pointees.
type Ast struct {
	Statements  []Statement
	Expressions []Expression
	Functions   []*Function
	Variables   []*Variable
	Main        *Function
	TopScope    *Scope
}

// NewAst allocates an empty Ast with its top-level scope.
func NewAst() *Ast {
	a := &Ast{}
	a.TopScope = NewScope(nil)
	return a
}

func (a *Ast) NewVariable(v *Variable) *Variable {
	a.Variables = append(a.Variables, v)
	return v
}

func (a *Ast) NewFunction(f *Function) *Function {
	a.Functions = append(a.Functions, f)
	return f
}
