package parser

import (
	"github.com/qcc-project/qcc/internal/ast"
	"github.com/qcc-project/qcc/internal/diag"
	"github.com/qcc-project/qcc/internal/token"
	"github.com/qcc-project/qcc/internal/types"
)

// startsType reports whether the current token can begin a type
// specifier: a fundamental keyword, a cvr/storage/mod keyword, a
// struct/union/enum keyword, or a typedef name bound in scope.
func (p *Parser) startsType() bool {
	switch p.peek().Kind {
	case token.VoidType, token.CharType, token.IntType, token.FloatType, token.DoubleType,
		token.Const, token.Volatile, token.Restrict,
		token.Extern, token.Register, token.Static, token.Auto,
		token.Signed, token.Unsigned, token.Short, token.Long,
		token.Struct, token.Union, token.Enum:
		return true
	case token.Id:
		if obj := p.scope.Lookup(p.peek().Str); obj != nil {
			_, ok := obj.(*ast.Typedef)
			return ok
		}
	}
	return false
}

// parseType parses a type specifier: storage class, cvr qualifiers,
// modifiers, and a base kind (fundamental keyword, struct/union/enum,
// or typedef name), grounded on parser.cpp's parse_type/parse_type_cvr.
// Absent an explicit base kind after modifiers, the base defaults to
// int (C's implicit-int rule).
func (p *Parser) parseType() (*types.Type, error) {
	var storage types.Storage = types.Local
	var cvr types.Cvr
	var mod types.Mod
	var kind types.Kind
	haveKind := false
	isEnum := false
	var recordType *types.Type

loop:
	for {
		switch p.peek().Kind {
		case token.Const:
			p.advance()
			cvr |= types.Const
		case token.Volatile:
			p.advance()
			cvr |= types.Volatile
		case token.Restrict:
			p.advance()
			cvr |= types.Restrict
		case token.Extern:
			p.advance()
			storage = types.Extern
		case token.Static:
			p.advance()
			storage = types.StaticStorage
		case token.Register:
			p.advance()
			storage = types.Register
		case token.Auto:
			p.advance()
			storage = types.Auto
		case token.Signed:
			p.advance()
			if mod&types.Unsigned != 0 {
				return nil, p.errorf(diag.Type, "conflicting signed/unsigned modifiers")
			}
			mod |= types.Signed
		case token.Unsigned:
			p.advance()
			if mod&types.Signed != 0 {
				return nil, p.errorf(diag.Type, "conflicting signed/unsigned modifiers")
			}
			mod |= types.Unsigned
		case token.Short:
			p.advance()
			if mod&types.Long != 0 {
				return nil, p.errorf(diag.Type, "conflicting short/long modifiers")
			}
			mod |= types.Short
		case token.Long:
			p.advance()
			if mod&types.Short != 0 {
				return nil, p.errorf(diag.Type, "conflicting short/long modifiers")
			}
			mod |= types.Long
		case token.VoidType, token.CharType, token.IntType, token.FloatType, token.DoubleType:
			if haveKind {
				return nil, p.errorf(diag.Type, "multiple base types in one declaration")
			}
			k, _ := fundamentalKind(p.peek().Kind)
			kind = k
			haveKind = true
			p.advance()
		case token.Struct, token.Union:
			if haveKind {
				return nil, p.errorf(diag.Type, "multiple base types in one declaration")
			}
			t, err := p.parseStructOrUnionType()
			if err != nil {
				return nil, err
			}
			recordType = t
			kind = t.Kind
			haveKind = true
		case token.Enum:
			if haveKind {
				return nil, p.errorf(diag.Type, "multiple base types in one declaration")
			}
			t, err := p.parseEnumType()
			if err != nil {
				return nil, err
			}
			recordType = t
			kind = types.Int
			haveKind = true
			isEnum = true
		case token.Id:
			if haveKind {
				break loop
			}
			obj := p.scope.Lookup(p.peek().Str)
			td, ok := obj.(*ast.Typedef)
			if !ok {
				break loop
			}
			p.advance()
			recordType = td.Type
			kind = td.Type.Kind
			haveKind = true
		default:
			break loop
		}
	}

	if !haveKind {
		kind = types.Int // implicit-int rule
	}
	if mod != 0 && kind != types.Int && kind != types.Char {
		return nil, p.errorf(diag.Type, "modifier not valid on %s", kind)
	}

	// A struct/union body or a typedef name can carry a payload (member
	// list, pointee, array length, function signature) that a bare
	// Kind+Size copy would drop; types.Merge carries the whole Type
	// forward and only overlays this declaration's own Mod/Cvr, matching
	// how it already reconciles a declarator's modifiers against a named
	// type elsewhere.
	var t *types.Type
	switch {
	case isEnum:
		t = &types.Type{Kind: types.Int, Mod: mod, Cvr: cvr, Storage: storage, Size: types.ScalarSize(types.Int, mod)}
	case recordType != nil:
		t = types.Merge(&types.Type{Mod: mod, Cvr: cvr}, recordType)
		t.Storage = storage
	default:
		t = &types.Type{Kind: kind, Mod: mod, Cvr: cvr, Storage: storage, Size: types.ScalarSize(kind, mod)}
	}
	return t, nil
}

// parseStructOrUnionType parses `struct|union [Tag] [{ members }]`.
func (p *Parser) parseStructOrUnionType() (*types.Type, error) {
	keyword := p.advance().Kind // Struct or Union
	kind := types.Struct
	if keyword == token.Union {
		kind = types.Union
	}

	var name string
	if id, ok := p.accept(token.Id); ok {
		name = id.Str
	}

	if !p.at(token.ScopeBegin) {
		if name == "" {
			return nil, p.errorf(diag.Parse, "expected struct/union tag or body")
		}
		if t, sameKind := p.scope.LookupRecord(name, kind); t != nil {
			if !sameKind {
				return nil, p.errorf(diag.Type, "%q previously declared as a different kind of tag", name)
			}
			return t, nil
		}
		// Forward reference: allocate an incomplete record type now,
		// completed later if a body is seen under the same tag.
		t := &types.Type{Kind: kind}
		p.scope.Records[name] = t
		return t, nil
	}

	p.advance() // '{'
	t := &types.Type{Kind: kind}
	offset := 0
	maxAlign := 1
	for !p.at(token.ScopeEnd) {
		memberType, err := p.parseType()
		if err != nil {
			return nil, err
		}
		for {
			memberType2, memberName, err := p.parseDeclarator(memberType)
			if err != nil {
				return nil, err
			}
			align := memberType2.Size
			if align < 1 {
				align = 1
			}
			if align > maxAlign {
				maxAlign = align
			}
			offset = types.AlignUp(offset, align)
			t.Members = append(t.Members, types.Member{Name: memberName, Type: memberType2, Offset: offset})
			offset += memberType2.Size
			if _, ok := p.accept(token.Comma); ok {
				continue
			}
			break
		}
		if _, err := p.expect(token.Semicolon); err != nil {
			return nil, err
		}
	}
	p.advance() // '}'
	t.Size = types.AlignUp(offset, maxAlign)
	if name != "" {
		if existing, sameKind := p.scope.LookupRecord(name, kind); existing != nil && !sameKind {
			return nil, p.errorf(diag.Type, "%q previously declared as a different kind of tag", name)
		}
		p.scope.Records[name] = t
	}
	return t, nil
}

// parseEnumType parses `enum [Tag] [{ enumerators }]`, folding
// constants exactly as parse_enum_scope_statement does: an explicit
// initializer or previous+1 starting at 0, widening to an 8-byte
// underlying type if any value exceeds INT32_MAX (see DESIGN.md).
func (p *Parser) parseEnumType() (*types.Type, error) {
	p.advance() // 'enum'
	var name string
	if id, ok := p.accept(token.Id); ok {
		name = id.Str
	}
	if !p.at(token.ScopeBegin) {
		if name != "" {
			if t, sameKind := p.scope.LookupRecord(name, types.Int); t != nil {
				if !sameKind {
					return nil, p.errorf(diag.Type, "%q previously declared as a different kind of tag", name)
				}
				return t, nil
			}
		}
		return nil, p.errorf(diag.Parse, "expected enum body")
	}
	p.advance() // '{'

	underlying := types.Int
	mod := types.Mod(0)
	var next int64
	var enumerators []*ast.Variable
	for !p.at(token.ScopeEnd) {
		id, err := p.expect(token.Id)
		if err != nil {
			return nil, err
		}
		value := next
		if _, ok := p.accept(token.Assign); ok {
			expr, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			value, err = p.evalConstInt(expr)
			if err != nil {
				return nil, err
			}
		}
		if value > 1<<31-1 || value < -(1<<31) {
			mod = types.Long
		}
		next = value + 1
		v := p.ast.NewVariable(&ast.Variable{Name: id.Str, Type: types.NewScalar(underlying, mod), Constant: true})
		p.scope.Objects[id.Str] = &constantVariable{v, value}
		enumerators = append(enumerators, v)
		if _, ok := p.accept(token.Comma); ok {
			continue
		}
		break
	}
	if _, err := p.expect(token.ScopeEnd); err != nil {
		return nil, err
	}
	for _, v := range enumerators {
		v.Type = types.NewScalar(underlying, mod)
	}
	t := &types.Type{Kind: types.Int, Mod: mod, Size: types.ScalarSize(types.Int, mod)}
	if name != "" {
		if existing, sameKind := p.scope.LookupRecord(name, types.Int); existing != nil && !sameKind {
			return nil, p.errorf(diag.Type, "%q previously declared as a different kind of tag", name)
		}
		p.scope.Records[name] = t
	}
	return t, nil
}

// constantVariable wraps an enum constant so the object table can
// still bind it as a Variable (for IdExpression lookups) while the
// constant evaluator can recover its folded value directly.
type constantVariable struct {
	*ast.Variable
	Value int64
}

// parseDeclarator applies pointer and array suffixes around a name to
// base, grounded on parse_declarator/parse_pointer_declarator/
// parse_array_declarator. Each `*` wraps base in a Pointer type; each
// `[N]` wraps the current type in an Array type (innermost dimension
// first, so `int xs[3][4]` parses outer-to-inner as Array(3,
// Array(4, int)) per DESIGN.md's multidimensional-array resolution.
func (p *Parser) parseDeclarator(base *types.Type) (*types.Type, string, error) {
	t := base
	for {
		if _, ok := p.accept(token.Star); ok {
			t = types.NewPointer(t)
			continue
		}
		break
	}
	var name string
	if id, ok := p.accept(token.Id); ok {
		name = id.Str
	}
	var dims []int
	for {
		if _, ok := p.accept(token.CrochetBegin); !ok {
			break
		}
		length := 0
		if !p.at(token.CrochetEnd) {
			expr, err := p.parseTernary()
			if err != nil {
				return nil, "", err
			}
			v, err := p.evalConstInt(expr)
			if err != nil {
				return nil, "", err
			}
			length = int(v)
		}
		if _, err := p.expect(token.CrochetEnd); err != nil {
			return nil, "", err
		}
		dims = append(dims, length)
	}
	for i := len(dims) - 1; i >= 0; i-- {
		t = types.NewArray(t, dims[i])
	}
	return t, name, nil
}
