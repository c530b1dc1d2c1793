package ast

import "github.com/qcc-project/qcc/internal/types"

// StatementKind discriminates the Statement tagged variant, grounded
// on statement.hpp's Statement_Kind bitmask (kept here as a plain enum
// since nothing in this package tests statement kinds as a mask the
// way type kinds are tested).
type StatementKind int

const (
	StmtScope StatementKind = iota
	StmtFunction
	StmtStruct
	StmtDefine
	StmtExpression
	StmtCondition
	StmtWhile
	StmtFor
	StmtReturn
	StmtBreak
	StmtContinue
)

// Statement is any node that can appear in a Scope's Body.
type Statement interface {
	StmtKind() StatementKind
}

// ScopeStatement introduces a nested lexical block ({ ... }).
type ScopeStatement struct {
	Scope *Scope
}

func (s *ScopeStatement) StmtKind() StatementKind { return StmtScope }

// FunctionStatement is a function prototype or definition.
type FunctionStatement struct {
	Function *Function
	HasBody  bool
}

func (s *FunctionStatement) StmtKind() StatementKind { return StmtFunction }

// StructStatement introduces a struct/union/enum type declaration.
type StructStatement struct {
	Type *types.Type
}

func (s *StructStatement) StmtKind() StatementKind { return StmtStruct }

// DefineStatement binds a Variable to an optional initializer
// Expression and chains to the next comma-separated definition, e.g.
// `int a = 1, b, c = 2;` grounded on parser.cpp's
// parse_comma_define_statement linked-list shape.
type DefineStatement struct {
	Variable    *Variable
	Initializer Expression
	Next        *DefineStatement
}

func (s *DefineStatement) StmtKind() StatementKind { return StmtDefine }

// ExpressionStatement is a bare expression used for its side effects.
type ExpressionStatement struct {
	Expression Expression
}

func (s *ExpressionStatement) StmtKind() StatementKind { return StmtExpression }

// ConditionStatement is `if (bool) s1 [else s2]`.
type ConditionStatement struct {
	Boolean Expression
	Then    Statement
	Else    Statement // nil if no else clause
}

func (s *ConditionStatement) StmtKind() StatementKind { return StmtCondition }

// WhileStatement is `while (bool) s`.
type WhileStatement struct {
	Boolean   Expression
	Statement Statement
}

func (s *WhileStatement) StmtKind() StatementKind { return StmtWhile }

// ForStatement is `for (init; bool; loop) s`. Unlike the original's
// buggy parser (which separated the three clauses with
// Token_ParenBegin), qcc's parser requires semicolons; see
// internal/parser and DESIGN.md.
type ForStatement struct {
	Init      Statement // ExpressionStatement or DefineStatement, may be nil
	Boolean   Expression
	Loop      Expression
	Statement Statement
}

func (s *ForStatement) StmtKind() StatementKind { return StmtFor }

// ReturnStatement returns from the enclosing Function, casting
// Expression to the function's declared return type.
type ReturnStatement struct {
	Expression Expression
	Function   *Function
}

func (s *ReturnStatement) StmtKind() StatementKind { return StmtReturn }

// JumpStatement is `break;` or `continue;`.
type JumpStatement struct {
	Kind StatementKind // StmtBreak or StmtContinue
}

func (s *JumpStatement) StmtKind() StatementKind { return s.Kind }
