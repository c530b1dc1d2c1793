package ast

import (
	"github.com/qcc-project/qcc/internal/token"
	"github.com/qcc-project/qcc/internal/types"
)

// ExpressionKind discriminates the Expression tagged variant. The set
// is wider than expression.hpp alone describes: parser.cpp and
// x86.cpp's actual implementation introduce Ref/Deref/Address/Assign/
// Cast/Dot as distinct node kinds beyond what that header's earlier
// snapshot has, and that wider set is what this package implements.
type ExpressionKind int

const (
	ExprUnary ExpressionKind = iota
	ExprBinary
	ExprTernary
	ExprInvoke
	ExprComma
	ExprNested
	ExprId
	ExprRef
	ExprAssign
	ExprCast
	ExprDot
	ExprDeref
	ExprAddress
	ExprString
	ExprInt
	ExprFloat
)

// Expression is any node that yields a value and a Type.
type Expression interface {
	ExprKind() ExpressionKind
	Type() *types.Type
}

// Order distinguishes prefix (++x) from postfix (x++) unary use.
type Order int

const (
	Prefix Order = iota
	Postfix
)

// UnaryExpression is a prefix/postfix unary operator: -, !, ~, ++, --.
type UnaryExpression struct {
	Operation token.Kind
	Operand   Expression
	Order     Order
	ResultType *types.Type
}

func (e *UnaryExpression) ExprKind() ExpressionKind { return ExprUnary }
func (e *UnaryExpression) Type() *types.Type        { return e.ResultType }

// BinaryExpression is `lhs op rhs`, including comparisons and
// bitwise/shift operators; compound assignment desugars through
// typechecking a BinaryExpression before wrapping it in an
// AssignExpression (see internal/parser and DESIGN.md).
type BinaryExpression struct {
	Operation  token.Kind
	Lhs, Rhs   Expression
	ResultType *types.Type
}

func (e *BinaryExpression) ExprKind() ExpressionKind { return ExprBinary }
func (e *BinaryExpression) Type() *types.Type        { return e.ResultType }

// TernaryExpression is `boolean ? then : otherwise`.
type TernaryExpression struct {
	Boolean    Expression
	Then       Expression
	Else       Expression
	ResultType *types.Type
}

func (e *TernaryExpression) ExprKind() ExpressionKind { return ExprTernary }
func (e *TernaryExpression) Type() *types.Type        { return e.ResultType }

// InvokeExpression calls Function with Arguments already cast to each
// parameter's declared type by the parser.
type InvokeExpression struct {
	Function   *Function
	Arguments  []Expression
	ResultType *types.Type
}

func (e *InvokeExpression) ExprKind() ExpressionKind { return ExprInvoke }
func (e *InvokeExpression) Type() *types.Type        { return e.ResultType }

// CommaExpression is `lhs, rhs`, evaluating to rhs's type.
type CommaExpression struct {
	Lhs, Rhs Expression
}

func (e *CommaExpression) ExprKind() ExpressionKind { return ExprComma }
func (e *CommaExpression) Type() *types.Type        { return e.Rhs.Type() }

// NestedExpression is a parenthesized sub-expression, kept as its own
// node (rather than flattened away) so precedence-sensitive emitters
// and diagnostics can point at the parenthesized span specifically.
type NestedExpression struct {
	Operand Expression
}

func (e *NestedExpression) ExprKind() ExpressionKind { return ExprNested }
func (e *NestedExpression) Type() *types.Type        { return e.Operand.Type() }

// IdExpression references a bound Variable, or a Function used as a
// call target, by name. Exactly one of Variable/Function is set; a
// Function reference reports a synthetic FuncPointer type since qcc
// has no first-class function-value type of its own.
type IdExpression struct {
	Variable *Variable
	Function *Function
	Name     string
}

func (e *IdExpression) ExprKind() ExpressionKind { return ExprId }
func (e *IdExpression) Type() *types.Type {
	if e.Function != nil {
		return &types.Type{Kind: types.FuncPointer, Return: e.Function.ReturnType, Size: 8}
	}
	return e.Variable.Type
}

// RefExpression is a synthetic node the parser inserts to bind an
// invoke argument to its matching parameter Variable before wrapping
// it in an AssignExpression, grounded on parser.cpp's
// parse_argument_expression / parse_ref_expression.
type RefExpression struct {
	Variable *Variable
}

func (e *RefExpression) ExprKind() ExpressionKind { return ExprRef }
func (e *RefExpression) Type() *types.Type        { return e.Variable.Type }

// AssignExpression is `lhs = rhs` (lhs must be an lvalue).
type AssignExpression struct {
	Lhs, Rhs Expression
}

func (e *AssignExpression) ExprKind() ExpressionKind { return ExprAssign }
func (e *AssignExpression) Type() *types.Type        { return e.Lhs.Type() }

// CastExpression converts Operand to Target explicitly or implicitly
// (the parser inserts one whenever cast_if_needed finds cost > Same).
type CastExpression struct {
	Operand Expression
	Target  *types.Type
}

func (e *CastExpression) ExprKind() ExpressionKind { return ExprCast }
func (e *CastExpression) Type() *types.Type        { return e.Target }

// DotExpression is `record.member` (and the desugared form of
// `record->member`, see SPEC_FULL.md's arrow-sugar note).
type DotExpression struct {
	Record     Expression
	Member     string
	Offset     int
	ResultType *types.Type
}

func (e *DotExpression) ExprKind() ExpressionKind { return ExprDot }
func (e *DotExpression) Type() *types.Type         { return e.ResultType }

// DerefExpression is `*operand` (operand must be Pointer or Array).
type DerefExpression struct {
	Operand Expression
}

func (e *DerefExpression) ExprKind() ExpressionKind { return ExprDeref }
func (e *DerefExpression) Type() *types.Type {
	return e.Operand.Type().Pointee
}

// AddressExpression is `&operand` (operand must be an lvalue).
type AddressExpression struct {
	Operand    Expression
	ResultType *types.Type
}

func (e *AddressExpression) ExprKind() ExpressionKind { return ExprAddress }
func (e *AddressExpression) Type() *types.Type        { return e.ResultType }

// StringExpression is a string literal, typed as a char array whose
// length includes the trailing NUL.
type StringExpression struct {
	Value      string
	ResultType *types.Type
}

func (e *StringExpression) ExprKind() ExpressionKind { return ExprString }
func (e *StringExpression) Type() *types.Type        { return e.ResultType }

// IntFlag marks integer-literal suffixes (u/l/ll).
type IntFlag int

const (
	IntFlagNone IntFlag = 0
	IntFlagU    IntFlag = 1 << iota
	IntFlagL
	IntFlagLL
)

// IntExpression is an integer literal (decimal, hex, binary, or char).
type IntExpression struct {
	Value      int64
	Flags      IntFlag
	ResultType *types.Type
}

func (e *IntExpression) ExprKind() ExpressionKind { return ExprInt }
func (e *IntExpression) Type() *types.Type        { return e.ResultType }

// FloatExpression is a float/double literal.
type FloatExpression struct {
	Value      float64
	ResultType *types.Type
}

func (e *FloatExpression) ExprKind() ExpressionKind { return ExprFloat }
func (e *FloatExpression) Type() *types.Type        { return e.ResultType }
