// Package parser implements qcc's single-pass recursive-descent parser
// and type checker: declarations and expressions are type-checked as
// they are parsed, rather than over a separate tree-walk, grounded on
// the original implementation's parser.hpp/parser.cpp. Constant
// folding, lvalue classification, and the `for`/`align_up` fixes
// described in DESIGN.md all live here and in internal/alloc.
package parser

import (
	"github.com/qcc-project/qcc/internal/ast"
	"github.com/qcc-project/qcc/internal/config"
	"github.com/qcc-project/qcc/internal/diag"
	"github.com/qcc-project/qcc/internal/lex"
	"github.com/qcc-project/qcc/internal/token"
	"github.com/qcc-project/qcc/internal/trace"
	"github.com/qcc-project/qcc/internal/types"
)

// Parser walks a pre-tokenized buffer, building an *ast.Ast whose
// statements and expressions are already type-checked.
type Parser struct {
	toks   []token.Token
	pos    int
	source string

	ast   *ast.Ast
	scope *ast.Scope
	fn    *ast.Function // innermost enclosing function, for Return typing
	loop  int           // loop nesting depth, for break/continue validity

	cfg config.Options
	tr  *trace.Tracer
}

// Parse lexes and parses source in one call, returning a fully
// type-checked Ast.
func Parse(source string, cfg config.Options, tr *trace.Tracer) (*ast.Ast, error) {
	toks, err := lex.TokenizeAll(source)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks, source: source, cfg: cfg, tr: tr, ast: ast.NewAst()}
	p.scope = p.ast.TopScope
	return p.ast, p.parseTranslationUnit()
}

func (p *Parser) parseTranslationUnit() error {
	for p.peek().Kind != token.Eof {
		stmt, err := p.parseStatement()
		if err != nil {
			return err
		}
		if stmt != nil {
			p.scope.Body = append(p.scope.Body, stmt)
			p.ast.Statements = append(p.ast.Statements, stmt)
		}
	}
	return nil
}

// --- cursor -----------------------------------------------------------

func (p *Parser) peek() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if t.Kind != token.Eof {
		p.pos++
	}
	return t
}

func (p *Parser) at(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.peek().Kind == k {
			return true
		}
	}
	return false
}

func (p *Parser) accept(kind token.Kind) (token.Token, bool) {
	if p.peek().Kind == kind {
		return p.advance(), true
	}
	return token.Token{}, false
}

func (p *Parser) expect(kinds ...token.Kind) (token.Token, error) {
	if p.at(kinds...) {
		return p.advance(), nil
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return token.Token{}, p.errorf(diag.Parse, "expected %s, found %s %q", joinOr(names), p.peek().Kind, p.peek().Str)
}

func joinOr(names []string) string {
	s := ""
	for i, n := range names {
		if i > 0 {
			s += " or "
		}
		s += n
	}
	return s
}

func (p *Parser) errorf(category diag.Category, format string, args ...any) error {
	t := p.peek()
	length := len(t.Str)
	if length == 0 {
		length = 1
	}
	return diag.New(category, p.source, t.Offset, length, format, args...)
}

// --- scope context, mirrors parser.cpp's context_push/context_pop ----

func (p *Parser) pushScope() *ast.Scope {
	child := ast.NewScope(p.scope)
	p.scope = child
	p.tr.ContextPush("scope")
	return child
}

func (p *Parser) popScope() {
	p.tr.ContextPop("scope")
	p.scope = p.scope.Owner
}

// fundamentalKind maps a fundamental-type keyword token to its Kind.
func fundamentalKind(k token.Kind) (types.Kind, bool) {
	switch k {
	case token.VoidType:
		return types.Void, true
	case token.CharType:
		return types.Char, true
	case token.IntType:
		return types.Int, true
	case token.FloatType:
		return types.Float, true
	case token.DoubleType:
		return types.Double, true
	default:
		return 0, false
	}
}
