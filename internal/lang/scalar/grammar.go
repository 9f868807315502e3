// Package scalar's program grammar: a small imperative surface syntax
// (assignments, if/else, while) over the same scalar arithmetic the
// e-graph understands, parsed with participle/v2 the way the teacher's
// grammar package parses its module/struct/function surface.
package scalar

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"eqsat/internal/sx"
)

// Program is a sequence of statements over scalar variables.
type Program struct {
	Stmts []*Stmt `@@*`
}

type Stmt struct {
	If     *IfStmt     `  @@`
	While  *WhileStmt  `| @@`
	Assign *AssignStmt `| @@`
}

type IfStmt struct {
	Cond *Expr   `"if" "(" @@ ")" "{"`
	Then []*Stmt `@@* "}"`
	Else []*Stmt `[ "else" "{" @@* "}" ]`
}

type WhileStmt struct {
	Cond *Expr   `"while" "(" @@ ")" "{"`
	Body []*Stmt `@@* "}"`
}

type AssignStmt struct {
	Name  string `@Ident "="`
	Value *Expr  `@@ ";"`
}

type Expr struct {
	Left *UnaryExpr `@@`
	Ops  []*BinOp   `{ @@ }`
}

type BinOp struct {
	Operator string     `@("||" | "&&" | "==" | "!=" | "<=" | ">=" | "<" | ">" | "+" | "-" | "*" | "/" | "%")`
	Right    *UnaryExpr `@@`
}

type UnaryExpr struct {
	Operator *string  `[ @("!" | "-") ]`
	Value    *Primary `@@`
}

type Primary struct {
	Number *string `  @(Int | Float)`
	Ident  *string `| @Ident`
	Parens *Expr   `| "(" @@ ")"`
}

var scalarLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Float", Pattern: `[0-9]+\.[0-9]+`, Action: nil},
		{Name: "Int", Pattern: `[0-9]+`, Action: nil},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
		{Name: "Operator", Pattern: `\|\||&&|==|!=|<=|>=|[-+*/%!=<>]`, Action: nil},
		{Name: "Punctuation", Pattern: `[(){};]`, Action: nil},
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`, Action: nil},
	},
})

func buildParser() (*participle.Parser[Program], error) {
	return participle.Build[Program](
		participle.Lexer(scalarLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(3),
	)
}

var parser = func() *participle.Parser[Program] {
	p, err := buildParser()
	if err != nil {
		panic(err)
	}
	return p
}()

// ParseProgram parses source into a Program AST.
func ParseProgram(source string) (*Program, error) {
	return parser.ParseString("<scalar-program>", source)
}

// binaryPrecedence mirrors the C-family precedence the grammar's flat
// BinOp list needs resolved after parsing (lowest first): the grammar
// itself, like the teacher's, doesn't encode precedence levels — it's
// applied afterward by shunting the flat operator list.
var binaryPrecedence = map[string]int{
	"||": 1, "&&": 2,
	"==": 3, "!=": 3, "<": 3, "<=": 3, ">": 3, ">=": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "%": 5,
}

// ToNode lowers an Expr's flat operator chain into a precedence-climbed
// sx.Node tree.
func (e *Expr) ToNode() *sx.Node {
	values := []*sx.Node{e.Left.ToNode()}
	ops := make([]string, 0, len(e.Ops))
	for _, op := range e.Ops {
		ops = append(ops, op.Operator)
		values = append(values, op.Right.ToNode())
	}
	return climb(values, ops)
}

// climb resolves a flat [v0, op0, v1, op1, v2, ...] chain into a tree by
// repeatedly folding the highest-precedence operator first.
func climb(values []*sx.Node, ops []string) *sx.Node {
	for len(ops) > 0 {
		best := 0
		for i, op := range ops {
			if binaryPrecedence[op] > binaryPrecedence[ops[best]] {
				best = i
			}
		}
		node := sx.App(ops[best], values[best], values[best+1])
		values = append(values[:best], append([]*sx.Node{node}, values[best+2:]...)...)
		ops = append(ops[:best], ops[best+1:]...)
	}
	return values[0]
}

func (u *UnaryExpr) ToNode() *sx.Node {
	n := u.Value.ToNode()
	if u.Operator == nil {
		return n
	}
	switch *u.Operator {
	case "-":
		return sx.App("neg", n)
	case "!":
		return sx.App("!", n)
	}
	return n
}

func (p *Primary) ToNode() *sx.Node {
	switch {
	case p.Number != nil:
		return sx.Leaf(*p.Number)
	case p.Ident != nil:
		return sx.Leaf(*p.Ident)
	case p.Parens != nil:
		return p.Parens.ToNode()
	default:
		return sx.Leaf("0")
	}
}

// Lower folds a program into a single expression by substituting each
// assignment's value for later uses of that variable, turning if/else into
// ite terms and while into a bounded unrolling (see MaxLoopTrips).
func (p *Program) Lower() (*sx.Node, error) {
	env := map[string]*sx.Node{}
	var last *sx.Node
	for _, stmt := range p.Stmts {
		if n := lowerStmt(stmt, env); n != nil {
			last = n
		}
	}
	if last == nil {
		return sx.Leaf("0"), nil
	}
	return last, nil
}

func lowerStmt(s *Stmt, env map[string]*sx.Node) *sx.Node {
	switch {
	case s.Assign != nil:
		v := substitute(s.Assign.Value.ToNode(), env)
		env[s.Assign.Name] = v
		return v
	case s.If != nil:
		cond := substitute(s.If.Cond.ToNode(), env)
		thenEnv := cloneEnv(env)
		var thenVal *sx.Node
		for _, st := range s.If.Then {
			if n := lowerStmt(st, thenEnv); n != nil {
				thenVal = n
			}
		}
		elseEnv := cloneEnv(env)
		var elseVal *sx.Node
		for _, st := range s.If.Else {
			if n := lowerStmt(st, elseEnv); n != nil {
				elseVal = n
			}
		}
		if thenVal == nil {
			thenVal = sx.Leaf("0")
		}
		if elseVal == nil {
			elseVal = sx.Leaf("0")
		}
		mergeBranch(env, cond, thenEnv, elseEnv)
		return sx.App("ite", cond, thenVal, elseVal)
	case s.While != nil:
		return lowerWhile(s.While, env)
	default:
		return nil
	}
}

// MaxLoopTrips bounds how many times lowerWhile unrolls a WhileStmt's body:
// a while loop has no finite term representation in general, so it is
// modeled as a fixed-depth chain of guarded iterations, matching a
// hardware loop with a trip-count cap rather than unbounded execution.
const MaxLoopTrips = 8

// lowerWhile unrolls s up to MaxLoopTrips times, guarding each iteration's
// effect on every touched variable with an ite on that iteration's
// condition so the loop stops taking effect once the condition goes false.
func lowerWhile(s *WhileStmt, env map[string]*sx.Node) *sx.Node {
	var last *sx.Node
	for trip := 0; trip < MaxLoopTrips; trip++ {
		cond := substitute(s.Cond.ToNode(), env)
		bodyEnv := cloneEnv(env)
		for _, st := range s.Body {
			if n := lowerStmt(st, bodyEnv); n != nil {
				last = n
			}
		}
		mergeBranch(env, cond, bodyEnv, cloneEnv(env))
	}
	if last == nil {
		return sx.Leaf("0")
	}
	return last
}

// mergeBranch updates base in place so that every variable touched by
// thenEnv or elseEnv resolves to ite(cond, thenEnv[k], elseEnv[k]),
// leaving variables neither branch touched untouched.
func mergeBranch(base map[string]*sx.Node, cond *sx.Node, thenEnv, elseEnv map[string]*sx.Node) {
	touched := map[string]bool{}
	for k := range thenEnv {
		touched[k] = true
	}
	for k := range elseEnv {
		touched[k] = true
	}
	for k := range touched {
		tv, tok := thenEnv[k]
		ev, eok := elseEnv[k]
		if !tok {
			tv = base[k]
		}
		if !eok {
			ev = base[k]
		}
		if nodeEqual(tv, ev) {
			base[k] = tv
			continue
		}
		base[k] = sx.App("ite", cond, tv, ev)
	}
}

func nodeEqual(a, b *sx.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}

func cloneEnv(env map[string]*sx.Node) map[string]*sx.Node {
	out := make(map[string]*sx.Node, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

func substitute(n *sx.Node, env map[string]*sx.Node) *sx.Node {
	if n.IsLeaf() {
		if v, ok := env[n.Leaf]; ok {
			return v
		}
		return n
	}
	children := make([]*sx.Node, len(n.Children))
	for i, c := range n.Children {
		children[i] = substitute(c, env)
	}
	return sx.App(n.Op, children...)
}
