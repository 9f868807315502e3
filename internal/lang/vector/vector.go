// Package vector implements the fixed-width vector language: elementwise
// arithmetic, dot product, multiply-accumulate, sqrt, and sgn over
// []float64 values, with scalars as a same-width broadcast special case,
// per SPEC_FULL.md §4 "lang/vector".
package vector

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"eqsat/internal/cost"
	"eqsat/internal/egraph"
	"eqsat/internal/lang"
	"eqsat/internal/sx"
)

// Value is either a scalar or a fixed-Width vector; dot/reductions produce
// scalars from vector operands, so both shapes must fit in one analysis
// value type.
type Value struct {
	IsVector bool
	Scalar   float64
	Vector   []float64
}

func scalar(f float64) Value  { return Value{Scalar: f} }
func vec(v []float64) Value   { return Value{IsVector: true, Vector: v} }

const epsilon = 1e-9

// Language is the vector language descriptor; Width is the fixed vector
// length every Vector value and cvec sample shares.
type Language struct {
	Samples int
	Width   int
}

func New(samples, width int) *Language { return &Language{Samples: samples, Width: width} }

func (l *Language) Name() string { return "vector" }

func (l *Language) SampleCount() int { return l.Samples }

func (l *Language) IsVariable(op string) bool {
	return strings.HasPrefix(op, "v") && isDigits(op[1:])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (l *Language) Equal(a, b Value) bool {
	if a.IsVector != b.IsVector {
		return false
	}
	if !a.IsVector {
		return math.Abs(a.Scalar-b.Scalar) < epsilon
	}
	if len(a.Vector) != len(b.Vector) {
		return false
	}
	for i := range a.Vector {
		if math.Abs(a.Vector[i]-b.Vector[i]) >= epsilon {
			return false
		}
	}
	return true
}

func (l *Language) elementwise(a, b Value, f func(x, y float64) float64) (Value, bool) {
	switch {
	case a.IsVector && b.IsVector:
		if len(a.Vector) != len(b.Vector) {
			return Value{}, false
		}
		out := make([]float64, len(a.Vector))
		for i := range out {
			out[i] = f(a.Vector[i], b.Vector[i])
		}
		return vec(out), true
	case a.IsVector:
		out := make([]float64, len(a.Vector))
		for i := range out {
			out[i] = f(a.Vector[i], b.Scalar)
		}
		return vec(out), true
	case b.IsVector:
		out := make([]float64, len(b.Vector))
		for i := range out {
			out[i] = f(a.Scalar, b.Vector[i])
		}
		return vec(out), true
	default:
		return scalar(f(a.Scalar, b.Scalar)), true
	}
}

func (l *Language) Eval(op string, args []egraph.Option[Value]) egraph.Option[Value] {
	for _, a := range args {
		if !a.Valid {
			return egraph.None[Value]()
		}
	}

	if len(args) == 0 {
		if v, ok := constantValue(op); ok {
			return egraph.Some(v)
		}
		return egraph.None[Value]()
	}

	if len(args) == 1 {
		a := args[0].Value
		switch op {
		case "sqrt":
			return mapUnary(a, func(x float64) (float64, bool) {
				if x < 0 {
					return 0, false
				}
				return math.Sqrt(x), true
			})
		case "sgn":
			return mapUnary(a, func(x float64) (float64, bool) { return sgn(x), true })
		case "neg":
			return mapUnary(a, func(x float64) (float64, bool) { return -x, true })
		}
	}

	if len(args) == 2 {
		a, b := args[0].Value, args[1].Value
		switch op {
		case "+":
			v, ok := l.elementwise(a, b, func(x, y float64) float64 { return x + y })
			return optOf(v, ok)
		case "-":
			v, ok := l.elementwise(a, b, func(x, y float64) float64 { return x - y })
			return optOf(v, ok)
		case "*":
			v, ok := l.elementwise(a, b, func(x, y float64) float64 { return x * y })
			return optOf(v, ok)
		case "/":
			ok := true
			v, okShape := l.elementwise(a, b, func(x, y float64) float64 {
				if y == 0 {
					ok = false
					return 0
				}
				return x / y
			})
			return optOf(v, ok && okShape)
		case "dot":
			if !a.IsVector || !b.IsVector || len(a.Vector) != len(b.Vector) {
				return egraph.None[Value]()
			}
			var sum float64
			for i := range a.Vector {
				sum += a.Vector[i] * b.Vector[i]
			}
			return egraph.Some(scalar(sum))
		}
	}

	if len(args) == 3 && op == "mac" {
		a, b, c := args[0].Value, args[1].Value, args[2].Value
		prod, ok := l.elementwise(a, b, func(x, y float64) float64 { return x * y })
		if !ok {
			return egraph.None[Value]()
		}
		sum, ok := l.elementwise(prod, c, func(x, y float64) float64 { return x + y })
		return optOf(sum, ok)
	}

	return egraph.None[Value]()
}

func optOf(v Value, ok bool) egraph.Option[Value] {
	if !ok {
		return egraph.None[Value]()
	}
	return egraph.Some(v)
}

func mapUnary(a Value, f func(float64) (float64, bool)) egraph.Option[Value] {
	if a.IsVector {
		out := make([]float64, len(a.Vector))
		for i, x := range a.Vector {
			y, ok := f(x)
			if !ok {
				return egraph.None[Value]()
			}
			out[i] = y
		}
		return egraph.Some(vec(out))
	}
	y, ok := f(a.Scalar)
	if !ok {
		return egraph.None[Value]()
	}
	return egraph.Some(scalar(y))
}

func sgn(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func constantValue(op string) (Value, bool) {
	v, err := strconv.ParseFloat(op, 64)
	if err != nil {
		return Value{}, false
	}
	return scalar(v), true
}

var opCost = map[string]cost.Cost{
	"+": 1, "-": 1, "*": 2, "/": 4, "neg": 1,
	"dot": 3, "mac": 2, "sqrt": 5, "sgn": 1,
}

func (l *Language) OpCost(op string, arity int) cost.Cost {
	if arity == 0 {
		return 1
	}
	if c, ok := opCost[op]; ok {
		return c
	}
	return cost.Cost(arity)
}

func (l *Language) MkVar(index int) *sx.Node { return sx.Leaf(fmt.Sprintf("v%d", index)) }

func (l *Language) ToVar(op string) (int, bool) {
	if !l.IsVariable(op) {
		return 0, false
	}
	n, err := strconv.Atoi(op[1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (l *Language) MkConstant(op string) (Value, bool) { return constantValue(op) }

func (l *Language) ToConstant(v Value) string {
	if !v.IsVector {
		return strconv.FormatFloat(v.Scalar, 'g', -1, 64)
	}
	parts := make([]string, len(v.Vector))
	for i, x := range v.Vector {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (l *Language) IsValid(n *sx.Node) bool {
	if n.IsLeaf() {
		return true
	}
	if n.Op == "/" && len(n.Children) == 2 && n.Children[1].IsLeaf() && !n.Children[1].IsMeta {
		if v, ok := constantValue(n.Children[1].Leaf); ok && v.Scalar == 0 {
			return false
		}
	}
	for _, c := range n.Children {
		if !l.IsValid(c) {
			return false
		}
	}
	return true
}

func (l *Language) InitSynth(numVars int) []lang.Sample[Value] {
	samples := make([]lang.Sample[Value], numVars)
	structured := []float64{-10, -5, -2, -1, 0, 1, 2, 5, 10}
	for v := 0; v < numVars; v++ {
		cvec := make([]egraph.Option[Value], l.Samples)
		for i := 0; i < l.Samples; i++ {
			if i%2 == 0 {
				var s float64
				if i/2 < len(structured) {
					s = structured[i/2] + float64(v)
				} else {
					s = float64((i*13+v*7)%19 - 9)
				}
				cvec[i] = egraph.Some(scalar(s))
			} else {
				vv := make([]float64, l.Width)
				for k := range vv {
					vv[k] = float64((i*31+k*11+v*17)%17 - 8)
				}
				cvec[i] = egraph.Some(vec(vv))
			}
		}
		samples[v] = lang.Sample[Value]{Name: fmt.Sprintf("v%d", v), Cvec: cvec}
	}
	return samples
}

var binaryOps = []string{"+", "-", "*", "/", "dot"}
var unaryOps = []string{"neg", "sqrt", "sgn"}

func (l *Language) MakeLayer(classes []egraph.ClassID, exact map[egraph.ClassID]bool) func(func(lang.Layer) bool) {
	return func(yield func(lang.Layer) bool) {
		for _, op := range unaryOps {
			for _, a := range classes {
				if exact[a] {
					continue
				}
				if !yield(lang.Layer{Op: op, Children: []egraph.ClassID{a}}) {
					return
				}
			}
		}
		for _, op := range binaryOps {
			for _, a := range classes {
				for _, b := range classes {
					if exact[a] && exact[b] {
						continue
					}
					if !yield(lang.Layer{Op: op, Children: []egraph.ClassID{a, b}}) {
						return
					}
				}
			}
		}
		for _, a := range classes {
			for _, b := range classes {
				for _, c := range classes {
					if exact[a] && exact[b] && exact[c] {
						continue
					}
					if !yield(lang.Layer{Op: "mac", Children: []egraph.ClassID{a, b, c}}) {
						return
					}
				}
			}
		}
	}
}
