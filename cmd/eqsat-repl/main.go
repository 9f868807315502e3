// Command eqsat-repl is an interactive driver over a live e-graph:
// :add, :union, :extract, :rule, :run, :quit.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"eqsat/internal/egraph"
	"eqsat/internal/extract"
	"eqsat/internal/lang"
	"eqsat/internal/lang/scalar"
	"eqsat/internal/lang/vector"
	"eqsat/internal/pattern"
	"eqsat/internal/runner"
	"eqsat/internal/sx"
)

const prompt = "eqsat> "

func main() {
	langName := flag.String("lang", "scalar", "language: scalar|vector")
	flag.Parse()

	switch *langName {
	case "scalar":
		run(scalar.New(1))
	case "vector":
		run(vector.New(1, 4))
	default:
		color.Red("unknown language %q", *langName)
		os.Exit(1)
	}
}

func run[V any](l lang.Language[V]) {
	g := egraph.New[V](l)
	var ruleset []pattern.Rewrite[V]

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(prompt)
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd := fields[0]
		rest := strings.TrimSpace(strings.TrimPrefix(line, cmd))

		switch cmd {
		case ":quit", ":exit":
			return
		case ":add":
			handleAdd(g, rest)
		case ":union":
			handleUnion(g, fields[1:])
		case ":extract":
			handleExtract(g, l, fields[1:])
		case ":rule":
			handleRule(&ruleset, rest)
		case ":run":
			handleRun(g, ruleset)
		case ":help":
			printHelp()
		default:
			color.Red("unknown command %q (try :help)", cmd)
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  :add <sexpr>                add a ground term, prints its class id
  :union <id> <id>            merge two classes and rebuild
  :extract <id>                print the cheapest term in a class
  :rule <name> <lhs> <rhs>     add a rewrite rule (patterns use ?a, ?b, ...)
  :run                          saturate with the accepted ruleset
  :quit                         exit`)
}

func handleAdd[V any](g *egraph.EGraph[V], src string) {
	node, err := sx.Parse("<repl>", src)
	if err != nil {
		color.Red("parse error: %s", err)
		return
	}
	expr, err := egraph.FromNode(node)
	if err != nil {
		color.Red("%s", err)
		return
	}
	id := g.AddRecExpr(expr)
	if err := g.Rebuild(); err != nil {
		color.Red("%s", err)
		return
	}
	color.Green("class %d", id)
}

func handleUnion[V any](g *egraph.EGraph[V], args []string) {
	if len(args) != 2 {
		color.Red(":union requires two class ids")
		return
	}
	a, errA := strconv.Atoi(args[0])
	b, errB := strconv.Atoi(args[1])
	if errA != nil || errB != nil {
		color.Red("class ids must be integers")
		return
	}
	merged, err := g.Union(egraph.ClassID(a), egraph.ClassID(b))
	if err != nil {
		color.Red("fatal: %s", err)
		return
	}
	if err := g.Rebuild(); err != nil {
		color.Red("fatal: %s", err)
		return
	}
	color.Green("merged=%v", merged)
}

func handleExtract[V any](g *egraph.EGraph[V], l lang.Language[V], args []string) {
	if len(args) != 1 {
		color.Red(":extract requires one class id")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		color.Red("class id must be an integer")
		return
	}
	ex := extract.New(g, l)
	expr, c, err := ex.Extract(egraph.ClassID(id))
	if err != nil {
		color.Red("%s", err)
		return
	}
	color.Green("%s  (cost %v)", expr.String(), c)
}

func handleRule[V any](ruleset *[]pattern.Rewrite[V], args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		color.Red(":rule requires <name> <lhs> <rhs>")
		return
	}
	name := fields[0]
	nodes, err := sx.ParseAll("<repl>", strings.TrimSpace(strings.TrimPrefix(args, name)))
	if err != nil {
		color.Red("pattern parse error: %s", err)
		return
	}
	if len(nodes) != 2 {
		color.Red(":rule requires <name> <lhs> <rhs>")
		return
	}
	lhsNode, rhsNode := nodes[0], nodes[1]
	*ruleset = append(*ruleset, pattern.NewRewrite[V](name, pattern.New(lhsNode), pattern.New(rhsNode)))
	color.Green("added rule %q (%d active)", name, len(*ruleset))
}

func handleRun[V any](g *egraph.EGraph[V], ruleset []pattern.Rewrite[V]) {
	r := runner.New[V]()
	if err := r.Run(g, ruleset); err != nil {
		color.Red("%s", err)
		return
	}
	color.Green("stop: %s, iterations: %d, classes: %d", r.StopReason, len(r.Reports), g.NumClasses())
}
