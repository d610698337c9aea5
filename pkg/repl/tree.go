package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"autumn/pkg/ast"
)

// RenderTree draws the syntax tree of program.
func RenderTree(w io.Writer, program *ast.Program) error {
	root := putils.TreeFromLeveledList(leveledNodes(program))
	return pterm.DefaultTree.WithRoot(root).WithWriter(w).Render()
}

// leveledNodes flattens the AST into a leveled list, one item per node.
func leveledNodes(program *ast.Program) pterm.LeveledList {
	var ll pterm.LeveledList
	ast.Walk(program, func(n ast.Node, depth int) bool {
		ll = append(ll, pterm.LeveledListItem{Level: depth, Text: nodeLabel(n)})
		return true
	})
	return ll
}

func nodeLabel(node ast.Node) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", node), "*ast.")
	switch n := node.(type) {
	case *ast.Identifier, *ast.IntegerLiteral, *ast.Boolean:
		return name + " " + n.String()
	case *ast.StringLiteral:
		return fmt.Sprintf("%s %q", name, n.Value)
	case *ast.PrefixExpression:
		return name + " " + n.Operator
	case *ast.InfixExpression:
		return name + " " + n.Operator
	}
	return name
}
