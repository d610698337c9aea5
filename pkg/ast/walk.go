package ast

// Walk visits node and its children in pre-order. fn receives the nesting
// depth of each node, starting at 0; returning false skips the node's children.
// Nil children (left behind by a failed parse) are not visited.
func Walk(node Node, fn func(n Node, depth int) bool) {
	walk(node, 0, fn)
}

func walk(node Node, depth int, fn func(Node, int) bool) {
	if isNil(node) || !fn(node, depth) {
		return
	}
	for _, child := range children(node) {
		walk(child, depth+1, fn)
	}
}

func children(node Node) []Node {
	var kids []Node
	switch n := node.(type) {
	case *Program:
		for _, s := range n.Statements {
			kids = append(kids, s)
		}
	case *BlockStatement:
		for _, s := range n.Statements {
			kids = append(kids, s)
		}
	case *LetStatement:
		kids = append(kids, n.Name, n.Value)
	case *ReturnStatement:
		kids = append(kids, n.ReturnValue)
	case *ExpressionStatement:
		kids = append(kids, n.Expression)
	case *PrefixExpression:
		kids = append(kids, n.Right)
	case *InfixExpression:
		kids = append(kids, n.Left, n.Right)
	case *IfExpression:
		kids = append(kids, n.Condition, n.Consequence)
		if n.Alternative != nil {
			kids = append(kids, n.Alternative)
		}
	case *FunctionLiteral:
		for _, p := range n.Parameters {
			kids = append(kids, p)
		}
		kids = append(kids, n.Body)
	case *CallExpression:
		kids = append(kids, n.Function)
		for _, a := range n.Arguments {
			kids = append(kids, a)
		}
	case *ArrayLiteral:
		for _, el := range n.Elements {
			kids = append(kids, el)
		}
	case *IndexExpression:
		kids = append(kids, n.Left, n.Index)
	case *HashLiteral:
		for _, pair := range n.Pairs {
			kids = append(kids, pair.Key, pair.Value)
		}
	}
	return kids
}

// isNil catches typed nil pointers stored in an interface.
func isNil(node Node) bool {
	if node == nil {
		return true
	}
	switch n := node.(type) {
	case *Identifier:
		return n == nil
	case *BlockStatement:
		return n == nil
	}
	return false
}
