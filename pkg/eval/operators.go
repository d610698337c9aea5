package eval

import (
	"autumn/pkg/object"
)

func evalPrefixExpression(operator string, right object.Object) object.Object {
	switch operator {
	case "!":
		return evalBangOperatorExpression(right)
	case "-":
		if right.Kind() != object.KindInteger {
			return object.NewError("unknown operator: -%s", right.Kind())
		}
		return object.NewInteger(-right.(*object.Integer).Value)
	default:
		return object.NewError("unknown operator: %s%s", operator, right.Kind())
	}
}

func evalBangOperatorExpression(right object.Object) object.Object {
	switch right {
	case object.TRUE:
		return object.FALSE
	case object.FALSE:
		return object.TRUE
	case object.NULL:
		return object.TRUE
	default:
		return object.FALSE
	}
}

// evalInfixExpression expects both operands forced.
func evalInfixExpression(operator string, left, right object.Object) object.Object {
	switch {
	case left.Kind() == object.KindInteger && right.Kind() == object.KindInteger:
		return evalIntegerInfixExpression(operator, left.(*object.Integer), right.(*object.Integer))
	case left.Kind() == object.KindString && right.Kind() == object.KindString:
		if operator != "+" {
			return unknownOperator(operator, left, right)
		}
		return &object.String{Value: left.(*object.String).Value + right.(*object.String).Value}
	case left.Kind() == object.KindArray && right.Kind() == object.KindArray:
		if operator != "+" {
			return unknownOperator(operator, left, right)
		}
		return concatArrays(left.(*object.Array), right.(*object.Array))
	case left.Kind() != right.Kind():
		return object.NewError("type mismatch: %s %s %s", left.Kind(), operator, right.Kind())
	case operator == "==":
		return object.NativeBool(left == right)
	case operator == "!=":
		return object.NativeBool(left != right)
	default:
		return unknownOperator(operator, left, right)
	}
}

func evalIntegerInfixExpression(operator string, left, right *object.Integer) object.Object {
	l, r := left.Value, right.Value
	switch operator {
	case "+":
		return object.NewInteger(l + r)
	case "-":
		return object.NewInteger(l - r)
	case "*":
		return object.NewInteger(l * r)
	case "/":
		if r == 0 {
			return object.NewError("division by zero: %d / 0", l)
		}
		return object.NewInteger(l / r)
	case "<":
		return object.NativeBool(l < r)
	case "<=":
		return object.NativeBool(l <= r)
	case ">":
		return object.NativeBool(l > r)
	case ">=":
		return object.NativeBool(l >= r)
	case "==":
		return object.NativeBool(l == r)
	case "!=":
		return object.NativeBool(l != r)
	default:
		return unknownOperator(operator, left, right)
	}
}

func concatArrays(left, right *object.Array) *object.Array {
	elements := make([]object.Object, 0, len(left.Elements)+len(right.Elements))
	elements = append(elements, left.Elements...)
	elements = append(elements, right.Elements...)
	return &object.Array{Elements: elements}
}

func unknownOperator(operator string, left, right object.Object) *object.Error {
	return object.NewError("unknown operator: %s %s %s", left.Kind(), operator, right.Kind())
}

// evalIndexExpression expects both operands forced.
func evalIndexExpression(left, index object.Object) object.Object {
	switch {
	case left.Kind() == object.KindArray && index.Kind() == object.KindInteger:
		return evalArrayIndexExpression(left.(*object.Array), index.(*object.Integer).Value)
	case left.Kind() == object.KindHash:
		return evalHashIndexExpression(left.(*object.Hash), index)
	default:
		return object.NewError("index operator not supported: %s", left.Kind())
	}
}

// evalArrayIndexExpression counts negative indices from the end. Indices out
// of range give null.
func evalArrayIndexExpression(array *object.Array, idx int64) object.Object {
	n := int64(len(array.Elements))
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return object.NULL
	}
	return array.Elements[idx]
}

func evalHashIndexExpression(hash *object.Hash, index object.Object) object.Object {
	key, ok := index.(object.Hashable)
	if !ok {
		return object.NewError("unusable as hash key: %s", index.Kind())
	}
	value, ok := hash.Get(key)
	if !ok {
		return object.NULL
	}
	return value
}
