package server

import (
	"autumn/pkg/object"
)

// toNative converts a value into something encoding/json can marshal.
// A hash whose keys are all strings becomes a JSON object. Any other hash
// becomes a list of {"key": k, "value": v} pairs, so that the keys 1 and "1"
// stay apart.
func toNative(obj object.Object) interface{} {
	switch obj := object.Force(obj).(type) {
	case nil:
		return nil
	case *object.Integer:
		return obj.Value
	case *object.String:
		return obj.Value
	case *object.Boolean:
		return obj.Value
	case *object.Null:
		return nil
	case *object.Array:
		result := make([]interface{}, 0, len(obj.Elements))
		for _, elem := range obj.Elements {
			result = append(result, toNative(elem))
		}
		return result
	case *object.Hash:
		pairs := obj.Pairs()
		if !stringKeys(pairs) {
			result := make([]map[string]interface{}, 0, len(pairs))
			for _, pair := range pairs {
				result = append(result, map[string]interface{}{
					"key":   toNative(pair.Key),
					"value": toNative(pair.Value),
				})
			}
			return result
		}
		result := make(map[string]interface{}, len(pairs))
		for _, pair := range pairs {
			result[pair.Key.(*object.String).Value] = toNative(pair.Value)
		}
		return result
	default:
		return obj.Inspect()
	}
}

func stringKeys(pairs []object.HashPair) bool {
	for _, pair := range pairs {
		if _, ok := pair.Key.(*object.String); !ok {
			return false
		}
	}
	return true
}
