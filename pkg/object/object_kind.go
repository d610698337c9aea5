package object

// ObjectKind represents the type of an object using an enum for faster comparisons.
type ObjectKind uint8

const (
	KindInvalid ObjectKind = iota
	KindInteger
	KindString
	KindBoolean
	KindNull
	KindArray
	KindHash
	KindReturnValue
	KindError
	KindFunction
	KindBuiltin
	KindPending
)

func (k ObjectKind) String() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindString:
		return "STRING"
	case KindBoolean:
		return "BOOLEAN"
	case KindNull:
		return "NULL"
	case KindArray:
		return "ARRAY"
	case KindHash:
		return "HASH"
	case KindReturnValue:
		return "RETURN_VALUE"
	case KindError:
		return "ERROR"
	case KindFunction:
		return "FUNCTION"
	case KindBuiltin:
		return "BUILTIN"
	case KindPending:
		return "PENDING"
	default:
		return "INVALID"
	}
}

// Integer cache for small integers (-128 to 127)
const (
	minCachedInt = -128
	maxCachedInt = 127
	intCacheSize = maxCachedInt - minCachedInt + 1
)

var (
	intCache [intCacheSize]*Integer

	// NULL, TRUE and FALSE are the only instances of their types. The
	// evaluator compares them by identity.
	NULL  *Null
	TRUE  *Boolean
	FALSE *Boolean
)

// Initialize the integer cache and common singletons
func init() {
	for i := 0; i < intCacheSize; i++ {
		intCache[i] = &Integer{Value: int64(i) + minCachedInt}
	}

	NULL = &Null{}
	TRUE = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
}

// NewInteger returns a cached integer for small values or allocates a new one.
func NewInteger(value int64) *Integer {
	if value >= minCachedInt && value <= maxCachedInt {
		return intCache[value-minCachedInt]
	}
	return &Integer{Value: value}
}

// NativeBool maps a Go bool onto the TRUE/FALSE singletons.
func NativeBool(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}
