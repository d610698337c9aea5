package object

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// HashKey identifies a hashable value by kind and content, so equal
// integers, strings and booleans map to the same entry.
type HashKey struct {
	Kind  ObjectKind
	Value int64
	Text  string
}

// Hashable is implemented by the values usable as hash keys.
type Hashable interface {
	Object
	HashKey() HashKey
}

type HashPair struct {
	Key   Object
	Value Object
}

// Hash maps hashable keys to values. Entries keep insertion order so that
// Inspect output is stable. A Hash is filled once while its literal is
// evaluated and only read afterwards.
type Hash struct {
	pairs *linkedhashmap.Map // HashKey -> HashPair
}

func NewHash() *Hash {
	return &Hash{pairs: linkedhashmap.New()}
}

func (h *Hash) Kind() ObjectKind { return KindHash }
func (h *Hash) Inspect() string {
	pairs := h.Pairs()
	out := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, fmt.Sprintf("%s: %s", pair.Key.Inspect(), pair.Value.Inspect()))
	}
	return "{" + strings.Join(out, ", ") + "}"
}

// Set inserts or overwrites the entry for key. Overwriting keeps the
// position of the first insertion.
func (h *Hash) Set(key Hashable, value Object) {
	h.pairs.Put(key.HashKey(), HashPair{Key: key, Value: value})
}

func (h *Hash) Get(key Hashable) (Object, bool) {
	v, found := h.pairs.Get(key.HashKey())
	if !found {
		return nil, false
	}
	return v.(HashPair).Value, true
}

func (h *Hash) Len() int {
	return h.pairs.Size()
}

// Pairs returns the entries in insertion order.
func (h *Hash) Pairs() []HashPair {
	values := h.pairs.Values()
	pairs := make([]HashPair, 0, len(values))
	for _, v := range values {
		pairs = append(pairs, v.(HashPair))
	}
	return pairs
}
