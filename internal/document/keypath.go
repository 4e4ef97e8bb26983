package document

import (
	"strconv"
	"strings"
)

// Resolve walks a dotted/indexed key path (e.g. "Sets.0.ProxyURL") through a
// document. At each segment a map is indexed by string key and an array by a
// parsed integer index. Any failure (missing key, out-of-range index,
// non-traversable value) yields (null, false), never a panic.
func Resolve(doc Value, keyPath string) (Value, bool) {
	if keyPath == "" {
		return Value{}, false
	}

	current := doc
	for _, segment := range strings.Split(keyPath, ".") {
		switch current.Kind() {
		case KindMap:
			child, ok := current.Lookup(segment)
			if !ok {
				return Value{}, false
			}
			current = child
		case KindArray:
			idx, err := strconv.Atoi(segment)
			if err != nil {
				return Value{}, false
			}
			child, ok := current.Index(idx)
			if !ok {
				return Value{}, false
			}
			current = child
		default:
			return Value{}, false
		}
	}
	return current, true
}
