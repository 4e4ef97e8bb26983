package document

import (
	"strconv"
	"strings"

	"github.com/msageha/installwatch/internal/model"
)

// Evaluate resolves keyPath within doc and applies the comparison semantics
// selected by kind. Unknown kinds deliberately fall back to string equality;
// permissiveness over erroring is the contract here.
func Evaluate(doc Value, keyPath string, kind model.EvaluationKind, expected string) bool {
	resolved, ok := Resolve(doc, keyPath)

	switch kind {
	case model.EvalExists:
		return ok

	case model.EvalBoolean:
		if !ok {
			return false
		}
		return smartBool(resolved) == smartBoolString(expected)

	case model.EvalContains:
		if !ok {
			return false
		}
		elems, isArr := resolved.AsArray()
		if !isArr {
			return false
		}
		for _, el := range elems {
			if el.Stringify() == expected {
				return true
			}
		}
		return false

	case model.EvalRange:
		if !ok {
			return false
		}
		min, max, valid := parseRange(expected)
		if !valid {
			return false
		}
		num, isNum := resolved.AsFloat()
		if !isNum {
			// Numeric strings participate too; anything else fails.
			str, isStr := resolved.AsString()
			if !isStr {
				return false
			}
			parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
			if err != nil {
				return false
			}
			num = parsed
		}
		return num >= min && num <= max

	default: // equals and any unrecognized kind
		if !ok {
			return false
		}
		return resolved.Stringify() == expected
	}
}

// smartBool normalizes a document value to a boolean: native booleans pass
// through, the usual truthy/falsy spellings map accordingly, everything else
// is false.
func smartBool(v Value) bool {
	if b, ok := v.AsBool(); ok {
		return b
	}
	return smartBoolString(v.Stringify())
}

func smartBoolString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// parseRange splits a "min-max" expected value. A negative minimum is not
// supported by the format; the first '-' is the separator.
func parseRange(expected string) (min, max float64, ok bool) {
	parts := strings.SplitN(expected, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	min, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	max, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return min, max, true
}
