package index

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"ai-doc-assistant/pkg/apperror"
	"ai-doc-assistant/pkg/logger"
)

// Filter restricts a search by payload metadata. Every key contributes one
// condition and all conditions are ANDed. A nil or empty filter means no
// restriction.
type Filter map[string]Condition

// Condition is the typed sum of the three supported match forms. Exactly one
// of the fields is set.
type Condition struct {
	Equals any      // scalar equality
	AnyOf  []any    // membership: payload value equals any element
	Range  *RangeOp // numeric range
}

// RangeOp holds numeric bounds; gte/lte are inclusive, gt/lt exclusive.
type RangeOp struct {
	GTE *float64
	LTE *float64
	GT  *float64
	LT  *float64
}

// DecodeFilter validates a loose JSON mapping into a typed Filter at the API
// edge. Scalars become equality matches, sequences membership matches and
// operator objects numeric ranges. Unknown operator names are ignored, not
// rejected; that mirrors how lenient metadata filters behave elsewhere in the
// pipeline and is pinned by tests.
func DecodeFilter(raw map[string]any) (Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	f := make(Filter, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case map[string]any:
			r := &RangeOp{}
			for op, bound := range v {
				n, ok := toFloat(bound)
				if !ok {
					return nil, apperror.Errorf(apperror.KindMalformed, "index.filter",
						"operator %q on key %q needs a numeric bound, got %T", op, key, bound)
				}
				switch op {
				case "gte":
					r.GTE = &n
				case "lte":
					r.LTE = &n
				case "gt":
					r.GT = &n
				case "lt":
					r.LT = &n
				default:
					logger.Debug("filter: ignoring unknown operator %q on key %q", op, key)
				}
			}
			f[key] = Condition{Range: r}
		case []any:
			f[key] = Condition{AnyOf: v}
		case nil:
			return nil, apperror.Errorf(apperror.KindMalformed, "index.filter",
				"filter key %q has a null value", key)
		default:
			f[key] = Condition{Equals: value}
		}
	}
	return f, nil
}

// Compile translates a Filter into a Milvus boolean expression over the JSON
// metadata field, e.g.
//
//	metadata["department"] == "finance" and metadata["year"] <= 2013
//
// Keys are emitted in sorted order so the output is stable. Returns "" for an
// empty filter.
func Compile(f Filter) string {
	if len(f) == 0 {
		return ""
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conds []string
	for _, key := range keys {
		conds = append(conds, compileCondition(key, f[key])...)
	}
	return strings.Join(conds, " and ")
}

func compileCondition(key string, c Condition) []string {
	field := fmt.Sprintf("metadata[%s]", strconv.Quote(key))

	switch {
	case c.Range != nil:
		var out []string
		if c.Range.GTE != nil {
			out = append(out, fmt.Sprintf("%s >= %s", field, formatNumber(*c.Range.GTE)))
		}
		if c.Range.GT != nil {
			out = append(out, fmt.Sprintf("%s > %s", field, formatNumber(*c.Range.GT)))
		}
		if c.Range.LTE != nil {
			out = append(out, fmt.Sprintf("%s <= %s", field, formatNumber(*c.Range.LTE)))
		}
		if c.Range.LT != nil {
			out = append(out, fmt.Sprintf("%s < %s", field, formatNumber(*c.Range.LT)))
		}
		return out
	case c.AnyOf != nil:
		if len(c.AnyOf) == 0 {
			// empty membership matches nothing; "in []" would be rejected by
			// the expr parser, so emit a contradiction instead
			return []string{
				fmt.Sprintf("%s == \"\"", field),
				fmt.Sprintf("%s != \"\"", field),
			}
		}
		elems := make([]string, 0, len(c.AnyOf))
		for _, v := range c.AnyOf {
			elems = append(elems, formatLiteral(v))
		}
		return []string{fmt.Sprintf("%s in [%s]", field, strings.Join(elems, ", "))}
	default:
		return []string{fmt.Sprintf("%s == %s", field, formatLiteral(c.Equals))}
	}
}

func formatLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		if n, ok := toFloat(v); ok {
			return formatNumber(n)
		}
		return strconv.Quote(fmt.Sprintf("%v", v))
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
