package qdrant

import (
	"fmt"
	"sort"
	"strings"
)

const (
	filterOpIn = "$in"
	filterOpEq = "$eq"
	filterOpNe = "$ne"
)

type translatedFilter struct {
	Must    []any
	MustNot []any
}

func (f translatedFilter) asMap() map[string]any {
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = f.Must
	}
	if len(f.MustNot) > 0 {
		out["must_not"] = f.MustNot
	}
	return out
}

// translateFilterMap converts the engine's filter syntax (scalar equality
// plus {$eq,$ne,$in} operator maps) into Qdrant filter conditions. Keys are
// visited in sorted order so the produced request body is stable.
func translateFilterMap(filter map[string]any) (translatedFilter, error) {
	out := translatedFilter{}
	if len(filter) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := filter[key]
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if strings.HasPrefix(k, "$") {
			return translatedFilter{}, opErr(
				"filter_translate",
				OperationErrorUnsupportedFilter,
				fmt.Sprintf("unsupported top-level filter operator %q", k),
				nil,
			)
		}

		switch typed := value.(type) {
		case map[string]any:
			ops := make([]string, 0, len(typed))
			for op := range typed {
				ops = append(ops, op)
			}
			sort.Strings(ops)
			for _, op := range ops {
				opVal := typed[op]
				switch strings.ToLower(strings.TrimSpace(op)) {
				case filterOpEq:
					out.Must = append(out.Must, matchCondition(k, opVal))
				case filterOpNe:
					out.MustNot = append(out.MustNot, matchCondition(k, opVal))
				case filterOpIn:
					vals, ok := opVal.([]any)
					if !ok || len(vals) == 0 {
						return translatedFilter{}, opErr(
							"filter_translate",
							OperationErrorValidation,
							fmt.Sprintf("operator %s for field %q expects a non-empty array", filterOpIn, k),
							nil,
						)
					}
					out.Must = append(out.Must, map[string]any{
						"key":   k,
						"match": map[string]any{"any": vals},
					})
				default:
					return translatedFilter{}, opErr(
						"filter_translate",
						OperationErrorUnsupportedFilter,
						fmt.Sprintf("unsupported filter operator %q for field %q", op, k),
						nil,
					)
				}
			}
		default:
			out.Must = append(out.Must, matchCondition(k, value))
		}
	}

	return out, nil
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{
		"key": key,
		"match": map[string]any{
			"value": value,
		},
	}
}
