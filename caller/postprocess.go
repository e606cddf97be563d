package caller

import (
	"sort"
	"strings"

	"github.com/m4xw311/restgpt/errors"
	"github.com/tidwall/gjson"
)

// postprocess narrows a JSON body with a GJSON filter, then sorts and limits
// an array result.
func postprocess(body []byte, filter string, spec *SortSpec) (string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", nil
	}
	if !gjson.ValidBytes(body) {
		return string(body), nil
	}

	result := gjson.ParseBytes(body)
	if filter != "" {
		result = result.Get(filter)
		if !result.Exists() {
			return "", errors.Mark(errors.ErrExecution, "filter %q matched nothing in the response", filter)
		}
	}
	if spec == nil || !result.IsArray() {
		return result.Raw, nil
	}

	items := result.Array()
	if spec.Key != "" {
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].Get(spec.Key), items[j].Get(spec.Key)
			if a.Exists() != b.Exists() {
				return a.Exists()
			}
			if spec.Desc {
				return less(b, a)
			}
			return less(a, b)
		})
	}
	if spec.Limit > 0 && spec.Limit < len(items) {
		items = items[:spec.Limit]
	}

	raws := make([]string, len(items))
	for i, it := range items {
		raws[i] = it.Raw
	}
	return "[" + strings.Join(raws, ",") + "]", nil
}

// less orders numbers numerically and everything else by string value.
func less(a, b gjson.Result) bool {
	if a.Type == gjson.Number && b.Type == gjson.Number {
		return a.Num < b.Num
	}
	return a.String() < b.String()
}
