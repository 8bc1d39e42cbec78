package codegen

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xplshn/iecst/pkg/literal"
)

var reOperatorish = regexp.MustCompile(`[\s+\-*/()]`)

// ValueToST renders a JSON value as a Structured Text initializer. Strings
// that already read as ST (literals, access paths, expressions) pass through
// unchanged; anything else is double-quoted.
func ValueToST(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case string:
		return stringToST(x)
	case []interface{}:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = ValueToST(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + " := " + ValueToST(x[k])
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func stringToST(s string) string {
	switch {
	case literal.HasTemporalPrefix(s),
		literal.IsAccessPath(s),
		literal.Classify(s) != literal.None,
		reOperatorish.MatchString(s):
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `$"`) + `"`
}
