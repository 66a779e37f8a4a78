package data

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Properties is arbitrary per-item metadata.
//
// Values are restricted to bool, integers, floats, string, homogeneous lists of
// those, and nested maps with string keys. Stored properties read back in
// normalized form: integers as int64, floats as float64, lists as []any and
// maps as map[string]any.
type Properties map[string]any

// NormalizeProperties validates p and returns its normalized copy.
func NormalizeProperties(p Properties) (Properties, error) {
	if p == nil {
		return nil, nil
	}
	v, _, err := normalizeValue(map[string]any(p), "")
	if err != nil {
		return nil, err
	}
	return Properties(v.(map[string]any)), nil
}

// Equal reports deep equality of the normalized forms.
func (p Properties) Equal(o Properties) bool {
	a, errA := NormalizeProperties(p)
	b, errB := NormalizeProperties(o)
	if errA != nil || errB != nil {
		return false
	}
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

type valueKind int

const (
	kindBool valueKind = iota + 1
	kindInt
	kindFloat
	kindString
	kindList
	kindMap
)

func (k valueKind) String() string {
	return [...]string{"", "bool", "int", "float", "string", "list", "map"}[k]
}

func normalizeValue(v any, path string) (any, valueKind, error) {
	switch x := v.(type) {
	case bool:
		return x, kindBool, nil
	case int:
		return int64(x), kindInt, nil
	case int8:
		return int64(x), kindInt, nil
	case int16:
		return int64(x), kindInt, nil
	case int32:
		return int64(x), kindInt, nil
	case int64:
		return x, kindInt, nil
	case uint8:
		return int64(x), kindInt, nil
	case uint16:
		return int64(x), kindInt, nil
	case uint32:
		return int64(x), kindInt, nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, 0, propertyError(path, "integer %d overflows int64", x)
		}
		return int64(x), kindInt, nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, 0, propertyError(path, "integer %d overflows int64", x)
		}
		return int64(x), kindInt, nil
	case float32:
		return normalizeFloat(float64(x), path)
	case float64:
		return normalizeFloat(x, path)
	case string:
		return x, kindString, nil
	case Properties:
		return normalizeMap(x, path)
	case map[string]any:
		return normalizeMap(x, path)
	case []any:
		return normalizeList(x, path)
	case nil:
		return nil, 0, propertyError(path, "nil values are not allowed")
	}

	// typed slices such as []int or []string
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return normalizeList(items, path)
	}
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return normalizeMap(m, path)
	}
	return nil, 0, propertyError(path, "unsupported value type %T", v)
}

func normalizeFloat(f float64, path string) (any, valueKind, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, 0, propertyError(path, "non-finite float %v", f)
	}
	return f, kindFloat, nil
}

func normalizeMap(m map[string]any, path string) (any, valueKind, error) {
	out := make(map[string]any, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "" {
			return nil, 0, propertyError(path, "empty key")
		}
		v, _, err := normalizeValue(m[k], joinPath(path, k))
		if err != nil {
			return nil, 0, err
		}
		out[k] = v
	}
	return out, kindMap, nil
}

func normalizeList(items []any, path string) (any, valueKind, error) {
	out := make([]any, len(items))
	var first valueKind
	for i, item := range items {
		v, kind, err := normalizeValue(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, 0, err
		}
		if i == 0 {
			first = kind
		} else if kind != first {
			return nil, 0, propertyError(path, "list is not homogeneous: %s at index 0, %s at index %d", first, kind, i)
		}
		out[i] = v
	}
	return out, kindList, nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func propertyError(path, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = fmt.Sprintf("property %q: %s", path, msg)
	}
	return h5err.Invalid("data.Properties", "%s", msg)
}
