package populator

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"github.com/rainbow-me/logcontext/common/metadata"
)

// FormatValue renders an attribute value according to its declared type.
// It returns false for nil values (typed nil pointers included) and for types it does not know how to render; those
// attributes are left out of the context.
func FormatValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []string:
		return metadata.RenderValues(val), true
	case []byte:
		return string(val), true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int8:
		return strconv.FormatInt(int64(val), 10), true
	case int16:
		return strconv.FormatInt(int64(val), 10), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case uint8:
		return strconv.FormatUint(uint64(val), 10), true
	case uint16:
		return strconv.FormatUint(uint64(val), 10), true
	case uint32:
		return strconv.FormatUint(uint64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), true
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), true
	case time.Time:
		if val.IsZero() {
			return "", false
		}
		return val.Format(time.RFC3339), true
	case time.Duration:
		return val.String(), true
	case language.Tag:
		if val == language.Und {
			return "", false
		}
		return val.String(), true
	case error:
		if isNilPointer(val) {
			return "", false
		}
		return val.Error(), true
	case fmt.Stringer:
		if isNilPointer(val) {
			return "", false
		}
		return val.String(), true
	default:
		return "", false
	}
}

// isNilPointer reports whether v holds a typed nil, whose methods would dereference nil.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
