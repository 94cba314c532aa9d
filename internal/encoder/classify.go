package encoder

import (
	"reflect"
	"strconv"
	"time"

	"github.com/hanpama/resgraph/internal/resource"
)

// ValueKind is the structural classification of a property value.
type ValueKind uint8

const (
	KindUnsupported ValueKind = iota
	KindScalar
	KindReference
	KindReferenceList
)

func (k ValueKind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindScalar:
		return "scalar"
	case KindReference:
		return "reference"
	case KindReferenceList:
		return "reference-list"
	default:
		return "ValueKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Classified is the result of Classify. Scalar holds the normalized scalar
// for KindScalar; Resources holds the single target (KindReference) or the
// ordered targets (KindReferenceList).
type Classified struct {
	Kind      ValueKind
	Scalar    any
	Resources []resource.Resource
}

var (
	resourceType = reflect.TypeOf((*resource.Resource)(nil)).Elem()
	timeType     = reflect.TypeOf(time.Time{})
)

// Classify inspects v and decides how it is encoded. Integers normalize to
// int64 or uint64, floats to float64, named string and bool kinds to their
// base types. A nil interface or nil resource pointer is the null scalar.
func Classify(v any) Classified {
	switch x := v.(type) {
	case nil:
		return scalar(nil)
	case string, bool, int64, uint64, float64, []byte:
		return scalar(x)
	case time.Time:
		return scalar(x)
	case resource.Resource:
		if resource.IsNil(x) {
			return scalar(nil)
		}
		return Classified{Kind: KindReference, Resources: []resource.Resource{x}}
	case []resource.Resource:
		return resourceList(x)
	case []any:
		list := make([]resource.Resource, len(x))
		for i, item := range x {
			r, ok := item.(resource.Resource)
			if !ok {
				return Classified{Kind: KindUnsupported}
			}
			list[i] = r
		}
		return resourceList(list)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return scalar(rv.String())
	case reflect.Bool:
		return scalar(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return scalar(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return scalar(rv.Float())
	case reflect.Struct:
		if rv.Type().ConvertibleTo(timeType) {
			return scalar(rv.Convert(timeType).Interface())
		}
	case reflect.Slice:
		elem := rv.Type().Elem()
		if elem.Kind() == reflect.Uint8 {
			return scalar(rv.Bytes())
		}
		if elem.Implements(resourceType) {
			list := make([]resource.Resource, rv.Len())
			for i := range list {
				list[i], _ = rv.Index(i).Interface().(resource.Resource)
			}
			return resourceList(list)
		}
	}
	return Classified{Kind: KindUnsupported}
}

func scalar(v any) Classified {
	return Classified{Kind: KindScalar, Scalar: v}
}

// resourceList rejects nil elements: a reference list must address real
// resources.
func resourceList(list []resource.Resource) Classified {
	for _, r := range list {
		if resource.IsNil(r) {
			return Classified{Kind: KindUnsupported}
		}
	}
	return Classified{Kind: KindReferenceList, Resources: list}
}
