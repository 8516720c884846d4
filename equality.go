package expect

import (
	"math"
	"reflect"
)

// ValuesEqual is the null-safe equality used by literal filters and plain
// field comparison. Numbers of different Go types compare by value:
// integers exactly, floats against integers only when the float is
// integral. Non finite floats compare structurally so NaN equals NaN.
func ValuesEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	if equal, ok := numbersEqual(actual, expected); ok {
		return equal
	}
	if as, ok := actual.(string); ok {
		if es, ok := expected.(string); ok {
			return as == es
		}
	}
	return reflect.DeepEqual(actual, expected)
}

// integer is an integral value that remembers its signedness.
type integer struct {
	signed   int64
	unsigned uint64
	negative bool
}

func (a integer) equal(b integer) bool {
	if a.negative || b.negative {
		return a.negative && b.negative && a.signed == b.signed
	}
	return a.unsigned == b.unsigned
}

func toInteger(value any) (integer, bool) {
	switch v := value.(type) {
	case int:
		return signedInteger(int64(v)), true
	case int8:
		return signedInteger(int64(v)), true
	case int16:
		return signedInteger(int64(v)), true
	case int32:
		return signedInteger(int64(v)), true
	case int64:
		return signedInteger(v), true
	case uint:
		return integer{unsigned: uint64(v)}, true
	case uint8:
		return integer{unsigned: uint64(v)}, true
	case uint16:
		return integer{unsigned: uint64(v)}, true
	case uint32:
		return integer{unsigned: uint64(v)}, true
	case uint64:
		return integer{unsigned: v}, true
	default:
		return integer{}, false
	}
}

func signedInteger(v int64) integer {
	if v < 0 {
		return integer{signed: v, negative: true}
	}
	return integer{signed: v, unsigned: uint64(v)}
}

// floatInteger converts an integral float that fits 64 bits.
func floatInteger(f float64) (integer, bool) {
	if !isFinite(f) || f != math.Trunc(f) {
		return integer{}, false
	}
	switch {
	case f < 0 && f >= math.MinInt64:
		return signedInteger(int64(f)), true
	case f >= 0 && f < math.MaxUint64:
		return integer{unsigned: uint64(f)}, true
	}
	return integer{}, false
}

// numbersEqual reports whether two numeric values are equal; ok is false
// when either side is not a number.
func numbersEqual(actual, expected any) (equal, ok bool) {
	actualInt, actualIsInt := toInteger(actual)
	expectedInt, expectedIsInt := toInteger(expected)
	if actualIsInt && expectedIsInt {
		return actualInt.equal(expectedInt), true
	}
	actualNum, actualIsNum := toFloat64(actual)
	expectedNum, expectedIsNum := toFloat64(expected)
	if !actualIsNum || !expectedIsNum {
		return false, false
	}
	switch {
	case actualIsInt:
		f, ok := floatInteger(expectedNum)
		return ok && actualInt.equal(f), true
	case expectedIsInt:
		f, ok := floatInteger(actualNum)
		return ok && expectedInt.equal(f), true
	}
	if !isFinite(actualNum) || !isFinite(expectedNum) {
		return sameFloat(actualNum, expectedNum), true
	}
	return actualNum == expectedNum, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func sameFloat(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b) || (math.IsNaN(a) && math.IsNaN(b))
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case uint:
		return int(v), true
	case uint64:
		return int(v), true
	case uint32:
		return int(v), true
	case float64:
		if v == math.Trunc(v) && isFinite(v) {
			return int(v), true
		}
	case float32:
		f := float64(v)
		if f == math.Trunc(f) && isFinite(f) {
			return int(f), true
		}
	}
	return 0, false
}
