package platform

import (
	"fmt"
	"strconv"
)

// toUint64 coerces a JSON-decoded value for a DWord or QWord write.
// Negative numbers are rejected rather than wrapped.
func toUint64(value any) (uint64, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("integer registry value must not be negative, got %v", v)
		}
		return uint64(v), nil
	case string:
		return strconv.ParseUint(v, 0, 64)
	}
	return 0, fmt.Errorf("cannot use %T as an integer registry value", value)
}

func toStrings(value any) ([]string, error) {
	switch v := value.(type) {
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = fmt.Sprint(item)
		}
		return items, nil
	case string:
		return []string{v}, nil
	}
	return nil, fmt.Errorf("cannot use %T as a multi-string registry value", value)
}

func toBytes(value any) ([]byte, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("cannot use %T as a binary registry value", value)
	}
	data := make([]byte, len(items))
	for i, item := range items {
		n, ok := item.(float64)
		if !ok || n < 0 || n > 255 {
			return nil, fmt.Errorf("binary registry value byte %d out of range", i)
		}
		data[i] = byte(n)
	}
	return data, nil
}
