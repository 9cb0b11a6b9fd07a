package buildver

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Version is an ordered Windows build version tuple, e.g. 10.0.19041 or
// 10.0.19041.390. Comparison is component-wise; a missing trailing
// component counts as zero, so 10.0.19041 == 10.0.19041.0.
type Version []uint64

func Parse(s string) (Version, error) {
	if s == "" {
		return nil, fmt.Errorf("empty version string")
	}
	parts := strings.Split(s, ".")
	v := make(Version, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %v", s, err)
		}
		v = append(v, n)
	}
	return v, nil
}

// MustParse is for static version constants only.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(parts, ".")
}

// Compare returns -1, 0 or 1 if v is lower than, equal to or higher
// than other.
func (v Version) Compare(other Version) int {
	n := len(v)
	if len(other) > n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		var a, b uint64
		if i < len(v) {
			a = v[i]
		}
		if i < len(other) {
			b = other[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// InRange reports whether v lies within the inclusive bounds. A nil
// bound is unbounded on that side.
func (v Version) InRange(min, max Version) bool {
	if min != nil && v.Compare(min) < 0 {
		return false
	}
	if max != nil && v.Compare(max) > 0 {
		return false
	}
	return true
}

func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
