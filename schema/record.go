package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// String returns the column as text. NULL yields "".
func (r Record) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// NullString returns the column as text and whether it was non-NULL.
func (r Record) NullString(col string) (string, bool) {
	if r[col] == nil {
		return "", false
	}
	return r.String(col), true
}

// Int64 converts the column to an integer. Drivers hand back counts as integers,
// floats or decimal strings depending on the backend. NULL yields 0.
func (r Record) Int64(col string) (int64, error) {
	switch v := r[col].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		s := strings.TrimSpace(r.String(col))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: cannot convert %q to integer", col, s)
		}
		return int64(f), nil
	}
}

// Float64 converts the column to a float and reports whether it was non-NULL.
func (r Record) Float64(col string) (float64, bool, error) {
	switch v := r[col].(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case float32:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	case int32:
		return float64(v), true, nil
	case int:
		return float64(v), true, nil
	default:
		s := strings.TrimSpace(r.String(col))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("column %s: cannot convert %q to number", col, s)
		}
		return f, true, nil
	}
}

// Bool reports whether the column holds a true value (1, true, "t", "true").
func (r Record) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case nil:
		return false
	default:
		switch strings.ToLower(r.String(col)) {
		case "1", "t", "true":
			return true
		}
		return false
	}
}
