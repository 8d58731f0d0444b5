package schema

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// FilterValue holds the value of a Filter: a single string, a list of strings
// or a date comparison. At most one of the three is set.
type FilterValue struct {
	Text string
	List []string
	Date *DateFilterValue
}

// TextValue returns a single string filter value.
func TextValue(s string) FilterValue {
	return FilterValue{Text: s}
}

// ListValue returns a multi-select filter value.
func ListValue(values ...string) FilterValue {
	return FilterValue{List: values}
}

// DateValue returns a date comparison filter value.
func DateValue(date string, comparator Comparator) FilterValue {
	return FilterValue{Date: &DateFilterValue{Date: date, Comparator: comparator}}
}

// IsEmpty reports whether the value carries nothing to filter on.
func (v FilterValue) IsEmpty() bool {
	return strings.TrimSpace(v.Text) == "" && len(v.List) == 0 && v.Date == nil
}

// MarshalJSON encodes the value in its natural shape.
func (v FilterValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.Date != nil:
		return json.Marshal(v.Date)
	case v.List != nil:
		return json.Marshal(v.List)
	case v.Text != "":
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a string, a string array or a {date, comparator} object.
// Any other shape decodes to an empty value.
func (v *FilterValue) UnmarshalJSON(data []byte) error {
	*v = FilterValue{}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		v.Text = text
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		v.List = list
		return nil
	}
	var date DateFilterValue
	if err := json.Unmarshal(data, &date); err == nil {
		v.Date = &date
	}
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML context files.
func (v *FilterValue) UnmarshalYAML(node *yaml.Node) error {
	*v = FilterValue{}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			v.Text = node.Value
		}
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err == nil {
			v.List = list
		}
	case yaml.MappingNode:
		var date DateFilterValue
		if err := node.Decode(&date); err == nil {
			v.Date = &date
		}
	}
	return nil
}
