package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var jsonNull = []byte("null")

// FlexList decodes either a JSON list or a single value into a list. null and
// absent fields decode to an empty list.
type FlexList[T any] []T

func (l *FlexList[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var single T
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = FlexList[T]{single}
	return nil
}

// FlexInt decodes a JSON number or a numeric string. Empty strings and null
// decode to zero.
type FlexInt int64

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		*n = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*n = 0
			return nil
		}
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*n = FlexInt(v)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("decode integer %q: %w", raw, err)
	}
	*n = FlexInt(f)
	return nil
}

// FlexString decodes a JSON string or number into its string form.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(strings.TrimSpace(v))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("decode identifier: %w", err)
	}
	*s = FlexString(num.String())
	return nil
}

func (s FlexString) String() string { return string(s) }
