package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number decodes loosely typed numeric fields. Numbers, numeric strings,
// booleans and null are accepted; Set records whether the field was present.
type Number struct {
	Value float64
	Set   bool
}

func (n *Number) UnmarshalJSON(data []byte) error {
	n.Set = true
	trimmed := bytes.TrimSpace(data)

	switch {
	case bytes.Equal(trimmed, []byte("null")):
		n.Value = 0
		return nil
	case bytes.Equal(trimmed, []byte("true")):
		n.Value = 1
		return nil
	case bytes.Equal(trimmed, []byte("false")):
		n.Value = 0
		return nil
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err == nil {
		n.Value = f
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return fmt.Errorf("expected number, got %s", trimmed)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		n.Value = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("expected number, got %q", s)
	}
	n.Value = f
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value)
}

// MaxMagnitude bounds the integer form of a Number.
const MaxMagnitude = 1e9

// Int rounds the value to the nearest integer, clamped to ±MaxMagnitude.
func (n Number) Int() int {
	return int(math.Round(max(-MaxMagnitude, min(MaxMagnitude, n.Value))))
}

// StringList decodes either a single string or a list of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = StringList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = list
	return nil
}
