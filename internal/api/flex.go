package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Flex holds a JSON scalar the Likes API sends either as a number or as a
// string. The original spelling is kept so records round-trip unchanged.
type Flex struct {
	raw    string
	quoted bool
}

// FlexInt returns a numeric Flex.
func FlexInt(n int64) Flex {
	return Flex{raw: strconv.FormatInt(n, 10)}
}

// FlexString returns a string Flex.
func FlexString(s string) Flex {
	return Flex{raw: s, quoted: true}
}

// IsSet reports whether the value was present and non-null.
func (f Flex) IsSet() bool {
	return f.raw != "" || f.quoted
}

// String returns the value as text: the digits of a number or the string itself.
func (f Flex) String() string {
	return f.raw
}

// Float64 parses the value as a number. Unparseable values yield 0, false.
func (f Flex) Float64() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(f.raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Int64 parses the value as an integer, truncating fractional numbers.
func (f Flex) Int64() int64 {
	if n, err := strconv.ParseInt(strings.TrimSpace(f.raw), 10, 64); err == nil {
		return n
	}
	v, ok := f.Float64()
	if !ok {
		return 0
	}
	return int64(v)
}

func (f Flex) MarshalJSON() ([]byte, error) {
	if !f.IsSet() {
		return []byte("null"), nil
	}
	if f.quoted {
		return json.Marshal(f.raw)
	}
	return []byte(f.raw), nil
}

func (f *Flex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = Flex{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Flex{raw: s, quoted: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected number or string, got %s", data)
	}
	*f = Flex{raw: n.String()}
	return nil
}

// fields is a decoded JSON object whose known members are pulled out one by
// one; whatever remains becomes a record's Extra bag.
type fields map[string]json.RawMessage

func decodeFields(data []byte) (fields, error) {
	var m fields
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = fields{}
	}
	return m, nil
}

// take decodes key into dst and removes it. Null members stay in the bag.
func (m fields) take(key string, dst any) error {
	raw, ok := m[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	delete(m, key)
	return nil
}

// keep is take for members the cache never reads: a value of an unexpected
// type stays in the bag and goes back out unchanged.
func (m fields) keep(key string, dst any) {
	_ = m.take(key, dst)
}

func (m fields) putFlex(key string, v Flex) {
	if v.IsSet() {
		b, _ := v.MarshalJSON()
		m[key] = b
	}
}

func (m fields) putString(key, v string) {
	if v != "" {
		b, _ := json.Marshal(v)
		m[key] = b
	}
}

// rest returns the remaining members, or nil when none are left.
func (m fields) rest() map[string]json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	return m
}

// withExtra starts an output object from a copy of extra.
func withExtra(extra map[string]json.RawMessage) fields {
	out := make(fields, len(extra)+8)
	for k, v := range extra {
		out[k] = v
	}
	return out
}
