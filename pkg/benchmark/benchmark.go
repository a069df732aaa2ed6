// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/oapi-codegen/nullable"
)

// Record is one test's measurement snapshot for one commit, as produced by
// an ingested artifact.
type Record struct {
	Test    string
	Commit  string
	Metrics Metrics
}

// Entry is a single named value in a metrics payload. Value is whatever the
// artifact carried; only finite numbers become metric samples.
type Entry struct {
	Name  string
	Value any
	Unit  nullable.Nullable[string]
}

// Metrics is a metrics payload. Order is the order in which the entries
// appeared in the artifact and is preserved through storage and
// classification.
type Metrics []Entry

// Float returns the entry's value as a float64 and whether it is numeric.
// Booleans, strings, nested values and non-finite floats are not numeric.
func (e Entry) Float() (float64, bool) {
	var f float64
	switch v := e.Value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// UnitString returns the entry's unit, or "" when it has none.
func (e Entry) UnitString() string {
	if !e.Unit.IsSpecified() || e.Unit.IsNull() {
		return ""
	}
	return e.Unit.MustGet()
}

// Numeric returns the entries whose value is numeric, in payload order.
func (m Metrics) Numeric() Metrics {
	numeric := make(Metrics, 0, len(m))
	for _, e := range m {
		if _, ok := e.Float(); ok {
			numeric = append(numeric, e)
		}
	}
	return numeric
}

// Get returns the entry named `name`.
func (m Metrics) Get(name string) (Entry, bool) {
	for _, e := range m {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// MarshalJSON encodes the payload as a JSON object, keeping entry order.
// Units are not part of the payload.
func (m Metrics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", e.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the payload, keeping key order.
// Numbers are decoded as float64.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metrics payload must be a JSON object, got %v", tok)
	}

	entries := Metrics{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected metrics key %v", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("metric %q: %w", name, err)
		}
		entries = append(entries, Entry{Name: name, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = entries
	return nil
}
