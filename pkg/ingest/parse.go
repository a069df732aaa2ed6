// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/oapi-codegen/nullable"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"

	"github.com/xataio/benchgate/pkg/benchmark"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "benchgate-artifact.schema.json"

var artifactSchema = mustCompileSchema()

// Google Benchmark fields tracked for every entry, in report order
var googleBenchmarkFields = []string{"real_time", "cpu_time", "iterations"}

// fields of googleBenchmarkFields measured in the entry's time_unit
var timedFields = map[string]bool{"real_time": true, "cpu_time": true}

func mustCompileSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid artifact schema: %v", err))
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		panic(fmt.Sprintf("invalid artifact schema: %v", err))
	}

	return c.MustCompile(schemaURL)
}

// ParseFile reads the artifact at `path` and returns its records, all
// attributed to `commit`.
func ParseFile(path, commit string) ([]benchmark.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data, testNameFromPath(path), commit)
}

// Parse decodes a JSON or YAML artifact. Two shapes are recognized:
//
//   - a list of Google Benchmark entries, either at the top level or under a
//     `benchmarks` key. Each entry becomes one record named after the entry,
//     tracking real_time, cpu_time and iterations (0 when absent).
//   - a single object with an optional `test_name` (defaulting to
//     `defaultName`) and a `metrics` object that is copied through as is.
//
// Key order in the artifact is preserved in the returned metrics.
func Parse(data []byte, defaultName, commit string) ([]benchmark.Record, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	root, err := decode(data)
	if err != nil {
		return nil, err
	}

	root = resolve(root)
	switch root.Kind {
	case yaml.SequenceNode:
		return benchmarkList(root, commit)
	case yaml.MappingNode:
		if list := lookup(root, "benchmarks"); list != nil {
			return benchmarkList(list, commit)
		}
		return singleBenchmark(root, defaultName, commit)
	}

	return nil, ShapeError{Reason: "artifact must be an object or a list"}
}

// Validate checks that `data` has one of the recognized artifact shapes.
func Validate(data []byte) error {
	raw := data
	if !json.Valid(data) {
		converted, err := k8syaml.YAMLToJSON(data)
		if err != nil {
			return fmt.Errorf("unable to parse artifact: %w", err)
		}
		raw = converted
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("unable to parse artifact: %w", err)
	}

	if err := artifactSchema.Validate(inst); err != nil {
		return ShapeError{Reason: err.Error()}
	}
	return nil
}

// decode returns the root node of the artifact. JSON documents are decoded
// with encoding/json, since some valid JSON string escapes are not valid
// YAML; anything else is read as YAML.
func decode(data []byte) (*yaml.Node, error) {
	if json.Valid(data) {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()

		root, err := jsonNode(dec)
		if err != nil {
			return nil, fmt.Errorf("unable to parse artifact: %w", err)
		}
		return root, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unable to parse artifact: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ShapeError{Reason: "artifact is empty"}
	}
	return doc.Content[0], nil
}

// jsonNode reads the next JSON value from `dec` into a node tree, keeping
// object keys in document order.
func jsonNode(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if v == '{' {
			node = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		}

		for dec.More() {
			if node.Kind == yaml.MappingNode {
				key, err := dec.Token()
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content, stringNode(fmt.Sprint(key)))
			}

			child, err := jsonNode(dec)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}

		// closing delimiter
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return node, nil
	case string:
		return stringNode(v), nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(v.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String()}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}

	return nil, errors.New("unexpected JSON token")
}

// stringNode is quoted so that decoding keeps it a string
func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: s}
}

func benchmarkList(list *yaml.Node, commit string) ([]benchmark.Record, error) {
	list = resolve(list)
	if list.Kind != yaml.SequenceNode {
		return nil, ShapeError{Reason: "benchmarks must be a list"}
	}

	records := make([]benchmark.Record, 0, len(list.Content))
	for i, item := range list.Content {
		entry := resolve(item)
		if entry.Kind != yaml.MappingNode {
			return nil, ShapeError{Reason: fmt.Sprintf("benchmark %d is not an object", i)}
		}

		name, ok := stringValue(lookup(entry, "name"))
		if !ok || name == "" {
			return nil, ShapeError{Reason: fmt.Sprintf("benchmark %d has no name", i)}
		}

		var unit nullable.Nullable[string]
		if u, ok := stringValue(lookup(entry, "time_unit")); ok && u != "" {
			unit = nullable.NewNullableWithValue(u)
		}

		metrics := make(benchmark.Metrics, 0, len(googleBenchmarkFields))
		for _, field := range googleBenchmarkFields {
			var value any = 0.0
			if n := lookup(entry, field); n != nil {
				value = nodeValue(n)
			}

			e := benchmark.Entry{Name: field, Value: value}
			if timedFields[field] {
				e.Unit = unit
			}
			metrics = append(metrics, e)
		}

		records = append(records, benchmark.Record{Test: name, Commit: commit, Metrics: metrics})
	}

	return records, nil
}

func singleBenchmark(root *yaml.Node, defaultName, commit string) ([]benchmark.Record, error) {
	name := defaultName
	if n := lookup(root, "test_name"); n != nil {
		s, ok := stringValue(n)
		if !ok || s == "" {
			return nil, ShapeError{Reason: "test_name must be a non-empty string"}
		}
		name = s
	}

	metrics := benchmark.Metrics{}
	if n := lookup(root, "metrics"); n != nil && n.Tag != "!!null" {
		if n.Kind != yaml.MappingNode {
			return nil, ShapeError{Reason: "metrics must be an object"}
		}

		for i := 0; i+1 < len(n.Content); i += 2 {
			key := resolve(n.Content[i]).Value
			metrics = upsert(metrics, benchmark.Entry{Name: key, Value: nodeValue(n.Content[i+1])})
		}
	}

	return []benchmark.Record{{Test: name, Commit: commit, Metrics: metrics}}, nil
}

// upsert replaces the entry with the same name, so that a repeated key keeps
// its first position and its last value.
func upsert(m benchmark.Metrics, e benchmark.Entry) benchmark.Metrics {
	for i := range m {
		if m[i].Name == e.Name {
			m[i] = e
			return m
		}
	}
	return append(m, e)
}

// lookup returns the value of `key` in a mapping node, or nil. The last
// occurrence wins.
func lookup(mapping *yaml.Node, key string) *yaml.Node {
	mapping = resolve(mapping)
	if mapping.Kind != yaml.MappingNode {
		return nil
	}

	var found *yaml.Node
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if resolve(mapping.Content[i]).Value == key {
			found = resolve(mapping.Content[i+1])
		}
	}
	return found
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func stringValue(n *yaml.Node) (string, bool) {
	if n == nil || n.Kind != yaml.ScalarNode || n.Tag != "!!str" {
		return "", false
	}
	return n.Value, true
}

// nodeValue converts a node into a JSON-compatible Go value. Finite numbers
// become float64; everything else keeps its decoded form and is ignored by
// metric tracking.
func nodeValue(n *yaml.Node) any {
	n = resolve(n)

	if n.Kind == yaml.ScalarNode {
		switch n.Tag {
		case "!!int", "!!float":
			if f, ok := parseNumber(n); ok {
				return f
			}
			return n.Value
		case "!!null":
			return nil
		}
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return n.Value
	}
	return normalize(v)
}

func parseNumber(n *yaml.Node) (float64, bool) {
	var f float64
	if err := n.Decode(&f); err != nil {
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(n.Value, "_", ""), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// normalize makes a decoded YAML value encodable as JSON.
func normalize(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = normalize(val)
		}
		return out
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
		return v
	}
	return v
}

// testNameFromPath returns the base filename without its extension
func testNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
