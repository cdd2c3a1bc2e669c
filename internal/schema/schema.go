// Package schema wraps santhosh-tekuri/jsonschema for the two documents the
// manager validates: plugin manifests and plugin configurations.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Issue represents a single validation error from the schema.
type Issue struct {
	Path    string // Instance location (e.g., "/name", "/core/min_version")
	Message string // Human-readable error message
	Keyword string // Schema keyword that failed
}

// String formats the issue for operator-facing messages.
func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Compile compiles a decoded schema document registered under url.
// The document is round-tripped through JSON so YAML-decoded maps and Go
// numeric types are accepted.
func Compile(url string, doc any) (*jsonschema.Schema, error) {
	normalized, err := toJSONValue(doc)
	if err != nil {
		return nil, fmt.Errorf("preparing schema %s: %w", url, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, normalized); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return sch, nil
}

// CompileBytes compiles a JSON schema document given as raw bytes.
func CompileBytes(url string, data []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshaling schema JSON: %w", err)
	}
	return Compile(url, doc)
}

// Validate checks instance against sch. The error return is for values that
// cannot be prepared for validation; schema violations are returned as issues.
func Validate(sch *jsonschema.Schema, instance any) ([]Issue, error) {
	inst, err := toJSONValue(instance)
	if err != nil {
		return nil, fmt.Errorf("preparing instance for validation: %w", err)
	}

	err = sch.Validate(inst)
	if err == nil {
		return nil, nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("unexpected validation error type: %w", err)
	}
	return extractIssues(ve), nil
}

// Messages flattens issues into operator-facing strings.
func Messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.String())
	}
	return out
}

// toJSONValue converts v into the representation the validator expects
// (json.Number for numbers, map[string]any for objects).
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(normalizeYAML(v))
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// extractIssues walks the ValidationError tree and returns leaf-level issues.
func extractIssues(ve *jsonschema.ValidationError) []Issue {
	var issues []Issue
	collectIssues(ve, &issues)

	if len(issues) == 0 {
		return []Issue{{Message: ve.Error()}}
	}
	return deduplicate(issues)
}

// collectIssues recursively walks the error tree to find leaf errors with
// specific property information.
func collectIssues(ve *jsonschema.ValidationError, issues *[]Issue) {
	if len(ve.Causes) == 0 {
		path := "/" + strings.Join(ve.InstanceLocation, "/")
		if len(ve.InstanceLocation) == 0 {
			path = ""
		}

		keyword := ""
		msg := ""
		if ve.ErrorKind != nil {
			if kwPath := ve.ErrorKind.KeywordPath(); len(kwPath) > 0 {
				keyword = kwPath[len(kwPath)-1]
			}
			msg = ve.ErrorKind.LocalizedString(printer)
		}

		// Skip generic container errors that aren't informative.
		if keyword == "oneOf" || keyword == "allOf" || keyword == "$ref" || keyword == "" {
			return
		}

		*issues = append(*issues, Issue{Path: path, Message: msg, Keyword: keyword})
		return
	}

	for _, cause := range ve.Causes {
		collectIssues(cause, issues)
	}
}

func deduplicate(issues []Issue) []Issue {
	seen := make(map[string]bool)
	var result []Issue
	for _, issue := range issues {
		key := issue.Path + "|" + issue.Keyword + "|" + issue.Message
		if !seen[key] {
			seen[key] = true
			result = append(result, issue)
		}
	}
	return result
}

// normalizeYAML converts YAML-decoded values to JSON-compatible types.
// yaml.v3 decodes mappings with non-string keys into map[any]any.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, v := range val {
			m[k] = normalizeYAML(v)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, v := range val {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case []any:
		a := make([]any, len(val))
		for i, v := range val {
			a[i] = normalizeYAML(v)
		}
		return a
	default:
		return val
	}
}
