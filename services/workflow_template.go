package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Workflow documents are nested JSON objects. Before submission every
// {{PLACEHOLDER}} token must be substituted; assembly flattens the document
// into dotted keys, substitutes, then rebuilds the nested structure. The
// transformation is pure and reversible: Unflatten(Flatten(D)) == D for any
// document whose keys contain no path separator.

const pathSeparator = "."

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Flatten converts a nested document into a single-level map with dotted
// keys. Array elements are addressed by their decimal index.
func Flatten(doc map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{})
	flattenInto(flat, "", doc)
	return flat
}

func flattenInto(flat map[string]interface{}, prefix string, v interface{}) {
	switch node := v.(type) {
	case map[string]interface{}:
		if len(node) == 0 && prefix != "" {
			flat[prefix] = node
			return
		}
		for k, child := range node {
			key := k
			if prefix != "" {
				key = prefix + pathSeparator + k
			}
			flattenInto(flat, key, child)
		}
	case []interface{}:
		if len(node) == 0 && prefix != "" {
			flat[prefix] = node
			return
		}
		for i, child := range node {
			key := strconv.Itoa(i)
			if prefix != "" {
				key = prefix + pathSeparator + key
			}
			flattenInto(flat, key, child)
		}
	default:
		flat[prefix] = v
	}
}

// Unflatten rebuilds a nested document from dotted keys. A path segment that
// is all digits addresses an array index; anything else an object key.
func Unflatten(flat map[string]interface{}) map[string]interface{} {
	// Insert in sorted key order so array elements appear in index order.
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]interface{})
	for _, key := range keys {
		insertPath(root, strings.Split(key, pathSeparator), flat[key])
	}
	return root
}

func insertPath(node map[string]interface{}, path []string, value interface{}) {
	key := path[0]
	if len(path) == 1 {
		node[key] = value
		return
	}

	child, exists := node[key]
	if isIndexSegment(path[1]) {
		slice, _ := child.([]interface{})
		node[key] = insertSlicePath(slice, path[1:], value)
		return
	}

	childMap, ok := child.(map[string]interface{})
	if !exists || !ok {
		childMap = make(map[string]interface{})
		node[key] = childMap
	}
	insertPath(childMap, path[1:], value)
}

func insertSlicePath(slice []interface{}, path []string, value interface{}) []interface{} {
	idx, _ := strconv.Atoi(path[0])
	for len(slice) <= idx {
		slice = append(slice, nil)
	}

	if len(path) == 1 {
		slice[idx] = value
		return slice
	}

	if isIndexSegment(path[1]) {
		child, _ := slice[idx].([]interface{})
		slice[idx] = insertSlicePath(child, path[1:], value)
		return slice
	}

	childMap, ok := slice[idx].(map[string]interface{})
	if !ok {
		childMap = make(map[string]interface{})
		slice[idx] = childMap
	}
	insertPath(childMap, path[1:], value)
	return slice
}

func isIndexSegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Substitute replaces every {{KEY}} token in the document's string values
// with the corresponding substitution. Unknown tokens are left in place for
// the pre-flight check to catch.
func Substitute(doc map[string]interface{}, substitutions map[string]string) map[string]interface{} {
	flat := Flatten(doc)
	for key, v := range flat {
		s, ok := v.(string)
		if !ok {
			continue
		}
		flat[key] = placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
			name := placeholderPattern.FindStringSubmatch(token)[1]
			if replacement, found := substitutions[name]; found {
				return replacement
			}
			return token
		})
	}
	return Unflatten(flat)
}

// UnresolvedPlaceholders returns every {{...}} token still present in the
// document's string values, with the dotted path where it was found. An
// unresolved placeholder reaching the execution node is a caller bug, not a
// node bug; it must be caught before submission.
func UnresolvedPlaceholders(doc map[string]interface{}) []string {
	flat := Flatten(doc)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var unresolved []string
	for _, key := range keys {
		s, ok := flat[key].(string)
		if !ok {
			continue
		}
		for _, match := range placeholderPattern.FindAllString(s, -1) {
			unresolved = append(unresolved, fmt.Sprintf("%s: %s", key, match))
		}
	}
	return unresolved
}

// BuildWorkflowPayload assembles a submittable document from a template and
// substitutions.
func BuildWorkflowPayload(template map[string]interface{}, substitutions map[string]string) map[string]interface{} {
	return Substitute(template, substitutions)
}
