package patch

import (
	"strings"

	"github.com/goccy/go-json"
)

// OpType is a patch operation kind
type OpType string

const (
	// OpAdd appends to a multi-valued collection or sets an attribute
	OpAdd OpType = "add"
	// OpRemove deletes the resolved target(s)
	OpRemove OpType = "remove"
	// OpReplace overwrites the resolved target(s) entirely
	OpReplace OpType = "replace"
)

// Operation is a single patch operation: op, optional path expression,
// optional value
type Operation struct {
	// Op is the operation kind
	Op OpType `json:"op"`
	// Path is the optional attribute path expression
	Path string `json:"path,omitempty"`
	// Value is the optional operand
	Value any `json:"value,omitempty"`
}

// ParseOperations decodes an ordered list of {op, path, value} objects.
// Operation kinds are matched case-insensitively per the wire format.
func ParseOperations(data []byte) ([]Operation, error) {
	var ops []Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, PathError{Path: "", Reason: "operations payload is not valid JSON: " + err.Error()}
	}
	for i := range ops {
		ops[i].Op = OpType(strings.ToLower(string(ops[i].Op)))
	}
	return ops, nil
}
