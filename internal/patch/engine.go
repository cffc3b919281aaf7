// Package patch implements the batch patch operation engine. A batch is
// processed in two phases: every operation is first validated against
// the schema and resolved to concrete targets without mutating anything,
// and only if all of them pass is the batch applied. A single invalid
// operation aborts the whole batch with zero observable change.
package patch

import (
	"reflect"
	"strings"

	"github.com/identra/engine/internal/filter"
	"github.com/identra/engine/internal/resource"
	"github.com/identra/engine/internal/schema"
)

// resolvedOp is a validated operation bound to its schema definitions
type resolvedOp struct {
	op     Operation
	path   filter.Path
	attr   *schema.AttributeDefinition
	target *schema.AttributeDefinition
	// value is the normalized operand (nil for remove)
	value any
	// appendElement marks an add of a single element to a multi-valued
	// attribute (value is one element rather than a list)
	appendElement bool
}

// Apply validates and applies a batch of operations to a resource,
// returning the mutated resource. Partial application is forbidden. The
// caller owns meta restamping; the engine never touches it.
func Apply(res *resource.Resource, ops []Operation, registry *schema.Registry) (*resource.Resource, error) {
	doc := deepCopyMap(res.Document())

	resolved := make([]resolvedOp, 0, len(ops))
	for _, op := range ops {
		expanded, err := expand(op)
		if err != nil {
			return nil, err
		}
		for _, e := range expanded {
			r, err := resolveOp(res.ResourceType, doc, e, registry)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, r)
		}
	}

	for _, r := range resolved {
		if err := applyOp(doc, r); err != nil {
			return nil, err
		}
	}

	out, err := resource.FromDocument(res.ResourceType, doc, registry, schema.OpPatch)
	if err != nil {
		return nil, err
	}
	out.Meta = res.Meta
	return out, nil
}

// expand turns a path-less add/replace (whose value is an object of
// attributes) into one operation per attribute.
func expand(op Operation) ([]Operation, error) {
	switch op.Op {
	case OpAdd, OpRemove, OpReplace:
	default:
		return nil, PathError{Path: op.Path, Reason: "unsupported operation " + string(op.Op)}
	}

	if op.Path != "" {
		return []Operation{op}, nil
	}
	if op.Op == OpRemove {
		return nil, PathError{Path: "", Reason: "remove requires a path"}
	}

	obj, ok := op.Value.(map[string]any)
	if !ok {
		return nil, PathError{Path: "", Reason: "a path-less " + string(op.Op) + " requires an object value"}
	}

	expanded := make([]Operation, 0, len(obj))
	for key, value := range obj {
		if strings.HasPrefix(key, "urn:") {
			ns, ok := value.(map[string]any)
			if !ok {
				return nil, PathError{Path: key, Reason: "extension namespace value must be an object"}
			}
			for attrName, attrValue := range ns {
				expanded = append(expanded, Operation{Op: op.Op, Path: key + ":" + attrName, Value: attrValue})
			}
			continue
		}
		expanded = append(expanded, Operation{Op: op.Op, Path: key, Value: value})
	}
	return expanded, nil
}

// resolveOp is phase one for a single operation: parse the path, bind
// schema definitions, enforce mutability, normalize the operand, and
// confirm filtered targets exist. Nothing is mutated.
func resolveOp(resourceType string, doc map[string]any, op Operation, registry *schema.Registry) (resolvedOp, error) {
	p, err := filter.ParsePath(op.Path)
	if err != nil {
		return resolvedOp{}, PathError{Path: op.Path, Reason: err.Error()}
	}

	attr, err := registry.AttributeByPath(resourceType, p.Schema, p.Attribute, "")
	if err != nil {
		return resolvedOp{}, PathError{Path: op.Path, Reason: err.Error()}
	}
	target := attr
	if p.Sub != "" {
		if attr.Type != schema.TypeComplex {
			return resolvedOp{}, PathError{Path: op.Path, Reason: "attribute " + attr.Name + " has no sub-attributes"}
		}
		target, err = registry.AttributeByPath(resourceType, p.Schema, p.Attribute, p.Sub)
		if err != nil {
			return resolvedOp{}, PathError{Path: op.Path, Reason: err.Error()}
		}
	}
	if p.Filter != nil && !attr.MultiValued {
		return resolvedOp{}, PathError{Path: op.Path, Reason: "value filter on single-valued attribute " + attr.Name}
	}
	if p.Filter != nil && op.Op == OpAdd && p.Sub == "" {
		return resolvedOp{}, PathError{Path: op.Path, Reason: "add with a value filter requires a sub-attribute"}
	}

	current, hasCurrent := currentValue(doc, p, attr)

	if err := checkMutability(op, p, attr, target, hasCurrent); err != nil {
		return resolvedOp{}, err
	}

	r := resolvedOp{op: op, path: p, attr: attr, target: target}

	if op.Op != OpRemove {
		if op.Value == nil {
			return resolvedOp{}, PathError{Path: op.Path, Reason: string(op.Op) + " requires a value"}
		}
		normalized, appendElement, err := normalizeOperand(op, p, attr, target)
		if err != nil {
			return resolvedOp{}, err
		}
		r.value = normalized
		r.appendElement = appendElement
	}

	// Filtered replace/remove (and filtered sub-attribute add) must
	// resolve to at least one element before anything is applied.
	if p.Filter != nil {
		list, _ := current.([]any)
		if countMatches(list, p.Filter) == 0 {
			return resolvedOp{}, PathError{Path: op.Path, Reason: "filter matches no elements"}
		}
	}

	return r, nil
}

func checkMutability(op Operation, p filter.Path, attr, target *schema.AttributeDefinition, hasCurrent bool) error {
	if attr.Mutability == schema.MutabilityReadOnly || target.Mutability == schema.MutabilityReadOnly {
		return MutabilityError{Path: op.Path, Reason: "attribute is readOnly"}
	}

	immutable := attr.Mutability == schema.MutabilityImmutable || target.Mutability == schema.MutabilityImmutable
	if immutable {
		switch op.Op {
		case OpRemove:
			return MutabilityError{Path: op.Path, Reason: "attribute is immutable"}
		case OpReplace:
			if hasCurrent {
				return MutabilityError{Path: op.Path, Reason: "attribute is immutable and already set"}
			}
		case OpAdd:
			if hasCurrent && !attr.MultiValued {
				return MutabilityError{Path: op.Path, Reason: "attribute is immutable and already set"}
			}
		}
	}

	if op.Op == OpRemove && p.Filter == nil && p.Sub == "" && attr.Required {
		return MutabilityError{Path: op.Path, Reason: "required attribute cannot be removed"}
	}
	return nil
}

// normalizeOperand validates the operation value against the target
// definition and reports whether a multi-valued add carries a single
// element rather than a list.
func normalizeOperand(op Operation, p filter.Path, attr, target *schema.AttributeDefinition) (any, bool, error) {
	path := op.Path

	if p.Sub != "" {
		normalized, err := schema.ValidateValue(target, op.Value, path)
		if err != nil {
			return nil, false, TypeMismatchError{Path: path, Reason: err.Error()}
		}
		return normalized, false, nil
	}

	if p.Filter != nil {
		normalized, err := schema.ValidateElement(attr, op.Value, path)
		if err != nil {
			return nil, false, TypeMismatchError{Path: path, Reason: err.Error()}
		}
		return normalized, false, nil
	}

	if attr.MultiValued {
		if _, isList := op.Value.([]any); !isList {
			normalized, err := schema.ValidateElement(attr, op.Value, path)
			if err != nil {
				return nil, false, TypeMismatchError{Path: path, Reason: err.Error()}
			}
			return normalized, op.Op == OpAdd, nil
		}
	}

	normalized, err := schema.ValidateValue(attr, op.Value, path)
	if err != nil {
		return nil, false, TypeMismatchError{Path: path, Reason: err.Error()}
	}
	return normalized, false, nil
}

// applyOp is phase two for a single operation. Resolution already
// validated everything, so failures here are limited to structural
// drift caused by earlier operations in the same batch.
func applyOp(doc map[string]any, r resolvedOp) error {
	container := doc
	if r.path.Schema != "" {
		ns, ok := doc[r.path.Schema].(map[string]any)
		if !ok {
			if r.op.Op == OpRemove {
				return nil
			}
			ns = make(map[string]any)
			doc[r.path.Schema] = ns
		}
		container = ns
	}

	key := r.attr.Name

	switch r.op.Op {
	case OpAdd:
		return applyAdd(container, key, r)
	case OpReplace:
		return applyReplace(container, key, r)
	case OpRemove:
		return applyRemove(container, key, r)
	}
	return nil
}

func applyAdd(container map[string]any, key string, r resolvedOp) error {
	if r.path.Filter != nil {
		// add with filter targets a sub-attribute of matching elements
		list, _ := container[key].([]any)
		setSubOnMatches(list, r.path.Filter, r.target.Name, r.value)
		demoteIfPrimarySet(list, r.path.Filter, r.target.Name, r.value)
		container[key] = list
		return nil
	}

	if r.attr.MultiValued {
		list, _ := container[key].([]any)
		var added []any
		if r.appendElement {
			added = []any{r.value}
		} else if values, ok := r.value.([]any); ok {
			added = values
		} else {
			added = []any{r.value}
		}
		list = append(list, added...)
		for _, elem := range added {
			if obj, ok := elem.(map[string]any); ok {
				if primary, _ := obj["primary"].(bool); primary {
					demoteOtherPrimaries(list, obj)
				}
			}
		}
		container[key] = list
		return nil
	}

	if r.path.Sub != "" {
		obj, ok := container[key].(map[string]any)
		if !ok {
			obj = make(map[string]any)
			container[key] = obj
		}
		obj[r.target.Name] = r.value
		return nil
	}

	container[key] = r.value
	return nil
}

func applyReplace(container map[string]any, key string, r resolvedOp) error {
	if r.path.Filter != nil {
		list, ok := container[key].([]any)
		if !ok {
			return PathError{Path: r.op.Path, Reason: "target is no longer present"}
		}
		if r.path.Sub != "" {
			setSubOnMatches(list, r.path.Filter, r.target.Name, r.value)
			demoteIfPrimarySet(list, r.path.Filter, r.target.Name, r.value)
		} else {
			replaced := false
			for i, elem := range list {
				if r.path.Filter.Matches(elem) {
					list[i] = deepCopyValue(r.value)
					replaced = true
				}
			}
			if !replaced {
				return PathError{Path: r.op.Path, Reason: "target is no longer present"}
			}
			if obj, ok := r.value.(map[string]any); ok {
				if primary, _ := obj["primary"].(bool); primary {
					for _, elem := range list {
						other, ok := elem.(map[string]any)
						if !ok || r.path.Filter.Matches(elem) {
							continue
						}
						if wasPrimary, _ := other["primary"].(bool); wasPrimary {
							other["primary"] = false
						}
					}
				}
			}
		}
		container[key] = list
		return nil
	}

	if r.path.Sub != "" {
		obj, ok := container[key].(map[string]any)
		if !ok {
			obj = make(map[string]any)
			container[key] = obj
		}
		obj[r.target.Name] = r.value
		return nil
	}

	container[key] = r.value
	return nil
}

func applyRemove(container map[string]any, key string, r resolvedOp) error {
	if r.path.Filter != nil {
		list, ok := container[key].([]any)
		if !ok {
			return nil
		}
		if r.path.Sub != "" {
			for _, elem := range list {
				if obj, ok := elem.(map[string]any); ok && r.path.Filter.Matches(elem) {
					delete(obj, r.target.Name)
				}
			}
			container[key] = list
			return nil
		}
		kept := make([]any, 0, len(list))
		for _, elem := range list {
			if !r.path.Filter.Matches(elem) {
				kept = append(kept, elem)
			}
		}
		if len(kept) == 0 {
			delete(container, key)
		} else {
			container[key] = kept
		}
		return nil
	}

	if r.path.Sub != "" {
		if obj, ok := container[key].(map[string]any); ok {
			delete(obj, r.target.Name)
		}
		return nil
	}

	delete(container, key)
	return nil
}

// setSubOnMatches sets a sub-attribute on every element matching the filter
func setSubOnMatches(list []any, f *filter.Comparison, sub string, value any) {
	for _, elem := range list {
		if obj, ok := elem.(map[string]any); ok && f.Matches(elem) {
			obj[sub] = deepCopyValue(value)
		}
	}
}

// demoteIfPrimarySet clears primary on non-matching elements when the
// operation marked matching elements primary
func demoteIfPrimarySet(list []any, f *filter.Comparison, sub string, value any) {
	primary, ok := value.(bool)
	if !ok || !primary || !strings.EqualFold(sub, "primary") {
		return
	}
	for _, elem := range list {
		obj, ok := elem.(map[string]any)
		if !ok || f.Matches(elem) {
			continue
		}
		if wasPrimary, _ := obj["primary"].(bool); wasPrimary {
			obj["primary"] = false
		}
	}
}

// demoteOtherPrimaries clears primary on every element except the given
// one, identified by map reference
func demoteOtherPrimaries(list []any, keep map[string]any) {
	keepRef := reflect.ValueOf(keep).Pointer()
	for _, elem := range list {
		obj, ok := elem.(map[string]any)
		if !ok || reflect.ValueOf(obj).Pointer() == keepRef {
			continue
		}
		if wasPrimary, _ := obj["primary"].(bool); wasPrimary {
			obj["primary"] = false
		}
	}
}

// currentValue returns the present value addressed by a path's attribute
// (before any filter/sub navigation)
func currentValue(doc map[string]any, p filter.Path, attr *schema.AttributeDefinition) (any, bool) {
	container := doc
	if p.Schema != "" {
		ns, ok := doc[p.Schema].(map[string]any)
		if !ok {
			return nil, false
		}
		container = ns
	}
	v, ok := container[attr.Name]
	if !ok || v == nil {
		return nil, false
	}
	if p.Sub != "" && p.Filter == nil {
		obj, isObj := v.(map[string]any)
		if !isObj {
			return v, true
		}
		sub, subOk := obj[p.Sub]
		return sub, subOk && sub != nil
	}
	return v, true
}

func countMatches(list []any, f *filter.Comparison) int {
	n := 0
	for _, elem := range list {
		if f.Matches(elem) {
			n++
		}
	}
	return n
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = deepCopyValue(elem)
		}
		return out
	default:
		return v
	}
}
