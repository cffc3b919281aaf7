package filter

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
)

// ParsePath parses an attribute path expression into its components: an
// optional extension schema URI prefix, an attribute name, an optional
// bracketed value filter, and an optional sub-attribute.
func ParsePath(expr string) (Path, error) {
	if strings.TrimSpace(expr) == "" {
		return Path{}, ParseError{Input: expr, Reason: "path cannot be empty"}
	}

	var p Path
	rest := expr

	// An extension-qualified path carries the schema URI up to the last
	// colon before any value filter; colons inside a bracketed literal
	// are part of the filter, not the URI.
	if strings.HasPrefix(rest, "urn:") {
		head := rest
		if bracket := strings.IndexByte(rest, '['); bracket != -1 {
			head = rest[:bracket]
		}
		idx := strings.LastIndex(head, ":")
		if idx == len(rest)-1 {
			return Path{}, ParseError{Input: expr, Reason: "missing attribute after schema URI"}
		}
		p.Schema = rest[:idx]
		rest = rest[idx+1:]
	}

	// Attribute name runs until '[' or '.'
	end := strings.IndexAny(rest, "[.")
	if end == -1 {
		if !validAttrName(rest) {
			return Path{}, ParseError{Input: expr, Reason: "invalid attribute name " + rest}
		}
		p.Attribute = rest
		return p, nil
	}

	name := rest[:end]
	if !validAttrName(name) {
		return Path{}, ParseError{Input: expr, Reason: "invalid attribute name " + name}
	}
	p.Attribute = name

	if rest[end] == '[' {
		closeIdx := strings.IndexByte(rest, ']')
		if closeIdx == -1 {
			return Path{}, ParseError{Input: expr, Reason: "unterminated value filter"}
		}
		cmp, err := ParseFilter(rest[end+1 : closeIdx])
		if err != nil {
			return Path{}, err
		}
		p.Filter = cmp
		rest = rest[closeIdx+1:]
	} else {
		rest = rest[end:]
	}

	if rest == "" {
		return p, nil
	}
	if rest[0] != '.' {
		return Path{}, ParseError{Input: expr, Reason: "unexpected trailing characters " + rest}
	}
	sub := rest[1:]
	if !validAttrName(sub) {
		return Path{}, ParseError{Input: expr, Reason: "invalid sub-attribute name " + sub}
	}
	p.Sub = sub

	return p, nil
}

// ParseFilter parses a single-predicate value filter of the form
// `attr op value` or `attr pr`.
func ParseFilter(expr string) (*Comparison, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(expr))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings
	// Swallow scanner diagnostics, errors surface as parse failures
	s.Error = func(s *scanner.Scanner, msg string) {}

	p := &parser{s: &s}
	p.next()

	cmp, err := p.parseComparison()
	if err != nil {
		return nil, ParseError{Input: expr, Reason: err.Error()}
	}
	if p.tok != scanner.EOF {
		return nil, ParseError{Input: expr, Reason: "unexpected token at end of filter: " + p.lit}
	}
	return cmp, nil
}

type parser struct {
	s   *scanner.Scanner
	tok rune
	lit string
}

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.lit = p.s.TokenText()
}

func (p *parser) parseComparison() (*Comparison, error) {
	var attr string
	switch p.tok {
	case scanner.Ident:
		attr = p.lit
	case '$':
		// $-prefixed names like $ref
		p.next()
		if p.tok != scanner.Ident {
			return nil, fmt.Errorf("expected attribute name after $")
		}
		attr = "$" + p.lit
	default:
		return nil, fmt.Errorf("expected attribute name, got %q", p.lit)
	}
	p.next()

	if p.tok != scanner.Ident {
		return nil, fmt.Errorf("expected operator, got %q", p.lit)
	}
	op := Operator(strings.ToLower(p.lit))
	p.next()

	switch op {
	case OpPresent:
		return &Comparison{Attribute: attr, Op: op}, nil
	case OpEqual, OpNotEqual, OpContains, OpStartsWith:
	default:
		return nil, fmt.Errorf("unsupported operator %q", op)
	}

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &Comparison{Attribute: attr, Op: op, Value: value}, nil
}

func (p *parser) parseValue() (any, error) {
	switch p.tok {
	case scanner.String:
		val := strings.Trim(p.lit, "\"")
		p.next()
		return val, nil
	case scanner.Int, scanner.Float:
		val, err := strconv.ParseFloat(p.lit, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p.lit)
		}
		p.next()
		return val, nil
	case scanner.Ident:
		switch p.lit {
		case "true":
			p.next()
			return true, nil
		case "false":
			p.next()
			return false, nil
		case "null":
			p.next()
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected identifier %q", p.lit)
	default:
		return nil, fmt.Errorf("expected value, got %q", p.lit)
	}
}

// validAttrName reports whether s is a legal attribute name
func validAttrName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == '$' && i == 0:
		case (r >= '0' && r <= '9') || r == '-' || r == '_':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func literalString(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
