// Package etag implements the content-addressed version engine. A
// resource version is a deterministic hash of the resource's canonical
// content, carried in one of two distinct forms: Raw (the canonical
// form used by storage and conditional operations) and HTTP (the
// wire-decorated weak entity tag). The two types convert losslessly in
// both directions and never coerce implicitly, so callers cannot
// accidentally compare a decorated tag against an undecorated one.
package etag

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Raw is the canonical, undecorated version form
type Raw struct {
	canonical string
}

// HTTP is the wire-decorated version form, rendered as a weak entity tag
type HTTP struct {
	canonical string
}

// Version is implemented by both Raw and HTTP; equality is defined over
// the shared canonical form.
type Version interface {
	canonicalForm() string
}

func (r Raw) canonicalForm() string  { return r.canonical }
func (h HTTP) canonicalForm() string { return h.canonical }

// Compute derives the version of a resource content document. The hash
// is order-independent for object keys and order-preserving for arrays;
// any version field nested under "meta" is excluded first.
func Compute(content map[string]any) (Raw, error) {
	data, err := canonicalJSON(stripMetaVersion(content))
	if err != nil {
		return Raw{}, err
	}
	sum := sha256.Sum256(data)
	return Raw{canonical: hex.EncodeToString(sum[:])}, nil
}

// RawFromString reconstructs a Raw version from its stored canonical form
func RawFromString(s string) Raw {
	return Raw{canonical: s}
}

// String returns the canonical form
func (r Raw) String() string { return r.canonical }

// IsZero reports whether the version is unset
func (r Raw) IsZero() bool { return r.canonical == "" }

// HTTPFrom converts a Raw version to its wire-decorated form
func HTTPFrom(r Raw) HTTP {
	return HTTP{canonical: r.canonical}
}

// RawFrom recovers the canonical form from a wire-decorated version
func RawFrom(h HTTP) Raw {
	return Raw{canonical: h.canonical}
}

// String renders the weak entity tag, e.g. W/"3f2a..."
func (h HTTP) String() string {
	return `W/"` + h.canonical + `"`
}

// IsZero reports whether the version is unset
func (h HTTP) IsZero() bool { return h.canonical == "" }

// ParseHTTP parses a wire entity tag, stripping weak markers and quotes.
// Undecorated canonical strings are accepted as well.
func ParseHTTP(s string) (HTTP, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return HTTP{}, InvalidTagError{Tag: s, Reason: "tag cannot be empty"}
	}
	if strings.HasPrefix(trimmed, "W/") || strings.HasPrefix(trimmed, "w/") {
		trimmed = trimmed[2:]
	}
	if strings.HasPrefix(trimmed, `"`) {
		if !strings.HasSuffix(trimmed, `"`) || len(trimmed) < 2 {
			return HTTP{}, InvalidTagError{Tag: s, Reason: "unbalanced quotes"}
		}
		trimmed = trimmed[1 : len(trimmed)-1]
	}
	if trimmed == "" {
		return HTTP{}, InvalidTagError{Tag: s, Reason: "tag cannot be empty"}
	}
	return HTTP{canonical: trimmed}, nil
}

// Equal compares two versions of either form over their canonical forms
func Equal(a, b Version) bool {
	return a.canonicalForm() == b.canonicalForm()
}

// stripMetaVersion returns content with meta.version removed, leaving
// the input untouched
func stripMetaVersion(content map[string]any) map[string]any {
	meta, ok := content["meta"].(map[string]any)
	if !ok {
		return content
	}
	if _, hasVersion := meta["version"]; !hasVersion {
		return content
	}

	out := make(map[string]any, len(content))
	for k, v := range content {
		out[k] = v
	}
	cleaned := make(map[string]any, len(meta))
	for k, v := range meta {
		if k == "version" {
			continue
		}
		cleaned[k] = v
	}
	out["meta"] = cleaned
	return out
}
