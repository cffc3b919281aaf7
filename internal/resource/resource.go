package resource

import (
	"time"

	"github.com/identra/engine/internal/etag"
	"github.com/identra/engine/internal/schema"
)

// Resource is a protocol-managed identity object: typed core attributes
// for the well-known resource types plus open, schema-validated
// extension attributes.
type Resource struct {
	// ID is the resource identifier, unique within (tenant, resourceType)
	ID string
	// ResourceType is the resource type name
	ResourceType string
	// Schemas is the ordered set of schema URIs the resource declares
	Schemas []string
	// ExternalID is an optional caller-supplied identifier, opaque to
	// the engine
	ExternalID string
	// User holds typed core attributes for User resources
	User *UserCore
	// Group holds typed core attributes for Group resources
	Group *GroupCore
	// Attributes holds the remaining schema-validated core attributes
	Attributes map[string]any
	// Extensions holds extension attributes keyed by schema URI
	Extensions map[string]map[string]any
	// Meta is the engine-stamped metadata
	Meta Meta
}

// FromJSON validates a caller-supplied document in Create context and
// constructs a Resource. Construction fails if any typed core attribute
// fails its own invariant even after schema validation passes.
func FromJSON(resourceType string, doc map[string]any, registry *schema.Registry) (*Resource, error) {
	return FromDocument(resourceType, doc, registry, schema.OpCreate)
}

// FromDocument validates a document in the given operation context and
// constructs a Resource. Engine-produced documents (patch results,
// stored records) use OpPatch context, which skips caller-facing
// mutability rules.
func FromDocument(resourceType string, doc map[string]any, registry *schema.Registry, op schema.Operation) (*Resource, error) {
	normalized, err := registry.Validate(resourceType, doc, op)
	if err != nil {
		return nil, err
	}
	return fromNormalized(resourceType, normalized)
}

func fromNormalized(resourceType string, doc map[string]any) (*Resource, error) {
	res := &Resource{
		ResourceType: resourceType,
		Attributes:   make(map[string]any),
		Extensions:   make(map[string]map[string]any),
	}

	consumed := map[string]bool{
		schema.AttrSchemas:    true,
		schema.AttrID:         true,
		schema.AttrExternalID: true,
		schema.AttrMeta:       true,
	}

	if schemas, ok := doc[schema.AttrSchemas].([]any); ok {
		res.Schemas = make([]string, 0, len(schemas))
		for _, uri := range schemas {
			if s, ok := uri.(string); ok {
				res.Schemas = append(res.Schemas, s)
			}
		}
	}
	if id, ok := doc[schema.AttrID].(string); ok {
		res.ID = id
	}
	if ext, ok := doc[schema.AttrExternalID].(string); ok {
		res.ExternalID = ext
	}

	switch resourceType {
	case TypeUser:
		core, used, err := userCoreFrom(doc)
		if err != nil {
			return nil, err
		}
		res.User = core
		for _, key := range used {
			consumed[key] = true
		}
	case TypeGroup:
		core, used, err := groupCoreFrom(doc)
		if err != nil {
			return nil, err
		}
		res.Group = core
		for _, key := range used {
			consumed[key] = true
		}
	}

	for key, value := range doc {
		if consumed[key] {
			continue
		}
		if ns, ok := value.(map[string]any); ok && isExtensionURI(key) {
			res.Extensions[key] = ns
			continue
		}
		res.Attributes[key] = value
	}

	return res, nil
}

func userCoreFrom(doc map[string]any) (*UserCore, []string, error) {
	core := &UserCore{}
	used := []string{"userName", "name", "displayName", "active", "emails"}

	if raw, ok := doc["userName"].(string); ok {
		userName, err := NewUserName(raw)
		if err != nil {
			return nil, nil, err
		}
		core.UserName = userName
	} else {
		return nil, nil, InvalidAttributeError{Attribute: "userName", Reason: "cannot be empty"}
	}

	if raw, ok := doc["name"].(map[string]any); ok {
		core.Name = &Name{
			Formatted:       stringAt(raw, "formatted"),
			FamilyName:      stringAt(raw, "familyName"),
			GivenName:       stringAt(raw, "givenName"),
			MiddleName:      stringAt(raw, "middleName"),
			HonorificPrefix: stringAt(raw, "honorificPrefix"),
			HonorificSuffix: stringAt(raw, "honorificSuffix"),
		}
	}

	core.DisplayName = stringAt(doc, "displayName")

	if raw, ok := doc["active"].(bool); ok {
		active := raw
		core.Active = &active
	}

	if raw, ok := doc["emails"].([]any); ok {
		core.Emails = make([]Email, 0, len(raw))
		for _, elem := range raw {
			obj, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			primary, _ := obj["primary"].(bool)
			email, err := NewEmail(stringAt(obj, "value"), stringAt(obj, "display"), stringAt(obj, "type"), primary)
			if err != nil {
				return nil, nil, err
			}
			core.Emails = append(core.Emails, email)
		}
	}

	return core, used, nil
}

func groupCoreFrom(doc map[string]any) (*GroupCore, []string, error) {
	core := &GroupCore{}
	used := []string{"displayName", "members"}

	displayName := stringAt(doc, "displayName")
	if displayName == "" {
		return nil, nil, InvalidAttributeError{Attribute: "displayName", Reason: "cannot be empty"}
	}
	core.DisplayName = displayName

	if raw, ok := doc["members"].([]any); ok {
		core.Members = make([]GroupMember, 0, len(raw))
		for _, elem := range raw {
			obj, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			member, err := NewGroupMember(stringAt(obj, "value"), stringAt(obj, "type"), stringAt(obj, "display"))
			if err != nil {
				return nil, nil, err
			}
			core.Members = append(core.Members, member)
		}
	}

	return core, used, nil
}

// Document returns the canonical content document: everything the
// caller supplied, minus meta. This is the form the version engine
// hashes, the patch engine mutates, and storage persists.
func (r *Resource) Document() map[string]any {
	doc := make(map[string]any)

	schemas := make([]any, 0, len(r.Schemas))
	for _, uri := range r.Schemas {
		schemas = append(schemas, uri)
	}
	doc[schema.AttrSchemas] = schemas

	if r.ID != "" {
		doc[schema.AttrID] = r.ID
	}
	if r.ExternalID != "" {
		doc[schema.AttrExternalID] = r.ExternalID
	}

	if r.User != nil {
		doc["userName"] = r.User.UserName.String()
		if r.User.Name != nil && !r.User.Name.IsZero() {
			doc["name"] = nameToJSON(r.User.Name)
		}
		if r.User.DisplayName != "" {
			doc["displayName"] = r.User.DisplayName
		}
		if r.User.Active != nil {
			doc["active"] = *r.User.Active
		}
		if len(r.User.Emails) > 0 {
			emails := make([]any, 0, len(r.User.Emails))
			for _, email := range r.User.Emails {
				emails = append(emails, emailToJSON(email))
			}
			doc["emails"] = emails
		}
	}

	if r.Group != nil {
		doc["displayName"] = r.Group.DisplayName
		if len(r.Group.Members) > 0 {
			members := make([]any, 0, len(r.Group.Members))
			for _, member := range r.Group.Members {
				members = append(members, memberToJSON(member, nil))
			}
			doc["members"] = members
		}
	}

	for key, value := range r.Attributes {
		doc[key] = value
	}
	for uri, ns := range r.Extensions {
		doc[uri] = ns
	}

	return doc
}

// ToJSON re-serializes the resource into its spec-shaped interchange
// form: the content document plus meta, with $ref locations injected
// into reference-bearing fields via the active URL generation strategy.
func (r *Resource) ToJSON(gen URLGenerator) map[string]any {
	doc := r.Document()

	if r.Group != nil && len(r.Group.Members) > 0 {
		members := make([]any, 0, len(r.Group.Members))
		for _, member := range r.Group.Members {
			members = append(members, memberToJSON(member, gen))
		}
		doc["members"] = members
	}

	if ns, ok := r.Extensions[EnterpriseUserURN]; ok {
		if manager, ok := ns["manager"].(map[string]any); ok {
			if value, ok := manager["value"].(string); ok && value != "" && gen != nil {
				injected := make(map[string]any, len(manager)+1)
				for k, v := range manager {
					injected[k] = v
				}
				injected["$ref"] = gen.ResourceURL(TypeUser, value)

				extension := make(map[string]any, len(ns))
				for k, v := range ns {
					extension[k] = v
				}
				extension["manager"] = injected
				doc[EnterpriseUserURN] = extension
			}
		}
	}

	meta := map[string]any{
		"resourceType": r.Meta.ResourceType,
		"created":      r.Meta.Created.UTC().Format(time.RFC3339),
		"lastModified": r.Meta.LastModified.UTC().Format(time.RFC3339),
	}
	if !r.Meta.Version.IsZero() {
		meta["version"] = etag.HTTPFrom(r.Meta.Version).String()
	}
	if gen != nil && r.ID != "" {
		meta["location"] = gen.ResourceURL(r.ResourceType, r.ID)
	} else if r.Meta.Location != "" {
		meta["location"] = r.Meta.Location
	}
	doc[schema.AttrMeta] = meta

	return doc
}

// EnterpriseUserURN is the schema URI of the enterprise User extension
const EnterpriseUserURN = schema.EnterpriseUserURN

func nameToJSON(n *Name) map[string]any {
	out := make(map[string]any)
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set("formatted", n.Formatted)
	set("familyName", n.FamilyName)
	set("givenName", n.GivenName)
	set("middleName", n.MiddleName)
	set("honorificPrefix", n.HonorificPrefix)
	set("honorificSuffix", n.HonorificSuffix)
	return out
}

func emailToJSON(e Email) map[string]any {
	out := map[string]any{"value": e.Value}
	if e.Display != "" {
		out["display"] = e.Display
	}
	if e.Type != "" {
		out["type"] = e.Type
	}
	if e.Primary {
		out["primary"] = true
	}
	return out
}

func memberToJSON(m GroupMember, gen URLGenerator) map[string]any {
	out := map[string]any{"value": m.Value, "type": m.Type}
	if m.Display != "" {
		out["display"] = m.Display
	}
	if gen != nil {
		out["$ref"] = gen.ResourceURL(m.Type, m.Value)
	}
	return out
}

func stringAt(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func isExtensionURI(key string) bool {
	return len(key) > 4 && key[:4] == "urn:"
}
