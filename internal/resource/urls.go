package resource

// URLGenerator produces resolvable locations for resources. Transport
// adapters supply their own implementation so generated $ref and
// meta.location values match the deployment's public URL space.
type URLGenerator interface {
	// ResourceURL returns the location of a resource
	ResourceURL(resourceType, id string) string
}

// BaseURLGenerator generates paths of the form {base}/{ResourceType}s/{id}
type BaseURLGenerator struct {
	// Base is the URL prefix, e.g. "https://example.com/scim/v2"
	// (empty for relative paths)
	Base string
}

// ResourceURL implements URLGenerator
func (g BaseURLGenerator) ResourceURL(resourceType, id string) string {
	return g.Base + "/" + resourceType + "s/" + id
}
