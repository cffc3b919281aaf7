package resource

import (
	"strings"
	"time"

	"github.com/identra/engine/internal/etag"
)

// Well-known resource type names with typed core attribute support
const (
	TypeUser  = "User"
	TypeGroup = "Group"
)

// Meta carries the engine-stamped resource metadata
type Meta struct {
	// ResourceType is the resource type name
	ResourceType string
	// Created is when the resource was created
	Created time.Time
	// LastModified is when the resource last changed
	LastModified time.Time
	// Version is the content-derived version in canonical form
	Version etag.Raw
	// Location is the resolvable URI of the resource (optional)
	Location string
}

// UserName is a validated user name
type UserName string

// NewUserName validates and constructs a user name
func NewUserName(value string) (UserName, error) {
	if strings.TrimSpace(value) == "" {
		return "", InvalidAttributeError{Attribute: "userName", Reason: "cannot be empty"}
	}
	return UserName(value), nil
}

func (u UserName) String() string { return string(u) }

// Name holds the components of a user's name
type Name struct {
	Formatted       string
	FamilyName      string
	GivenName       string
	MiddleName      string
	HonorificPrefix string
	HonorificSuffix string
}

// IsZero reports whether all name components are empty
func (n Name) IsZero() bool {
	return n == Name{}
}

// Email is a validated email address entry
type Email struct {
	Value   string
	Display string
	Type    string
	Primary bool
}

// NewEmail validates and constructs an email entry
func NewEmail(value, display, typ string, primary bool) (Email, error) {
	if strings.TrimSpace(value) == "" {
		return Email{}, InvalidAttributeError{Attribute: "emails.value", Reason: "cannot be empty"}
	}
	at := strings.Index(value, "@")
	if at <= 0 || at == len(value)-1 {
		return Email{}, InvalidAttributeError{Attribute: "emails.value", Reason: "malformed email address " + value}
	}
	return Email{Value: value, Display: display, Type: typ, Primary: primary}, nil
}

// GroupMember is a flat membership edge. A group containing another
// group is a reference resolved by lookup, never an embedded copy.
type GroupMember struct {
	// Value is the member resource id
	Value string
	// Type is the member resource type ("User" or "Group")
	Type string
	// Display is an optional human-readable label
	Display string
}

// NewGroupMember validates and constructs a membership edge
func NewGroupMember(value, typ, display string) (GroupMember, error) {
	if strings.TrimSpace(value) == "" {
		return GroupMember{}, InvalidAttributeError{Attribute: "members.value", Reason: "cannot be empty"}
	}
	if typ == "" {
		typ = TypeUser
	}
	if typ != TypeUser && typ != TypeGroup {
		return GroupMember{}, InvalidAttributeError{Attribute: "members.type", Reason: "must be User or Group"}
	}
	return GroupMember{Value: value, Type: typ, Display: display}, nil
}

// UserCore holds the typed core attributes of a User resource
type UserCore struct {
	UserName    UserName
	Name        *Name
	DisplayName string
	Active      *bool
	Emails      []Email
}

// PrimaryEmail returns the email marked primary, or nil
func (u *UserCore) PrimaryEmail() *Email {
	for i := range u.Emails {
		if u.Emails[i].Primary {
			return &u.Emails[i]
		}
	}
	return nil
}

// GroupCore holds the typed core attributes of a Group resource
type GroupCore struct {
	DisplayName string
	Members     []GroupMember
}

// HasMember reports whether the group directly contains the given id
func (g *GroupCore) HasMember(id string) bool {
	for i := range g.Members {
		if g.Members[i].Value == id {
			return true
		}
	}
	return false
}
