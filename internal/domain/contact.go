package domain

import (
	"strings"
	"time"
)

// Contact is a CRM contact record as supplied by the host automation engine.
// Attributes holds the full current attribute set keyed by field alias; core
// fields are mirrored there by the data source.
type Contact struct {
	ID         string            `json:"id" db:"id"`
	Email      string            `json:"email" db:"email"`
	FirstName  string            `json:"first_name" db:"first_name"`
	LastName   string            `json:"last_name" db:"last_name"`
	Attributes map[string]string `json:"attributes" db:"attributes"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// FullName returns "First Last" with surrounding whitespace trimmed. This is
// the computed value behind the fullname/full_name/name field aliases.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Attribute resolves a named attribute. Computed aliases take precedence over
// core fields, which take precedence over the custom attribute map. Missing
// attributes resolve to the empty string.
func (c *Contact) Attribute(name string) string {
	switch strings.ToLower(name) {
	case "fullname", "full_name", "name":
		if v := c.FullName(); v != "" {
			return v
		}
	}
	switch strings.ToLower(name) {
	case "email":
		if c.Email != "" {
			return c.Email
		}
	case "firstname", "first_name":
		if c.FirstName != "" {
			return c.FirstName
		}
	case "lastname", "last_name":
		if c.LastName != "" {
			return c.LastName
		}
	}
	if c.Attributes != nil {
		return c.Attributes[name]
	}
	return ""
}
