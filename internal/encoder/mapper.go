package encoder

import (
	"context"

	"github.com/ignite/aspect-export/internal/domain"
)

// ContactSource resolves a contact's full current attribute set. Implemented
// by the postgres contact repository; the host automation engine supplies
// only contact IDs.
type ContactSource interface {
	Get(ctx context.Context, id string) (*domain.Contact, error)
}

// Mapper resolves a contact's attribute values, including computed aliases,
// into the field-name→value mapping consumed by the Encoder.
type Mapper struct{}

// NewMapper creates a field mapper.
func NewMapper() *Mapper { return &Mapper{} }

// Map pulls each mapped field's source attribute from the contact. Fields
// with an empty SourceField are skipped; missing attributes map to the empty
// string so encoding stays total.
func (m *Mapper) Map(contact *domain.Contact, schema *domain.Schema) map[string]string {
	values := make(map[string]string, len(schema.Fields))
	for _, field := range schema.Fields {
		if field.SourceField == "" {
			continue
		}
		values[field.SourceField] = contact.Attribute(field.SourceField)
	}
	return values
}
