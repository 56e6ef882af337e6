package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DataType enumerates how a field value is formatted before padding.
type DataType string

const (
	DataTypeString DataType = "STRING"
	DataTypeDate   DataType = "DATE"
	DataTypeNumber DataType = "NUMBER"
)

// PaddingSide enumerates which side of a value receives padding characters.
type PaddingSide string

const (
	PadLeft  PaddingSide = "LEFT"
	PadRight PaddingSide = "RIGHT"
)

// FieldSpec describes one positional field in a fixed-width record layout.
// StartPosition is 1-based; SequenceNumber is the dense 1-based import order.
type FieldSpec struct {
	SequenceNumber int         `json:"no"`
	Name           string      `json:"name"`
	StartPosition  int         `json:"start_position"`
	Length         int         `json:"length"`
	DataType       DataType    `json:"data_type"`
	DateFormat     string      `json:"format,omitempty"`
	ZeroFill       bool        `json:"zero_fill,omitempty"`
	PaddingSide    PaddingSide `json:"padding_type"`
	PaddingChar    string      `json:"padding_char"`
	SourceField    string      `json:"source_field"`
}

// Validate checks positional bounds. Fields failing validation are rejected
// at import time, not at encode time.
func (f FieldSpec) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("field name is required")
	}
	if f.StartPosition < 1 {
		return fmt.Errorf("field %s: start_position must be >= 1, got %d", f.Name, f.StartPosition)
	}
	if f.Length < 1 {
		return fmt.Errorf("field %s: length must be >= 1, got %d", f.Name, f.Length)
	}
	return nil
}

// End returns the 1-based exclusive end offset of the field.
func (f FieldSpec) End() int { return f.StartPosition + f.Length }

// Schema is a positional record layout governing one kind of exported record.
type Schema struct {
	ID            string      `json:"id" db:"id"`
	Name          string      `json:"name" db:"name"`
	Description   string      `json:"description" db:"description"`
	FileExtension string      `json:"file_extension" db:"file_extension"`
	Fields        []FieldSpec `json:"fields" db:"fields"`
	LineLength    int         `json:"line_length" db:"line_length"`
	IsPublished   bool        `json:"is_published" db:"is_published"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// SetFields replaces the field list and recomputes LineLength, keeping the
// invariant that LineLength is never smaller than any field's last occupied
// column.
func (s *Schema) SetFields(fields []FieldSpec) {
	s.Fields = fields
	s.LineLength = s.CalculateLineLength()
}

// CalculateLineLength returns the highest column any field occupies, i.e.
// max(StartPosition+Length-1) over all fields.
func (s *Schema) CalculateLineLength() int {
	max := 0
	for _, f := range s.Fields {
		if end := f.StartPosition + f.Length - 1; end > max {
			max = end
		}
	}
	return max
}

// MarshalFields serializes the field list to the JSON interchange format
// shared with the layout-import collaborator.
func (s *Schema) MarshalFields() ([]byte, error) {
	return json.Marshal(s.Fields)
}

// UnmarshalFields parses the JSON interchange format and recomputes LineLength.
func (s *Schema) UnmarshalFields(data []byte) error {
	var fields []FieldSpec
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("parse schema fields: %w", err)
	}
	s.SetFields(fields)
	return nil
}
