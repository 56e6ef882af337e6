// Package encoder turns contact attribute values into fixed-width positional
// lines according to a schema's field layout.
package encoder

import (
	"strings"
	"time"

	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/pkg/logger"
)

// Encoder encodes field-name→value mappings into fixed-length lines.
// Malformed individual values never produce an error; the encoder always
// returns a full-length line.
type Encoder struct {
	log *logger.Logger
}

// New creates an encoder. log may be nil, in which case warnings go to the
// default logger.
func New(log *logger.Logger) *Encoder {
	return &Encoder{log: log}
}

// Encode builds one fixed-width line of exactly schema.LineLength characters
// (runes, not bytes) from the given values. Fields are applied in schema
// order; a later field silently overwrites earlier fields occupying the same
// positions. Fields with an empty SourceField are skipped.
func (e *Encoder) Encode(schema *domain.Schema, values map[string]string) string {
	lineLength := schema.LineLength
	if lineLength == 0 {
		lineLength = schema.CalculateLineLength()
	}

	line := make([]rune, lineLength)
	for i := range line {
		line[i] = ' '
	}

	for _, field := range schema.Fields {
		if field.SourceField == "" {
			continue
		}
		formatted := formatValue(values[field.SourceField], field)
		e.insertValue(line, formatted, field)
	}

	return string(line)
}

// formatValue applies data-type formatting, truncation and padding so the
// result is exactly field.Length runes.
func formatValue(value string, field domain.FieldSpec) string {
	switch field.DataType {
	case domain.DataTypeDate:
		value = formatDate(value, field.DateFormat)
	case domain.DataTypeNumber:
		value = formatNumber(value, field)
	default:
		value = stripLineBreaks(value)
	}

	runes := []rune(value)
	if len(runes) > field.Length {
		runes = runes[:field.Length]
	}

	padChar := ' '
	if field.PaddingChar != "" {
		padChar = []rune(field.PaddingChar)[0]
	}

	pad := strings.Repeat(string(padChar), field.Length-len(runes))
	if field.PaddingSide == domain.PadLeft {
		return pad + string(runes)
	}
	return string(runes) + pad
}

// stripLineBreaks replaces CR, LF and TAB with single spaces so a value can
// never break the positional layout.
func stripLineBreaks(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(value)
}

// dateInputLayouts are tried in order when reparsing incoming date values.
var dateInputLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"20060102",
}

// formatDate reformats a date value using the field's layout. Empty or
// unparsable input yields the empty string, not an error.
func formatDate(value, layout string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if layout == "" {
		layout = "20060102"
	}
	for _, in := range dateInputLayouts {
		if t, err := time.Parse(in, value); err == nil {
			return t.Format(layout)
		}
	}
	return ""
}

// formatNumber strips everything but digits and the decimal point, then
// left-pads with zeros to the field length when ZeroFill is set.
func formatNumber(value string, field domain.FieldSpec) string {
	var b strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return ""
	}
	if field.ZeroFill && len(cleaned) < field.Length {
		cleaned = strings.Repeat("0", field.Length-len(cleaned)) + cleaned
	}
	return cleaned
}

// insertValue writes the formatted value into the line buffer at the field's
// position, clipped to the buffer bounds. An out-of-buffer start position
// skips the field with a warning.
func (e *Encoder) insertValue(line []rune, value string, field domain.FieldSpec) {
	start := field.StartPosition - 1
	if start < 0 || start >= len(line) {
		e.warn("encoder: field start position outside line buffer",
			"field", field.Name,
			"start_position", field.StartPosition,
			"line_length", len(line),
		)
		return
	}

	runes := []rune(value)
	if len(runes) > field.Length {
		runes = runes[:field.Length]
	}
	for i := 0; i < len(runes) && start+i < len(line); i++ {
		line[start+i] = runes[i]
	}
}

func (e *Encoder) warn(msg string, fields ...interface{}) {
	if e.log != nil {
		e.log.Warn(msg, fields...)
		return
	}
	logger.Warn(msg, fields...)
}
