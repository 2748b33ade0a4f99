package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// resolver is a special-case cell resolution for a single column label,
// overriding the generic payload lookup. The table is ordered and additive:
// new special cases are new entries, not new branches.
type resolver struct {
	column  string
	resolve func(data map[string]any) string
}

var specialResolvers = []resolver{
	// Multi-select language fields arrive as arrays; the sheet shows a
	// comma-separated list.
	{"Languages Known", resolveLanguages},

	// Boolean rendered as the literal strings the sheet's readers expect.
	{"Assisted By Agent", resolveAssistedByAgent},

	// Older forms sent "pincode", newer ones "pin_code".
	{"PIN Code", func(data map[string]any) string {
		return firstNonEmpty(data, "pincode", "pin_code")
	}},

	// The WhatsApp field has been renamed across form revisions.
	{"WhatsApp", func(data map[string]any) string {
		return firstNonEmpty(data, "whatsapp", "whatsapp_number", "whatsappNumber", "wa_number")
	}},
}

// FormatRow normalizes an arbitrary payload into a row matching columns.
// Position 0 is always the supplied timestamp; every other cell is resolved
// from the payload, with absence becoming the empty string. The result
// always has exactly len(columns) cells.
func FormatRow(data map[string]any, columns []string, timestamp time.Time) []string {
	row := make([]string, len(columns))
	if len(columns) == 0 {
		return row
	}
	row[0] = timestamp.UTC().Format(time.RFC3339)

	for i := 1; i < len(columns); i++ {
		row[i] = resolveCell(data, columns[i])
	}
	return row
}

func resolveCell(data map[string]any, column string) string {
	for _, r := range specialResolvers {
		if r.column == column {
			return r.resolve(data)
		}
	}

	key := columnKey(column)
	return firstNonEmpty(data, key, strings.ReplaceAll(key, "_", ""), camelCase(key))
}

// columnKey derives the candidate payload key from a column label:
// lower-cased, whitespace replaced with underscores, parentheses stripped.
// "Property Size (sqft)" -> "property_size_sqft".
func columnKey(column string) string {
	key := strings.ToLower(column)
	key = strings.Join(strings.Fields(key), "_")
	key = strings.ReplaceAll(key, "(", "")
	key = strings.ReplaceAll(key, ")", "")
	return key
}

// camelCase converts a snake_case key to its camelCase equivalent.
func camelCase(key string) string {
	parts := strings.Split(key, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

// firstNonEmpty returns the stringified value of the first key present in
// data with a non-empty value.
func firstNonEmpty(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key]; ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// stringify renders a decoded JSON value as a cell. JSON numbers are
// formatted without exponent notation so identifiers like phone numbers
// survive intact.
func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func resolveLanguages(data map[string]any) string {
	if v, ok := data["languages"]; ok {
		if items, ok := v.([]any); ok {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if s := stringify(item); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, ", ")
		}
		return stringify(v)
	}
	return firstNonEmpty(data, "languages_known", "languagesKnown")
}

func resolveAssistedByAgent(data map[string]any) string {
	v, ok := data["assisted_by_agent"]
	if !ok {
		v, ok = data["assistedByAgent"]
	}
	if !ok {
		return ""
	}
	switch value := v.(type) {
	case bool:
		if value {
			return "Yes"
		}
		return "No"
	case string:
		switch strings.ToLower(value) {
		case "true", "yes":
			return "Yes"
		case "false", "no":
			return "No"
		}
		return value
	default:
		return stringify(v)
	}
}
