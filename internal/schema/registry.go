// Package schema maps form-type identifiers onto the fixed column layouts of
// their destination sheets, and formats arbitrary submission payloads into
// rows matching those layouts.
package schema

import "strings"

// Mapping associates a form type with a destination sheet and its ordered
// column list. Column order is a contract with the receiving spreadsheet:
// position 0 is always the timestamp, and positions 1..n-1 correspond 1:1 to
// specific fields. New columns must be appended at the end so historical
// rows keep their alignment.
type Mapping struct {
	SheetName string
	Columns   []string
}

// mappings is the static registry, loaded once and never mutated at runtime.
var mappings = map[string]Mapping{
	"contact_submissions": {
		SheetName: "Contact Submissions",
		Columns: []string{
			"Timestamp", "Name", "Email", "Phone", "Subject",
			"Message", "City", "State", "PIN Code", "WhatsApp",
		},
	},
	"agent_submissions": {
		SheetName: "Agent Submissions",
		Columns: []string{
			"Timestamp", "Name", "Email", "Phone", "WhatsApp",
			"City", "State", "PIN Code", "Languages Known",
			"Occupation", "Assisted By Agent",
		},
	},
	"franchise_applications": {
		SheetName: "Franchise Applications",
		Columns: []string{
			"Timestamp", "Name", "Email", "Phone", "WhatsApp",
			"City", "State", "PIN Code", "Investment Range",
			"Property Type", "Property Size (sqft)", "Assisted By Agent",
		},
	},
	"location_submissions": {
		SheetName: "Location Submissions",
		Columns: []string{
			"Timestamp", "Name", "Phone", "WhatsApp", "State",
			"City", "PIN Code", "Landmark",
		},
	},
}

// Lookup returns the column mapping for a form type. A miss is not an
// error: unmapped form types take the generic fallback path, so no
// submission is ever dropped.
func Lookup(formType string) (Mapping, bool) {
	m, ok := mappings[formType]
	return m, ok
}

// SheetNameFor derives a human-readable sheet name from a form-type
// identifier: underscores become spaces and each word is title-cased.
// "unknown_form_type" -> "Unknown Form Type". For registered form types this
// agrees with the registry's sheet name.
func SheetNameFor(formType string) string {
	words := strings.Split(formType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// FallbackColumns is the two-column layout used for form types with no
// registered mapping: the timestamp and the JSON-serialized payload.
var FallbackColumns = []string{"Timestamp", "Payload"}
