package reconcile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/opportunity-matcher/internal/catalog"
)

// ReasonMap maps a flattened display name to the model's justification.
type ReasonMap map[string]string

// Reasons holds one ReasonMap per category. Decode always fills all three.
type Reasons map[catalog.Category]ReasonMap

// reasonEntry is the list form the model sometimes answers with.
type reasonEntry struct {
	Name   string `mapstructure:"name"`
	Reason any    `mapstructure:"reason"`
}

// Decode pulls the per-category reasons out of an extracted object. Each
// section may be a name->reason object, a name->{reason} object or a list
// of {name, reason} objects. Unknown keys are ignored and absent sections
// become empty maps.
func Decode(doc map[string]any) Reasons {
	reasons := make(Reasons, len(catalog.Categories))
	for _, category := range catalog.Categories {
		reasons[category] = decodeSection(doc[string(category)])
	}
	return reasons
}

func decodeSection(raw any) ReasonMap {
	out := make(ReasonMap)

	switch section := raw.(type) {
	case map[string]any:
		for name, value := range section {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if nested, ok := value.(map[string]any); ok {
				value = nested["reason"]
			}
			out[name] = coerceString(value)
		}
	case []any:
		for _, element := range section {
			var entry reasonEntry
			if err := mapstructure.Decode(element, &entry); err != nil {
				continue
			}
			name := strings.TrimSpace(entry.Name)
			if name == "" {
				continue
			}
			out[name] = coerceString(entry.Reason)
		}
	}

	return out
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
