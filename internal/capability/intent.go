package capability

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rbright/askit/internal/transcript"
)

// Intent is the closed set of service categories.
type Intent string

const (
	IntentElectricityBill Intent = "electricity_bill"
	IntentAadhaarStatus   Intent = "aadhaar_status"
	IntentRationCard      Intent = "ration_card"
	IntentTaxServices     Intent = "tax_services"
	IntentGeneralQuery    Intent = "general_query"
)

// Intents lists every valid intent.
var Intents = []Intent{
	IntentElectricityBill,
	IntentAadhaarStatus,
	IntentRationCard,
	IntentTaxServices,
	IntentGeneralQuery,
}

func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

// IntentAnalysis is the structured interpretation of one transcript.
type IntentAnalysis struct {
	Intent          Intent            `json:"intent"`
	Entities        map[string]string `json:"entities"`
	SimplifiedQuery string            `json:"simplifiedQuery"`
	Language        string            `json:"language"`
	Response        string            `json:"response,omitempty"`
}

// FallbackAnalysis is returned when the provider reply cannot be parsed.
func FallbackAnalysis(sanitized string) IntentAnalysis {
	return IntentAnalysis{
		Intent:          IntentGeneralQuery,
		Entities:        map[string]string{},
		SimplifiedQuery: sanitized,
		Language:        "en",
		Response:        fmt.Sprintf("I understand you're asking about: %s. Let me help you with that.", sanitized),
	}
}

type rawAnalysis struct {
	Intent          string         `json:"intent"`
	Entities        map[string]any `json:"entities"`
	SimplifiedQuery string         `json:"simplifiedQuery"`
	Language        string         `json:"language"`
	Response        string         `json:"response"`
}

// parseAnalysis decodes a provider reply. ok is false when content is not a
// JSON object of the expected shape.
func parseAnalysis(content string, sanitizedInput string) (IntentAnalysis, bool) {
	body := stripCodeFence(content)
	if !strings.HasPrefix(body, "{") {
		return IntentAnalysis{}, false
	}
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return IntentAnalysis{}, false
	}

	analysis := IntentAnalysis{
		Intent:          Intent(strings.ToLower(strings.TrimSpace(raw.Intent))),
		Entities:        make(map[string]string, len(raw.Entities)),
		SimplifiedQuery: transcript.Sanitize(raw.SimplifiedQuery),
		Language:        strings.ToLower(strings.TrimSpace(raw.Language)),
		Response:        transcript.Sanitize(raw.Response),
	}
	if !analysis.Intent.Valid() {
		analysis.Intent = IntentGeneralQuery
	}
	if analysis.SimplifiedQuery == "" {
		analysis.SimplifiedQuery = sanitizedInput
	}
	if analysis.Language == "" {
		analysis.Language = "en"
	}
	for key, value := range raw.Entities {
		key = transcript.Sanitize(key)
		if key == "" || value == nil {
			continue
		}
		analysis.Entities[key] = transcript.Sanitize(stringifyEntity(value))
	}
	return analysis, true
}

func stringifyEntity(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64, bool:
		return fmt.Sprint(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

// stripCodeFence unwraps a ```json fenced block some models emit.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		trimmed = trimmed[newline+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
