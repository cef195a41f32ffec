package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/sprintly/ai"
)

const systemPrompt = "You are a helpful assistant that classifies people in the venture ecosystem."

const classificationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "role": {"type": "string", "enum": ["founder", "investor", "enabler", "other"]},
    "sector_focus": {"type": "array", "items": {"type": "string"}},
    "stage_focus": {"type": "array", "items": {"type": "string"}},
    "check_size_min": {"type": ["integer", "null"], "minimum": 0},
    "check_size_max": {"type": ["integer", "null"], "minimum": 0},
    "investment_thesis": {"type": ["string", "null"]},
    "location": {"type": ["string", "null"]},
    "tags": {"type": "array", "items": {"type": "string"}, "maxItems": 5},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["role", "sector_focus", "stage_focus", "tags", "confidence"],
  "additionalProperties": false
}`

const classificationPromptTemplate = `You are helping to classify LinkedIn connections for a founder-investor matching platform.

Given a person's information, classify them and extract relevant details.

Input:
- Name: %s
- Company: %s
- Position: %s

Tasks:
1. Determine their ROLE: "founder", "investor", "enabler", or "other".
   Enablers are accelerators, advisors, lawyers, bankers and ecosystem builders.
2. If investor, identify:
   - Sector focus (typical values: %s)
   - Stage focus (typical values: %s)
   - Approximate check size range (min and max in USD)
   - Investment thesis (brief, 1-2 sentences)
   - Geographic focus (e.g. MENA, GCC, North Africa, Dubai, Global)
3. If founder, identify their sector and stage.
4. Generate 3-5 relevant tags.

Output ONLY valid JSON which complies with the schema below. Do not include any preamble or explanation.
Start your response directly with { and end with }.

%s

If information is unclear or missing, use null for that field and lower the confidence score.

Example:
{"role":"investor","sector_focus":["fintech","healthcare"],"stage_focus":["seed","series-a"],"check_size_min":500000,"check_size_max":2000000,"investment_thesis":"Backs B2B fintech infrastructure across the GCC.","location":"Dubai, UAE","tags":["vc","fintech","gcc"],"confidence":0.85}`

// buildUserPrompt renders the classification prompt for one contact.
func buildUserPrompt(name, company, position string) string {
	return fmt.Sprintf(classificationPromptTemplate,
		orUnknown(name),
		orUnknown(company),
		orUnknown(position),
		strings.Join(ai.SectorVocabulary, ", "),
		strings.Join(ai.StageVocabulary, ", "),
		classificationResponseSchema)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
