package semantic

import (
	"fmt"

	"google.golang.org/genai"
)

// DefaultSummaryLanguage is the language requested for summaries and anomaly notes.
const DefaultSummaryLanguage = "French"

// Response keys, in the order the model must emit them. The transcription
// comes last so that a response cut by the output limit still carries the
// other fields.
var responseOrder = []string{"summary", "silenceClassification", "anomalies", "transcription"}

// instruction builds the analysis request sent alongside the audio.
func instruction(language string) string {
	return fmt.Sprintf(`You are a broadcast quality engineer. Analyze this radio recording and answer in %[1]s.

1. summary: a concise summary of the content.
2. silenceClassification: classify blank passages.
   - "natural": pauses, breathing, dramatic effect consistent with the content.
   - "technical": signal loss, dead air, or silence longer than 5 seconds without context.
   - "none": no notable silence.
3. anomalies: a list of technical or content anomalies (saturation, noise, dropouts). Empty if none.
4. transcription: a verbatim transcription of the speech. Write this field last.

Respond with a single JSON object and nothing else.`, language)
}

// responseSchema constrains the model output to the fields Reconcile reads.
func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {
				Type:        genai.TypeString,
				Description: "Concise summary of the recording.",
			},
			"silenceClassification": {
				Type: genai.TypeString,
				Enum: []string{
					string(SilenceNatural),
					string(SilenceTechnical),
					string(SilenceNone),
				},
				Description: "Nature of the silences found in the recording.",
			},
			"anomalies": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Detected anomalies.",
			},
			"transcription": {
				Type:        genai.TypeString,
				Description: "Verbatim transcription.",
			},
		},
		Required:         responseOrder,
		PropertyOrdering: responseOrder,
	}
}
