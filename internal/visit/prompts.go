package visit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prompt text sent to the text-generation adapter. The wording is part of
// the service contract with demo mode: the offline stub keys off it.
const (
	intakeSystemPrompt = `You convert short intake Q and A into JSON for a clinician and a patient.
Follow the target schema. Unknown fields are null. Do not invent data.`

	intakeUserPromptFormat = `Convert the following Q and A into:
1) intake_structured JSON with fields reason, age, last_period, pregnancy_risk, contra_indications, preferences, history, insurance
2) provider_note with four lines: chief concern, key history, red flags, plan suggestion
3) patient_summary at grade eight reading level with two short paragraphs

Q and A:
%s`

	postVisitSystemPrompt = `You write simple patient explanations. Reading level grade eight. Use short sentences.`

	postVisitUserPromptFormat = `Create a three part summary:
one, what we talked about.
two, what to do next with any dates.
three, what to watch for and when to get help.

Provider note:
%s

Intake structured JSON:
%s`

	transcriptUserPromptFormat = `Create a three part summary:
one, what we talked about.
two, what to do next with any dates.
three, what to watch for and when to get help.

Visit transcript:
%s`
)

// Graceful-degradation values substituted when the adapter response is
// not usable. Intake and summary generation must never fail a visit on a
// malformed model response.
const (
	fallbackProviderNote   = "Intake completed. Review patient responses."
	fallbackPatientSummary = "We reviewed your intake information."

	fallbackPlainSummary = "We discussed your birth control options. Follow up as recommended. Contact us if you have concerns."
)

func fallbackStructuredSummary() map[string]any {
	return map[string]any{
		"what_we_discussed": "We discussed your birth control options.",
		"next_steps":        []any{"Follow up as recommended"},
		"watch_fors":        []any{"Contact us if you have concerns"},
	}
}

func intakeUserPrompt(qa []QA) string {
	lines := make([]string, 0, len(qa))
	for _, pair := range qa {
		lines = append(lines, fmt.Sprintf("Q: %s\nA: %s", pair.Q, pair.A))
	}
	return fmt.Sprintf(intakeUserPromptFormat, strings.Join(lines, "\n"))
}

func postVisitUserPrompt(providerNote string, intakeStructured map[string]any) string {
	structured, err := json.Marshal(intakeStructured)
	if err != nil {
		structured = []byte("{}")
	}
	return fmt.Sprintf(postVisitUserPromptFormat, providerNote, structured)
}

func transcriptUserPrompt(transcript string) string {
	return fmt.Sprintf(transcriptUserPromptFormat, transcript)
}

// intakeOutcome is the parsed (or degraded) result of an intake
// completion.
type intakeOutcome struct {
	Structured     map[string]any
	ProviderNote   string
	PatientSummary string
	Degraded       bool
}

// parseIntakeResponse extracts the three expected top-level fields. A
// response that does not decode as JSON yields the fixed defaults and an
// empty structured object, flagged as degraded.
func parseIntakeResponse(text string) intakeOutcome {
	var parsed struct {
		IntakeStructured map[string]any `json:"intake_structured"`
		ProviderNote     string         `json:"provider_note"`
		PatientSummary   string         `json:"patient_summary"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return intakeOutcome{
			Structured:     map[string]any{},
			ProviderNote:   fallbackProviderNote,
			PatientSummary: fallbackPatientSummary,
			Degraded:       true,
		}
	}
	structured := parsed.IntakeStructured
	if structured == nil {
		structured = map[string]any{}
	}
	return intakeOutcome{
		Structured:     structured,
		ProviderNote:   parsed.ProviderNote,
		PatientSummary: parsed.PatientSummary,
	}
}

// summaryOutcome is the parsed (or degraded) result of a post-visit
// completion. The structured form is returned to the caller but only the
// plain text is persisted.
type summaryOutcome struct {
	Structured map[string]any
	PlainText  string
	Degraded   bool
}

// parseSummaryResponse validates the post-visit response. A response that
// fails to decode, or decodes without a usable plain_text, yields the
// fixed three-part default summary.
func parseSummaryResponse(text string) summaryOutcome {
	var parsed struct {
		PatientSummary map[string]any `json:"patient_summary"`
		PlainText      string         `json:"plain_text"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil || parsed.PlainText == "" {
		return summaryOutcome{
			Structured: fallbackStructuredSummary(),
			PlainText:  fallbackPlainSummary,
			Degraded:   true,
		}
	}
	structured := parsed.PatientSummary
	if structured == nil {
		structured = map[string]any{}
	}
	return summaryOutcome{
		Structured: structured,
		PlainText:  parsed.PlainText,
	}
}
