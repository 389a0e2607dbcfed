package llm

import (
	"context"
	"strings"
)

// StubClient returns fixed canned responses so the whole flow works
// without a credential. Selection is keyword-based on the prompts, the
// same way the demo mode of the hosted service behaves. Responses are
// reproduced verbatim, including the intake response's raw newlines
// inside a JSON string, which downstream parsing treats as malformed and
// degrades from; offline behavior must stay identical.
type StubClient struct{}

// NewStubClient creates the offline stub.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// Complete returns a canned response chosen by inspecting the prompts.
func (c *StubClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	system := strings.ToLower(systemPrompt)
	user := strings.ToLower(userPrompt)

	if strings.Contains(system, "intake") || strings.Contains(user, "intake") {
		return stubIntakeResponse, nil
	}
	if strings.Contains(system, "post visit") || strings.Contains(user, "post visit") {
		return stubPostVisitResponse, nil
	}
	return "{}", nil
}

const stubIntakeResponse = `{
  "intake_structured": {
    "reason": "birth control consult",
    "age": 20,
    "last_period": "2025-01-15",
    "pregnancy_risk": "low",
    "contra_indications": ["none known"],
    "preferences": {"method": "pill", "frequency": "daily"},
    "history": {"smoking": "no", "migraine_with_aura": "no"},
    "insurance": {"has_insurance": false}
  },
  "provider_note": "Chief concern: Patient seeking birth control pill for contraception.
Key history: 20 year old, non-smoker, no migraine with aura, low pregnancy risk.
Red flags: None identified.
Plan suggestion: Consider combination oral contraceptive pill given preferences and no contraindications.",
  "patient_summary": "We talked about your birth control options today. You are 20 years old and prefer a daily pill. You do not smoke and have no history of migraine with aura. Your risk of pregnancy right now is low. We discussed starting a combination birth control pill that you take once a day."
}`

const stubPostVisitResponse = `{
  "patient_summary": {
    "what_we_discussed": "We talked about starting you on a birth control pill. This pill contains hormones that prevent pregnancy. You will take one pill every day at the same time. It is important to take it every day to keep you protected.",
    "next_steps": [
      "Start taking the pill tomorrow morning with your first meal",
      "Pick up your prescription at the pharmacy within 3 days",
      "Schedule a follow up in 3 months to check how you are doing"
    ],
    "watch_fors": [
      "If you miss a pill, take it as soon as you remember",
      "If you have severe chest pain or leg swelling, call us right away",
      "If you have unusual bleeding that lasts more than a week, let us know"
    ]
  },
  "plain_text": "We talked about starting you on a birth control pill. This pill contains hormones that prevent pregnancy. You will take one pill every day at the same time. It is important to take it every day to keep you protected.\n\nNext steps:\n- Start taking the pill tomorrow morning with your first meal\n- Pick up your prescription at the pharmacy within 3 days\n- Schedule a follow up in 3 months to check how you are doing\n\nWatch for:\n- If you miss a pill, take it as soon as you remember\n- If you have severe chest pain or leg swelling, call us right away\n- If you have unusual bleeding that lasts more than a week, let us know"
}`
