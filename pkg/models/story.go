package models

import (
	"fmt"
	"strings"
)

// CharacterSummary is the lightweight character reference carried by a story seed.
type CharacterSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NarrativeThread is a one-line tropic statement of the form
// "ACTION between ACTORS in CONTEXT serves TELEOLOGY because REASON".
type NarrativeThread struct {
	Text string `json:"text"`
}

// TCCN is the four-part story seed: Teleology, Context, Characters,
// Narrative threads. It is created by the seeding pipeline and mutated only
// at act completion (context evolution and teleology shift).
type TCCN struct {
	Teleology        string             `json:"teleology"`
	Context          string             `json:"context"`
	Characters       []CharacterSummary `json:"characters"`
	NarrativeThreads []NarrativeThread  `json:"narrative_threads"`
}

// PromptText renders the seed as plain text for prompt injection.
func (t *TCCN) PromptText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "TELEOLOGY: %s\n\n", t.Teleology)
	fmt.Fprintf(&b, "CONTEXT: %s\n\n", t.Context)
	b.WriteString("CHARACTERS:\n")
	for _, c := range t.Characters {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
	}
	b.WriteString("\nNARRATIVE THREADS:\n")
	for i, th := range t.NarrativeThreads {
		fmt.Fprintf(&b, "%d. %s\n", i+1, th.Text)
	}
	return b.String()
}
