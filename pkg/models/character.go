package models

import (
	"fmt"
	"strings"
)

// Character is a full dramatic profile. Created by the character pipeline,
// then rewritten wholesale at scene completion; never mutated mid-scene.
type Character struct {
	Name                   string   `json:"name"`
	InternalState          string   `json:"internal_state"`
	Ambitions              string   `json:"ambitions"`
	Teleology              string   `json:"teleology"`
	Philosophy             string   `json:"philosophy"`
	PhysicalState          string   `json:"physical_state"`
	VoiceStyle             string   `json:"voice_style"`
	LongTermMemory         []string `json:"long_term_memory"`
	ShortTermMemory        []string `json:"short_term_memory"`
	InternalContradictions []string `json:"internal_contradictions"`
}

// PromptText renders the profile as plain text for prompt injection.
func (c *Character) PromptText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "NAME: %s\n", c.Name)
	fmt.Fprintf(&b, "INTERNAL STATE: %s\n", c.InternalState)
	fmt.Fprintf(&b, "AMBITIONS: %s\n", c.Ambitions)
	fmt.Fprintf(&b, "TELEOLOGY: %s\n", c.Teleology)
	fmt.Fprintf(&b, "PHILOSOPHY: %s\n", c.Philosophy)
	fmt.Fprintf(&b, "PHYSICAL STATE: %s\n", c.PhysicalState)
	fmt.Fprintf(&b, "VOICE STYLE: %s\n", c.VoiceStyle)
	if len(c.LongTermMemory) > 0 {
		fmt.Fprintf(&b, "LONG-TERM MEMORY: %s\n", strings.Join(c.LongTermMemory, "; "))
	}
	if len(c.ShortTermMemory) > 0 {
		fmt.Fprintf(&b, "SHORT-TERM MEMORY: %s\n", strings.Join(c.ShortTermMemory, "; "))
	}
	if len(c.InternalContradictions) > 0 {
		fmt.Fprintf(&b, "INTERNAL CONTRADICTIONS: %s\n", strings.Join(c.InternalContradictions, "; "))
	}
	return b.String()
}

// CharacterDelta captures per-beat character changes. Deltas are buffered on
// the scene and applied to live profiles only at scene completion.
type CharacterDelta struct {
	CharacterName        string   `json:"character_name"`
	NewShortTermMemories []string `json:"new_short_term_memories,omitempty"`
	NewLongTermMemories  []string `json:"new_long_term_memories,omitempty"`
	InternalStateShift   string   `json:"internal_state_shift,omitempty"`
	AmbitionShift        string   `json:"ambition_shift,omitempty"`
	ContradictionShifts  []string `json:"contradiction_shifts,omitempty"`
	PhysicalStateChange  string   `json:"physical_state_change,omitempty"`
}
