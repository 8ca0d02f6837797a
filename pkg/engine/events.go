package engine

import "github.com/dramaturge/dramaturge/pkg/models"

// EventType discriminates the events emitted by the advance loop.
type EventType string

const (
	EventActPlanned     EventType = "act_planned"
	EventSceneComposed  EventType = "scene_composed"
	EventBeatResolved   EventType = "beat_resolved"
	EventSceneCompleted EventType = "scene_completed"
	EventActCompleted   EventType = "act_completed"
)

// Event is one structured record emitted during generation. Fields are
// populated according to Type.
type Event struct {
	Type EventType `json:"type"`

	// act_planned / act_completed
	ActNumber   int      `json:"act_number,omitempty"`
	Title       string   `json:"title,omitempty"`
	WorldEvents []string `json:"world_events,omitempty"`

	// scene_composed / scene_completed
	SceneNumber int      `json:"scene_number,omitempty"`
	Actors      []string `json:"actors,omitempty"`
	Setting     string   `json:"setting,omitempty"`
	BeatCount   int      `json:"beat_count,omitempty"`
	BeatsCount  int      `json:"beats_count,omitempty"`

	// beat_resolved
	BeatSequence   int            `json:"beat_sequence,omitempty"`
	Actor          string         `json:"actor,omitempty"`
	IntendedAction string         `json:"intended_action,omitempty"`
	ActualOutcome  string         `json:"actual_outcome,omitempty"`
	DiceOutcome    models.Outcome `json:"dice_outcome,omitempty"`
	RawRoll        int            `json:"raw_roll,omitempty"`
	FinalValue     int            `json:"final_value,omitempty"`
	Prose          string         `json:"prose,omitempty"`
}

// ProgressFunc receives incremental progress during long-running operations
// (world initialization, advance). Callers bridge it onto SSE streams.
type ProgressFunc func(step, detail string)

func (f ProgressFunc) emit(step, detail string) {
	if f != nil {
		f(step, detail)
	}
}
