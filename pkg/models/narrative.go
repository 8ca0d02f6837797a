package models

import "time"

// Outcome is the five-tier result of a resolved d100 roll.
type Outcome string

const (
	OutcomeCatastrophicFailure Outcome = "catastrophic_failure"
	OutcomeFailure             Outcome = "failure"
	OutcomeMixed               Outcome = "mixed"
	OutcomeSuccess             Outcome = "success"
	OutcomeCriticalSuccess     Outcome = "critical_success"
)

// FateModifier is a bounded signed bias derived from one active trope.
type FateModifier struct {
	Trope     string `json:"trope"`
	Modifier  int    `json:"modifier"`
	Rationale string `json:"rationale"`
}

// DiceRoll is one fully-resolved d100 roll.
// Invariant: Final == clamp(Raw + sum(Modifiers), 1, 100) and
// Outcome == classify(Final).
type DiceRoll struct {
	Raw       int            `json:"raw"`
	Modifiers []FateModifier `json:"modifiers"`
	Final     int            `json:"final"`
	Outcome   Outcome        `json:"outcome"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
}

// ThreadStatus is the lifecycle status of one narrative thread.
type ThreadStatus string

const (
	ThreadActive    ThreadStatus = "active"
	ThreadAdvancing ThreadStatus = "advancing"
	ThreadStalled   ThreadStatus = "stalled"
	ThreadResolved  ThreadStatus = "resolved"
	ThreadSpawned   ThreadStatus = "spawned"
)

// NarrativeThreadState is the live status of one thread.
// Once Resolved, a thread is never demoted.
type NarrativeThreadState struct {
	Thread  string       `json:"thread"`
	Status  ThreadStatus `json:"status"`
	Tension int          `json:"tension"`
	Notes   string       `json:"notes,omitempty"`
}

// Beat is the smallest narrative unit: one character attempts one action,
// resolved by dice and narrated in prose. Append-only within its scene;
// Sequence is dense 1..N.
type Beat struct {
	ID              string           `json:"id"`
	SceneID         string           `json:"scene_id"`
	Sequence        int              `json:"sequence"`
	Actor           string           `json:"actor"`
	IntendedAction  string           `json:"intended_action"`
	DiceRoll        DiceRoll         `json:"dice_roll"`
	ActualOutcome   string           `json:"actual_outcome"`
	Prose           string           `json:"prose"`
	CharacterDeltas []CharacterDelta `json:"character_deltas"`
	TropesActive    []string         `json:"tropes_active"`
}

// SceneStatus is the scene lifecycle phase.
type SceneStatus string

const (
	ScenePlanned    SceneStatus = "planned"
	SceneComposing  SceneStatus = "composing"
	SceneInProgress SceneStatus = "in_progress"
	SceneCompleted  SceneStatus = "completed"
)

// Scene is the meso-scale container of beats sharing setting and actors.
type Scene struct {
	ID                   string                 `json:"id"`
	ActID                string                 `json:"act_id"`
	Number               int                    `json:"number"`
	Actors               []string               `json:"actors"`
	Setting              string                 `json:"setting"`
	PlaceDescription     string                 `json:"place_description"`
	NarrativeThreads     []string               `json:"narrative_threads"`
	ThreadStatesSnapshot []NarrativeThreadState `json:"thread_states_snapshot"`
	TropesInjected       []string               `json:"tropes_injected"`
	Beats                []Beat                 `json:"beats"`
	PlannedActions       []PlannedAction        `json:"planned_actions"`
	FullProse            string                 `json:"full_prose"`
	Status               SceneStatus            `json:"status"`
}

// PlannedAction is one not-yet-resolved beat intent within a scene.
type PlannedAction struct {
	Actor  string `json:"actor"`
	Action string `json:"action"`
}

// WorldEvent is a macro-scale happening generated at act completion.
type WorldEvent struct {
	ID                 string   `json:"id"`
	Description        string   `json:"description"`
	ImpactOnContext    string   `json:"impact_on_context"`
	AffectedCharacters []string `json:"affected_characters"`
	AffectedThreads    []string `json:"affected_threads"`
	SpawnedThreads     []string `json:"spawned_threads"`
}

// TeleologyShift records a mutation of the world's teleology. At most one
// per act.
type TeleologyShift struct {
	Original string `json:"original"`
	Shifted  string `json:"shifted"`
	Reason   string `json:"reason"`
}

// ActPlan is the downward guidance an act imposes on its scenes.
type ActPlan struct {
	PlannedScenes      []string          `json:"planned_scenes"`
	ThreadGoals        map[string]string `json:"thread_goals"`
	CharacterArcs      map[string]string `json:"character_arcs"`
	WorldEventsPlanned []string          `json:"world_events_planned"`
}

// ActStatus is the act lifecycle phase.
type ActStatus string

const (
	ActPlanned    ActStatus = "planned"
	ActInProgress ActStatus = "in_progress"
	ActCompleted  ActStatus = "completed"
)

// Act is the large-scale container of scenes. Scenes complete strictly in
// order; completion emits world events and may shift teleology.
type Act struct {
	ID               string          `json:"id"`
	Number           int             `json:"number"`
	Title            string          `json:"title"`
	Plan             ActPlan         `json:"plan"`
	Scenes           []Scene         `json:"scenes"`
	WorldEvents      []WorldEvent    `json:"world_events"`
	TeleologyShift   *TeleologyShift `json:"teleology_shift,omitempty"`
	ContextEvolution string          `json:"context_evolution,omitempty"`
	Status           ActStatus       `json:"status"`
}

// Mode selects between fully autonomous generation and operator-directed play.
type Mode string

const (
	ModeAutonomous Mode = "autonomous"
	ModeDirector   Mode = "director"
)

// DirectorIntervention records one director operation applied to a world.
type DirectorIntervention struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// World is the top-level narrative aggregate. It is created by
// initialization, mutated only under its store lock by the engine and the
// director protocol, and destroyed only by explicit deletion.
type World struct {
	ID                    string                 `json:"id"`
	SeedDescription       string                 `json:"seed_description"`
	TCCN                  TCCN                   `json:"tccn"`
	Characters            map[string]*Character  `json:"characters"`
	Acts                  []Act                  `json:"acts"`
	CurrentActIndex       int                    `json:"current_act_index"`
	CurrentSceneIndex     int                    `json:"current_scene_index"`
	CurrentBeatIndex      int                    `json:"current_beat_index"`
	ThreadStates          []NarrativeThreadState `json:"thread_states"`
	GlobalTropePool       []Trope                `json:"global_trope_pool"`
	Mode                  Mode                   `json:"mode"`
	DirectorInterventions []DirectorIntervention `json:"director_interventions"`
	AccumulatedProse      string                 `json:"accumulated_prose"`
	Status                string                 `json:"status"`
	CreatedAt             time.Time              `json:"created_at"`
}

// CurrentAct returns the act under generation, or nil before the first plan.
func (w *World) CurrentAct() *Act {
	if w.CurrentActIndex < 0 || w.CurrentActIndex >= len(w.Acts) {
		return nil
	}
	return &w.Acts[w.CurrentActIndex]
}

// CurrentScene returns the scene under generation within the current act,
// or nil when no scene is open.
func (w *World) CurrentScene() *Scene {
	act := w.CurrentAct()
	if act == nil {
		return nil
	}
	if w.CurrentSceneIndex < 0 || w.CurrentSceneIndex >= len(act.Scenes) {
		return nil
	}
	return &act.Scenes[w.CurrentSceneIndex]
}
