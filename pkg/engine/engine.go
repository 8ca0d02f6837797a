// Package engine implements the three-scale narrative state machine: acts
// plan downward, scenes compose and complete, beats resolve by dice. The
// conductor enforces the scale hierarchy and emits the event stream;
// generation failures below it degrade to fallbacks instead of halting a
// world.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dramaturge/dramaturge/pkg/dice"
	"github.com/dramaturge/dramaturge/pkg/llm"
	"github.com/dramaturge/dramaturge/pkg/models"
	"github.com/dramaturge/dramaturge/pkg/prompt"
	"github.com/dramaturge/dramaturge/pkg/trope"
	"github.com/dramaturge/dramaturge/pkg/world"
)

const (
	// defaultTropePoolSize is the global pool drawn at world initialization.
	defaultTropePoolSize = 30

	// beatTropeDraw is how many tropes bias each beat's dice roll.
	beatTropeDraw = 2

	// sceneSafetyLimit and actSafetyLimit bound the advance-until-boundary
	// wrappers against runaway generation.
	sceneSafetyLimit = 20
	actSafetyLimit   = 100

	// tropePoolCap bounds global_trope_pool growth under repeated director
	// force-trope calls; oldest entries are dropped first.
	tropePoolCap = 500
)

// Engine is the narrative conductor. It composes the seeding, character,
// dice and trope services into the temporal generation loop and owns all
// world mutation.
type Engine struct {
	store   *world.Store
	strong  llm.Client
	fast    llm.Client
	prompts *prompt.Registry
	tropes  *trope.Corpus

	seeder     *Seeder
	characters *CharacterService
	dice       *dice.Service
	roller     *dice.Roller

	// defaultPoolSize is used when InitParams does not set a pool size.
	defaultPoolSize int

	// Per-world operation locks: a running advance, initialization, or
	// director operation for one world excludes the others. State access
	// within an operation still goes through the store's world lock.
	opMu    sync.Mutex
	opLocks map[string]*sync.Mutex
}

// New wires an engine. fast may equal strong when only one tier is
// configured.
func New(store *world.Store, strong, fast llm.Client, prompts *prompt.Registry, tropes *trope.Corpus, roller *dice.Roller) *Engine {
	if fast == nil {
		fast = strong
	}
	if roller == nil {
		roller = dice.NewRoller()
	}
	return &Engine{
		store:           store,
		strong:          strong,
		fast:            fast,
		prompts:         prompts,
		tropes:          tropes,
		seeder:          NewSeeder(strong, prompts),
		characters:      NewCharacterService(strong, fast, prompts),
		dice:            dice.NewService(fast, prompts, tropes, roller),
		roller:          roller,
		defaultPoolSize: defaultTropePoolSize,
		opLocks:         make(map[string]*sync.Mutex),
	}
}

// SetDefaultTropePoolSize overrides the pool size used when a world request
// does not specify one. Non-positive values are ignored.
func (e *Engine) SetDefaultTropePoolSize(n int) {
	if n > 0 {
		e.defaultPoolSize = n
	}
}

// Store exposes the world store for read handlers.
func (e *Engine) Store() *world.Store { return e.store }

// Characters exposes the character service for embodiment endpoints.
func (e *Engine) Characters() *CharacterService { return e.characters }

// Tropes exposes the trope corpus.
func (e *Engine) Tropes() *trope.Corpus { return e.tropes }

// Seeder exposes the seeding pipeline.
func (e *Engine) Seeder() *Seeder { return e.seeder }

// lockWorld acquires the per-world operation lock. Concurrent operations on
// one world serialize in arrival order; different worlds are independent.
func (e *Engine) lockWorld(id string) func() {
	e.opMu.Lock()
	mu, ok := e.opLocks[id]
	if !ok {
		mu = &sync.Mutex{}
		e.opLocks[id] = mu
	}
	e.opMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// InitParams configures world initialization.
type InitParams struct {
	SeedDescription string
	Mode            models.Mode
	TropePoolSize   int
	NumCharacters   int
}

// InitializeWorld creates a narrative world from a seed description:
// TCCN seed, full character generation and refinement, global trope pool,
// initial thread states.
func (e *Engine) InitializeWorld(ctx context.Context, p InitParams, progress ProgressFunc) (*models.World, error) {
	if strings.TrimSpace(p.SeedDescription) == "" {
		return nil, NewValidationError("seed_description", "must not be empty")
	}
	if p.Mode == "" {
		p.Mode = models.ModeAutonomous
	}
	if p.Mode != models.ModeAutonomous && p.Mode != models.ModeDirector {
		return nil, NewValidationError("mode", "must be autonomous or director")
	}
	if p.TropePoolSize <= 0 {
		p.TropePoolSize = e.defaultPoolSize
	}

	worldID := shortID()
	progress.emit("starting", fmt.Sprintf("World %s from: %s", worldID, snippet(p.SeedDescription, 60)))

	progress.emit("generating_seed", "Generating world seed (TCCN)...")
	tccn, err := e.seeder.GenerateSeed(ctx, p.SeedDescription)
	if err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	names := make([]string, 0, len(tccn.Characters))
	for _, cs := range tccn.Characters {
		names = append(names, cs.Name)
	}
	progress.emit("seed_ready", fmt.Sprintf("Teleology: %s\nCharacters: %s\nThreads: %d",
		snippet(tccn.Teleology, 120), strings.Join(names, ", "), len(tccn.NarrativeThreads)))

	toGenerate := tccn.Characters
	if p.NumCharacters > 0 && p.NumCharacters < len(toGenerate) {
		toGenerate = toGenerate[:p.NumCharacters]
	}

	characters := make(map[string]*models.Character, len(toGenerate))
	for i, cs := range toGenerate {
		progress.emit("generating_character",
			fmt.Sprintf("Generating character %d/%d: %s...", i+1, len(toGenerate), cs.Name))
		character, err := e.characters.Generate(ctx, tccn, cs)
		if err != nil {
			return nil, fmt.Errorf("generate character %s: %w", cs.Name, err)
		}

		progress.emit("refining_character",
			fmt.Sprintf("Refining character %d/%d: %s...", i+1, len(toGenerate), cs.Name))
		character, err = e.characters.Refine(ctx, character, tccn, 1)
		if err != nil {
			slog.Warn("Character refinement failed, keeping first pass",
				"character", cs.Name, "error", err)
		}
		characters[character.Name] = character
		progress.emit("character_ready",
			fmt.Sprintf("Character ready: %s (%d/%d)", character.Name, i+1, len(toGenerate)))
	}

	progress.emit("sampling_tropes", fmt.Sprintf("Sampling %d tropes...", p.TropePoolSize))
	sample := e.tropes.SampleRandom(p.TropePoolSize)
	progress.emit("tropes_ready", fmt.Sprintf("%d tropes in pool", len(sample.Tropes)))

	threadStates := make([]models.NarrativeThreadState, 0, len(tccn.NarrativeThreads))
	for _, nt := range tccn.NarrativeThreads {
		threadStates = append(threadStates, models.NarrativeThreadState{
			Thread:  nt.Text,
			Status:  models.ThreadActive,
			Tension: 3,
		})
	}

	w := &models.World{
		ID:                    worldID,
		SeedDescription:       p.SeedDescription,
		TCCN:                  tccn,
		Characters:            characters,
		Acts:                  []models.Act{},
		ThreadStates:          threadStates,
		GlobalTropePool:       sample.Tropes,
		Mode:                  p.Mode,
		DirectorInterventions: []models.DirectorIntervention{},
		Status:                "initialized",
		CreatedAt:             time.Now().UTC(),
	}
	if err := e.store.Create(w); err != nil {
		return nil, err
	}
	progress.emit("complete", fmt.Sprintf("World ready: %d characters, %d threads, mode=%s",
		len(characters), len(threadStates), p.Mode))

	snap, err := e.store.Snapshot(worldID)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// SetMode switches a world between autonomous and director mode.
func (e *Engine) SetMode(worldID string, mode models.Mode) error {
	if mode != models.ModeAutonomous && mode != models.ModeDirector {
		return NewValidationError("mode", "must be autonomous or director")
	}
	return e.store.WithWorld(worldID, func(w *models.World) error {
		w.Mode = mode
		return nil
	})
}

// DeleteWorld removes a world. A concurrently running advance finishes its
// current beat against the detached state and then abandons.
func (e *Engine) DeleteWorld(worldID string) error {
	return e.store.Delete(worldID)
}

// DiceHistoryEntry is one resolved roll in a world's dice history.
type DiceHistoryEntry struct {
	Act           int                   `json:"act"`
	Scene         int                   `json:"scene"`
	Beat          int                   `json:"beat"`
	Actor         string                `json:"actor"`
	Action        string                `json:"action"`
	RawRoll       int                   `json:"raw_roll"`
	FateModifiers []models.FateModifier `json:"fate_modifiers"`
	FinalValue    int                   `json:"final_value"`
	Outcome       models.Outcome        `json:"outcome"`
}

// DiceHistory returns every resolved roll in hierarchy order.
func (e *Engine) DiceHistory(worldID string) ([]DiceHistoryEntry, error) {
	var entries []DiceHistoryEntry
	err := e.store.WithWorld(worldID, func(w *models.World) error {
		for _, act := range w.Acts {
			for _, scene := range act.Scenes {
				for _, beat := range scene.Beats {
					entries = append(entries, DiceHistoryEntry{
						Act:           act.Number,
						Scene:         scene.Number,
						Beat:          beat.Sequence,
						Actor:         beat.Actor,
						Action:        beat.IntendedAction,
						RawRoll:       beat.DiceRoll.Raw,
						FateModifiers: beat.DiceRoll.Modifiers,
						FinalValue:    beat.DiceRoll.Final,
						Outcome:       beat.DiceRoll.Outcome,
					})
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ── prompt text helpers ──────────────────────────────────────────────

func threadStatesText(w *models.World) string {
	var lines []string
	for _, ts := range w.ThreadStates {
		lines = append(lines, fmt.Sprintf("- [%s] (tension %d/10) %s",
			strings.ToUpper(string(ts.Status)), ts.Tension, ts.Thread))
	}
	if len(lines) == 0 {
		return "(no threads yet)"
	}
	return strings.Join(lines, "\n")
}

func charactersText(w *models.World) string {
	var parts []string
	for _, c := range w.Characters {
		parts = append(parts, c.PromptText())
	}
	if len(parts) == 0 {
		return "(no characters)"
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func accumulatedEventsText(w *models.World) string {
	var events []string
	for _, act := range w.Acts {
		for _, we := range act.WorldEvents {
			events = append(events, "- "+we.Description)
		}
		for _, scene := range act.Scenes {
			for _, beat := range scene.Beats {
				events = append(events, "- [Beat] "+beat.ActualOutcome)
			}
		}
	}
	if len(events) == 0 {
		return "(no events yet)"
	}
	if len(events) > 30 {
		events = events[len(events)-30:]
	}
	return strings.Join(events, "\n")
}

func actSummariesText(w *models.World) string {
	var parts []string
	for _, act := range w.Acts {
		if act.Status != models.ActCompleted {
			continue
		}
		summary := act.ContextEvolution
		if summary == "" {
			summary = fmt.Sprintf("Act %d: %s", act.Number, act.Title)
		}
		parts = append(parts, fmt.Sprintf("Act %d: %s", act.Number, snippet(summary, 300)))
	}
	if len(parts) == 0 {
		return "(no completed acts)"
	}
	return strings.Join(parts, "\n")
}

// drawFromPool picks n distinct tropes from a world's pool, falling back to
// a fresh corpus sample when the pool is smaller than the draw.
func (e *Engine) drawFromPool(pool []models.Trope, n int) models.TropeSample {
	if n <= 0 {
		return models.TropeSample{Source: models.TropeSampleRandom}
	}
	if len(pool) < n {
		return e.tropes.SampleRandom(n)
	}

	candidates := append([]models.Trope(nil), pool...)
	picked := make([]models.Trope, 0, n)
	for i := 0; i < n; i++ {
		j := e.roller.IntN(len(candidates))
		picked = append(picked, candidates[j])
		candidates[j] = candidates[len(candidates)-1]
		candidates = candidates[:len(candidates)-1]
	}
	return models.TropeSample{Tropes: picked, Source: models.TropeSampleRandom}
}

func tropeSampleText(sample models.TropeSample) string {
	var lines []string
	for _, t := range sample.Tropes {
		lines = append(lines, fmt.Sprintf("- %s: %s", t.Name, t.Description))
	}
	if len(lines) == 0 {
		return "(no tropes)"
	}
	return strings.Join(lines, "\n")
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
