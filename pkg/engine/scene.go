package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dramaturge/dramaturge/pkg/llm"
	"github.com/dramaturge/dramaturge/pkg/models"
)

// sceneTropeDraw is how many tropes are injected into each scene's
// composition.
const sceneTropeDraw = 3

// shortTermMemoryCap bounds per-character short-term memory growth across
// scenes; oldest entries are dropped.
const shortTermMemoryCap = 20

type sceneComposeResponse struct {
	Setting          string   `json:"setting"`
	PlaceDescription string   `json:"place_description"`
	Actors           []string `json:"actors" jsonschema:"description=Names of characters present in this scene"`
	NarrativeThreads []string `json:"narrative_threads,omitempty" jsonschema:"description=Threads this scene presses on, verbatim"`
}

type plannedActionResponse struct {
	Actor  string `json:"actor"`
	Action string `json:"action"`
}

type threadStateUpdate struct {
	Thread  string `json:"thread"`
	Status  string `json:"status"`
	Tension int    `json:"tension"`
	Notes   string `json:"notes,omitempty"`
}

// composeNextScene opens the next scene of the current act: setting, place,
// cast, a trope injection, and the planned beat actions. The composer
// degrades to an all-cast scene on model failure.
func (e *Engine) composeNextScene(ctx context.Context, w *models.World, act *models.Act) (*models.Scene, error) {
	number := len(act.Scenes) + 1

	intention := ""
	if number-1 < len(act.Plan.PlannedScenes) {
		intention = act.Plan.PlannedScenes[number-1]
	}

	sample := e.drawFromPool(w.GlobalTropePool, sceneTropeDraw)

	user, err := e.prompts.Render("generators", "ENGINE_SCENE_COMPOSER", map[string]string{
		"tcc_context":        w.TCCN.PromptText(),
		"act_title":          act.Title,
		"scene_intention":    intention,
		"thread_states":      threadStatesText(w),
		"characters":         charactersText(w),
		"accumulated_events": accumulatedEventsText(w),
		"previous_prose":     recentProse(w, 500),
		"tropes":             tropeSampleText(sample),
	})
	if err != nil {
		return nil, err
	}

	var composed sceneComposeResponse
	err = e.strong.CompleteStructured(ctx, llm.Request{
		System:    "You are a scene composer for an unfolding play.",
		User:      user,
		MaxTokens: 1024,
	}, &composed)
	if err != nil || len(composed.Actors) == 0 {
		if err != nil {
			slog.Warn("Scene composition failed, using fallback scene",
				"scene", number, "error", err)
		}
		composed = sceneComposeResponse{
			Setting: intention,
			Actors:  characterNames(w),
		}
		if composed.Setting == "" {
			composed.Setting = "The story continues"
		}
	}
	composed.Actors = knownActors(w, composed.Actors)
	if len(composed.Actors) == 0 {
		composed.Actors = characterNames(w)
	}

	tropeNames := make([]string, 0, len(sample.Tropes))
	for _, t := range sample.Tropes {
		tropeNames = append(tropeNames, t.Name)
	}

	scene := models.Scene{
		ID:                   shortID(),
		ActID:                act.ID,
		Number:               number,
		Actors:               composed.Actors,
		Setting:              composed.Setting,
		PlaceDescription:     composed.PlaceDescription,
		NarrativeThreads:     composed.NarrativeThreads,
		ThreadStatesSnapshot: openThreadStates(w),
		TropesInjected:       tropeNames,
		Status:               models.SceneComposing,
	}

	scene.PlannedActions = e.generateBeatActions(ctx, w, &scene)
	scene.Status = models.SceneInProgress

	act.Scenes = append(act.Scenes, scene)
	w.CurrentSceneIndex = len(act.Scenes) - 1
	w.CurrentBeatIndex = 0
	return &act.Scenes[w.CurrentSceneIndex], nil
}

// generateBeatActions plans the beat intents for a freshly composed scene.
// Failure yields one cautious action per actor instead of an error.
func (e *Engine) generateBeatActions(ctx context.Context, w *models.World, scene *models.Scene) []models.PlannedAction {
	user, err := e.prompts.Render("generators", "BEAT_ACTION_GENERATOR", map[string]string{
		"scene_setting":     scene.Setting,
		"place_description": scene.PlaceDescription,
		"characters":        sceneCharactersText(w, scene),
		"thread_states":     threadStatesText(w),
		"tropes":            strings.Join(scene.TropesInjected, ", "),
	})
	if err != nil {
		return fallbackActions(scene)
	}

	var planned []plannedActionResponse
	err = e.strong.CompleteStructured(ctx, llm.Request{
		System:    "You plan the sequence of character actions (beats) for a scene.",
		User:      user,
		MaxTokens: 1024,
	}, &planned)
	if err != nil || len(planned) == 0 {
		if err != nil {
			slog.Warn("Beat action planning failed, using fallback actions",
				"scene", scene.Number, "error", err)
		}
		return fallbackActions(scene)
	}

	actions := make([]models.PlannedAction, 0, len(planned))
	for _, p := range planned {
		if strings.TrimSpace(p.Actor) == "" || strings.TrimSpace(p.Action) == "" {
			continue
		}
		actions = append(actions, models.PlannedAction{Actor: p.Actor, Action: p.Action})
	}
	if len(actions) == 0 {
		return fallbackActions(scene)
	}
	return actions
}

func fallbackActions(scene *models.Scene) []models.PlannedAction {
	actions := make([]models.PlannedAction, 0, len(scene.Actors))
	for _, actor := range scene.Actors {
		actions = append(actions, models.PlannedAction{
			Actor:  actor,
			Action: fmt.Sprintf("%s observes the scene cautiously.", actor),
		})
	}
	return actions
}

// completeScene closes a finished scene: assembles its prose, folds it into
// the world's accumulated prose, advances thread states, and updates the
// characters who were present.
func (e *Engine) completeScene(ctx context.Context, w *models.World, scene *models.Scene) {
	var prose []string
	for _, beat := range scene.Beats {
		if beat.Prose != "" {
			prose = append(prose, beat.Prose)
		}
	}
	scene.FullProse = strings.Join(prose, "\n\n")
	if scene.FullProse != "" {
		w.AccumulatedProse += fmt.Sprintf("\n\n--- Scene %d ---\n\n%s", scene.Number, scene.FullProse)
	}

	applyBufferedDeltas(w, scene)
	e.advanceThreadStates(ctx, w, scene)
	e.updateCharactersAfterScene(ctx, w, scene)

	scene.Status = models.SceneCompleted
}

// applyBufferedDeltas folds the beat-level character deltas into the live
// profiles. Deltas stay buffered on their beats until the scene closes, so a
// character's profile is stable for the whole scene.
func applyBufferedDeltas(w *models.World, scene *models.Scene) {
	for _, beat := range scene.Beats {
		for _, d := range beat.CharacterDeltas {
			c, ok := w.Characters[d.CharacterName]
			if !ok {
				continue
			}
			c.ShortTermMemory = append(c.ShortTermMemory, d.NewShortTermMemories...)
			c.LongTermMemory = append(c.LongTermMemory, d.NewLongTermMemories...)
			if d.InternalStateShift != "" {
				c.InternalState = d.InternalStateShift
			}
			if d.AmbitionShift != "" {
				c.Ambitions = d.AmbitionShift
			}
			if d.PhysicalStateChange != "" {
				c.PhysicalState = d.PhysicalStateChange
			}
			c.InternalContradictions = append(c.InternalContradictions, d.ContradictionShifts...)
			if len(c.ShortTermMemory) > shortTermMemoryCap {
				c.ShortTermMemory = c.ShortTermMemory[len(c.ShortTermMemory)-shortTermMemoryCap:]
			}
		}
	}
}

// advanceThreadStates re-evaluates every thread after a scene. A resolved
// thread is absorbing and cannot be demoted; unknown statuses fall back to
// active and tension is clamped to 0..10.
func (e *Engine) advanceThreadStates(ctx context.Context, w *models.World, scene *models.Scene) {
	user, err := e.prompts.Render("generators", "THREAD_STATE_ADVANCER", map[string]string{
		"thread_states": threadStatesText(w),
		"scene_prose":   snippet(scene.FullProse, 2000),
		"scene_setting": scene.Setting,
	})
	if err != nil {
		return
	}

	var updates []threadStateUpdate
	err = e.fast.CompleteStructured(ctx, llm.Request{
		System:    "You track the status and tension of narrative threads after each scene.",
		User:      user,
		MaxTokens: 1024,
	}, &updates)
	if err != nil {
		slog.Warn("Thread state advancement failed, keeping current states", "error", err)
		return
	}

	byThread := make(map[string]threadStateUpdate, len(updates))
	for _, u := range updates {
		byThread[strings.TrimSpace(u.Thread)] = u
	}

	for i := range w.ThreadStates {
		ts := &w.ThreadStates[i]
		u, ok := byThread[ts.Thread]
		if !ok {
			if i < len(updates) && len(updates) == len(w.ThreadStates) {
				u = updates[i]
			} else {
				continue
			}
		}
		if ts.Status == models.ThreadResolved {
			continue
		}
		ts.Status = normalizeThreadStatus(u.Status)
		ts.Tension = clampTension(u.Tension)
		if u.Notes != "" {
			ts.Notes = u.Notes
		}
	}
}

func normalizeThreadStatus(s string) models.ThreadStatus {
	switch models.ThreadStatus(strings.ToLower(strings.TrimSpace(s))) {
	case models.ThreadActive, models.ThreadAdvancing, models.ThreadStalled,
		models.ThreadResolved, models.ThreadSpawned:
		return models.ThreadStatus(strings.ToLower(strings.TrimSpace(s)))
	default:
		return models.ThreadActive
	}
}

func clampTension(t int) int {
	if t < 0 {
		return 0
	}
	if t > 10 {
		return 10
	}
	return t
}

// updateCharactersAfterScene rewrites the profile of each actor present from
// the scene's beat summaries and accumulated deltas. The model returns a
// complete replacement profile, applied atomically; a failed or empty rewrite
// preserves the prior profile.
func (e *Engine) updateCharactersAfterScene(ctx context.Context, w *models.World, scene *models.Scene) {
	beatSummaries := beatSummariesText(scene)
	deltas := accumulatedDeltasText(scene)

	for _, name := range scene.Actors {
		character, ok := w.Characters[name]
		if !ok {
			continue
		}

		user, err := e.prompts.Render("updaters", "CHARACTER_STATE_UPDATER", map[string]string{
			"character_profile": character.PromptText(),
			"scene_setting":     scene.Setting,
			"beat_summaries":    beatSummaries,
			"deltas":            deltas,
		})
		if err != nil {
			return
		}

		var rewritten models.Character
		err = e.strong.CompleteStructured(ctx, llm.Request{
			System:    "You rewrite a character's full profile after the events of a scene.",
			User:      user,
			MaxTokens: 2048,
		}, &rewritten)
		if err != nil || strings.TrimSpace(rewritten.InternalState) == "" {
			if err != nil {
				slog.Warn("Character rewrite failed, keeping prior profile",
					"character", name, "error", err)
			}
			continue
		}

		rewritten.Name = name
		if len(rewritten.ShortTermMemory) > shortTermMemoryCap {
			rewritten.ShortTermMemory = rewritten.ShortTermMemory[len(rewritten.ShortTermMemory)-shortTermMemoryCap:]
		}
		*character = rewritten
	}
}

// beatSummariesText lists the scene's resolved beats one per line.
func beatSummariesText(scene *models.Scene) string {
	var lines []string
	for _, beat := range scene.Beats {
		lines = append(lines, fmt.Sprintf("- %s: %s", beat.Actor, beat.ActualOutcome))
	}
	if len(lines) == 0 {
		return "(no beats played)"
	}
	return strings.Join(lines, "\n")
}

// accumulatedDeltasText renders the deltas buffered on the scene's beats, one
// line per character per beat.
func accumulatedDeltasText(scene *models.Scene) string {
	var lines []string
	for _, beat := range scene.Beats {
		for _, d := range beat.CharacterDeltas {
			var parts []string
			if d.InternalStateShift != "" {
				parts = append(parts, "internal state: "+d.InternalStateShift)
			}
			if d.AmbitionShift != "" {
				parts = append(parts, "ambitions: "+d.AmbitionShift)
			}
			if d.PhysicalStateChange != "" {
				parts = append(parts, "physical: "+d.PhysicalStateChange)
			}
			if len(d.NewShortTermMemories) > 0 {
				parts = append(parts, "remembers: "+strings.Join(d.NewShortTermMemories, "; "))
			}
			if len(d.NewLongTermMemories) > 0 {
				parts = append(parts, "will not forget: "+strings.Join(d.NewLongTermMemories, "; "))
			}
			if len(parts) == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("- %s: %s", d.CharacterName, strings.Join(parts, "; ")))
		}
	}
	if len(lines) == 0 {
		return "(no changes recorded)"
	}
	return strings.Join(lines, "\n")
}

// openThreadStates copies the world's non-resolved thread states for a
// scene snapshot.
func openThreadStates(w *models.World) []models.NarrativeThreadState {
	out := make([]models.NarrativeThreadState, 0, len(w.ThreadStates))
	for _, ts := range w.ThreadStates {
		if ts.Status == models.ThreadResolved {
			continue
		}
		out = append(out, ts)
	}
	return out
}

// sceneCharactersText renders the full profiles of the characters present in
// a scene.
func sceneCharactersText(w *models.World, scene *models.Scene) string {
	var parts []string
	for _, name := range scene.Actors {
		if c, ok := w.Characters[name]; ok {
			parts = append(parts, c.PromptText())
		}
	}
	if len(parts) == 0 {
		return "(no characters)"
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// recentProse returns the tail of the accumulated prose for prompt context.
func recentProse(w *models.World, n int) string {
	p := w.AccumulatedProse
	if len(p) <= n {
		if p == "" {
			return "(the story has not begun)"
		}
		return p
	}
	return "..." + p[len(p)-n:]
}

func characterNames(w *models.World) []string {
	names := make([]string, 0, len(w.Characters))
	for name := range w.Characters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// knownActors filters an actor list down to characters that exist in the
// world.
func knownActors(w *models.World, actors []string) []string {
	var out []string
	for _, a := range actors {
		if _, ok := w.Characters[strings.TrimSpace(a)]; ok {
			out = append(out, strings.TrimSpace(a))
		}
	}
	return out
}
