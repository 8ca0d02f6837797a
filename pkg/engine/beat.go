package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dramaturge/dramaturge/pkg/dice"
	"github.com/dramaturge/dramaturge/pkg/llm"
	"github.com/dramaturge/dramaturge/pkg/models"
)

// resolveBeat plays the next planned action of the scene: dice resolution
// biased by tropes, an actual outcome honoring the roll, prose, and buffered
// character deltas.
func (e *Engine) resolveBeat(ctx context.Context, w *models.World, scene *models.Scene, overrideRoll *int) (*models.Beat, error) {
	if len(scene.Beats) >= len(scene.PlannedActions) {
		return nil, ErrNoActiveScene
	}
	planned := scene.PlannedActions[len(scene.Beats)]
	return e.resolveBeatAction(ctx, w, scene, planned, overrideRoll)
}

// resolveBeatAction resolves one concrete actor/action pair as the scene's
// next beat. overrideRoll replaces the random raw roll (director use).
func (e *Engine) resolveBeatAction(ctx context.Context, w *models.World, scene *models.Scene, planned models.PlannedAction, overrideRoll *int) (*models.Beat, error) {
	sceneContext := beatSceneContext(scene)

	roll := e.dice.ResolveAction(ctx, dice.ResolveParams{
		Action:       planned.Action,
		Actor:        planned.Actor,
		SceneContext: sceneContext,
		Pool:         w.GlobalTropePool,
		NTropes:      beatTropeDraw,
		OverrideRoll: overrideRoll,
	})

	tropesActive := make([]string, 0, len(roll.Modifiers))
	for _, m := range roll.Modifiers {
		tropesActive = append(tropesActive, m.Trope)
	}

	actualOutcome := e.resolveActualOutcome(ctx, w, scene, planned, roll, sceneContext)
	prose := e.writeBeatProse(ctx, w, scene, planned, roll, actualOutcome)
	deltas := e.calculateBeatDeltas(ctx, w, scene, planned, actualOutcome)

	beat := models.Beat{
		ID:              shortID(),
		SceneID:         scene.ID,
		Sequence:        len(scene.Beats) + 1,
		Actor:           planned.Actor,
		IntendedAction:  planned.Action,
		DiceRoll:        roll,
		ActualOutcome:   actualOutcome,
		Prose:           prose,
		CharacterDeltas: deltas,
		TropesActive:    tropesActive,
	}
	scene.Beats = append(scene.Beats, beat)
	w.CurrentBeatIndex = len(scene.Beats)
	return &scene.Beats[len(scene.Beats)-1], nil
}

// resolveActualOutcome turns the intended action and the dice outcome into
// what actually happened. Failure degrades to a templated outcome line.
func (e *Engine) resolveActualOutcome(ctx context.Context, w *models.World, scene *models.Scene, planned models.PlannedAction, roll models.DiceRoll, sceneContext string) string {
	fallback := fmt.Sprintf("%s attempts: %s. The result is a %s.",
		planned.Actor, planned.Action, strings.ReplaceAll(string(roll.Outcome), "_", " "))

	actorProfile := "(unknown actor)"
	if c, ok := w.Characters[planned.Actor]; ok {
		actorProfile = c.PromptText()
	}

	user, err := e.prompts.Render("generators", "BEAT_RESOLVER", map[string]string{
		"actor":           planned.Actor,
		"action":          planned.Action,
		"dice_outcome":    string(roll.Outcome),
		"final_value":     fmt.Sprintf("%d", roll.Final),
		"scene_context":   sceneContext,
		"actor_profile":   actorProfile,
		"other_characters": beatOthersText(w, scene, planned.Actor),
	})
	if err != nil {
		return fallback
	}

	outcome, err := e.strong.Complete(ctx, llm.Request{
		System:    "You resolve a character's attempted action into what actually happened, strictly honoring the dice outcome tier.",
		User:      user,
		MaxTokens: 512,
	})
	if err != nil || strings.TrimSpace(outcome) == "" {
		if err != nil {
			slog.Warn("Beat resolution failed, using templated outcome",
				"actor", planned.Actor, "error", err)
		}
		return fallback
	}
	return strings.TrimSpace(outcome)
}

// writeBeatProse narrates the resolved beat. Failure degrades to the actual
// outcome text.
func (e *Engine) writeBeatProse(ctx context.Context, w *models.World, scene *models.Scene, planned models.PlannedAction, roll models.DiceRoll, actualOutcome string) string {
	user, err := e.prompts.Render("generators", "BEAT_PROSE_WRITER", map[string]string{
		"actor":          planned.Actor,
		"actual_outcome": actualOutcome,
		"dice_outcome":   string(roll.Outcome),
		"scene_setting":  scene.Setting,
		"recent_prose":   recentBeatProse(scene, 3),
	})
	if err != nil {
		return actualOutcome
	}

	prose, err := e.strong.Complete(ctx, llm.Request{
		System:    "You are a novelist writing the next moment of a scene in vivid, economical prose.",
		User:      user,
		MaxTokens: 768,
	})
	if err != nil || strings.TrimSpace(prose) == "" {
		if err != nil {
			slog.Warn("Beat prose failed, using outcome text",
				"actor", planned.Actor, "error", err)
		}
		return actualOutcome
	}
	return strings.TrimSpace(prose)
}

// calculateBeatDeltas derives per-character changes from the beat. Deltas are
// buffered on the beat and applied at scene completion. Failure degrades to a
// single short-term memory on the actor.
func (e *Engine) calculateBeatDeltas(ctx context.Context, w *models.World, scene *models.Scene, planned models.PlannedAction, actualOutcome string) []models.CharacterDelta {
	fallback := []models.CharacterDelta{{
		CharacterName:        planned.Actor,
		NewShortTermMemories: []string{snippet(actualOutcome, 200)},
	}}

	user, err := e.prompts.Render("generators", "BEAT_DELTA_CALCULATOR", map[string]string{
		"actor":            planned.Actor,
		"actual_outcome":   actualOutcome,
		"other_characters": beatOthersText(w, scene, planned.Actor),
	})
	if err != nil {
		return fallback
	}

	var deltas []models.CharacterDelta
	err = e.fast.CompleteStructured(ctx, llm.Request{
		System:    "You compute how a beat changed each character present: memories, internal state, ambitions.",
		User:      user,
		MaxTokens: 1024,
	}, &deltas)
	if err != nil || len(deltas) == 0 {
		if err != nil {
			slog.Warn("Beat delta calculation failed, using fallback memory",
				"actor", planned.Actor, "error", err)
		}
		return fallback
	}

	out := deltas[:0]
	for _, d := range deltas {
		if _, ok := w.Characters[d.CharacterName]; ok {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// beatSceneContext summarizes the scene for resolution prompts: setting,
// place, and the last three resolved beats.
func beatSceneContext(scene *models.Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Setting: %s\n", scene.Setting)
	if scene.PlaceDescription != "" {
		fmt.Fprintf(&b, "Place: %s\n", scene.PlaceDescription)
	}
	recent := scene.Beats
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	if len(recent) > 0 {
		b.WriteString("Recent beats:\n")
		for _, beat := range recent {
			fmt.Fprintf(&b, "- %s: %s\n", beat.Actor, beat.ActualOutcome)
		}
	}
	return b.String()
}

// beatOthersText renders brief profiles of up to two other characters in the
// scene.
func beatOthersText(w *models.World, scene *models.Scene, actor string) string {
	var parts []string
	for _, name := range scene.Actors {
		if name == actor {
			continue
		}
		c, ok := w.Characters[name]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", c.Name, snippet(c.InternalState, 100)))
		if len(parts) == 2 {
			break
		}
	}
	if len(parts) == 0 {
		return "(no other characters present)"
	}
	return strings.Join(parts, "\n")
}

// recentBeatProse returns the prose of the last n beats of the scene.
func recentBeatProse(scene *models.Scene, n int) string {
	beats := scene.Beats
	if len(beats) > n {
		beats = beats[len(beats)-n:]
	}
	var parts []string
	for _, beat := range beats {
		if beat.Prose != "" {
			parts = append(parts, beat.Prose)
		}
	}
	if len(parts) == 0 {
		return "(scene opening)"
	}
	return strings.Join(parts, "\n\n")
}
