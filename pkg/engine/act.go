package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dramaturge/dramaturge/pkg/llm"
	"github.com/dramaturge/dramaturge/pkg/models"
)

// actPlanResponse is the structured shape requested from the act planner.
type actPlanResponse struct {
	Title              string            `json:"title"`
	PlannedScenes      []string          `json:"planned_scenes" jsonschema:"description=Ordered scene intentions for this act"`
	ThreadGoals        map[string]string `json:"thread_goals,omitempty"`
	CharacterArcs      map[string]string `json:"character_arcs,omitempty"`
	WorldEventsPlanned []string          `json:"world_events_planned,omitempty"`
}

// worldEventResponse is one generated world event.
type worldEventResponse struct {
	Description        string   `json:"description"`
	Impact             string   `json:"impact"`
	AffectedCharacters []string `json:"affected_characters,omitempty"`
}

type teleologyShiftResponse struct {
	Shifted      bool   `json:"shifted"`
	NewTeleology string `json:"new_teleology,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// planAct opens the next act: plans its scenes and makes it current. The
// planner degrades to a generic three-scene plan when the model output cannot
// be used.
func (e *Engine) planAct(ctx context.Context, w *models.World) (*models.Act, error) {
	number := len(w.Acts) + 1

	user, err := e.prompts.Render("generators", "ACT_PLANNER", map[string]string{
		"tcc_context":        w.TCCN.PromptText(),
		"act_number":         fmt.Sprintf("%d", number),
		"thread_states":      threadStatesText(w),
		"act_summaries":      actSummariesText(w),
		"accumulated_events": accumulatedEventsText(w),
	})
	if err != nil {
		return nil, err
	}

	var plan actPlanResponse
	err = e.strong.CompleteStructured(ctx, llm.Request{
		System:    "You are a dramaturg planning the structure of an act.",
		User:      user,
		MaxTokens: 1536,
	}, &plan)
	if err != nil || len(plan.PlannedScenes) == 0 {
		if err != nil {
			slog.Warn("Act planning failed, using fallback plan", "act", number, "error", err)
		}
		plan = actPlanResponse{
			Title: fmt.Sprintf("Act %d", number),
			PlannedScenes: []string{
				"The situation develops",
				"Tensions rise",
				"A turning point",
			},
		}
	}
	if plan.Title == "" {
		plan.Title = fmt.Sprintf("Act %d", number)
	}

	act := models.Act{
		ID:     shortID(),
		Number: number,
		Title:  plan.Title,
		Plan: models.ActPlan{
			PlannedScenes:      plan.PlannedScenes,
			ThreadGoals:        plan.ThreadGoals,
			CharacterArcs:      plan.CharacterArcs,
			WorldEventsPlanned: plan.WorldEventsPlanned,
		},
		Status: models.ActInProgress,
	}

	w.Acts = append(w.Acts, act)
	w.CurrentActIndex = len(w.Acts) - 1
	w.CurrentSceneIndex = 0
	w.CurrentBeatIndex = 0
	w.Status = "running"
	return &w.Acts[w.CurrentActIndex], nil
}

// generateWorldEvents produces the external pressures a finished act leaves
// behind, biased by tropes drawn from the global pool. Failure yields no
// events, never an error.
func (e *Engine) generateWorldEvents(ctx context.Context, w *models.World, act *models.Act, actSummary string) []models.WorldEvent {
	sample := e.drawFromPool(w.GlobalTropePool, 2)

	user, err := e.prompts.Render("generators", "WORLD_EVENT_GENERATOR", map[string]string{
		"tcc_context":        w.TCCN.PromptText(),
		"act_title":          act.Title,
		"act_summary":        actSummary,
		"thread_states":      threadStatesText(w),
		"accumulated_events": accumulatedEventsText(w),
		"tropes":             tropeSampleText(sample),
	})
	if err != nil {
		slog.Warn("World event prompt unavailable", "error", err)
		return nil
	}

	var generated []worldEventResponse
	err = e.strong.CompleteStructured(ctx, llm.Request{
		System:    "You generate external world events that pressure an unfolding story.",
		User:      user,
		MaxTokens: 1024,
	}, &generated)
	if err != nil {
		slog.Warn("World event generation failed, act proceeds without events",
			"act", act.Number, "error", err)
		return nil
	}

	events := make([]models.WorldEvent, 0, len(generated))
	for _, g := range generated {
		if strings.TrimSpace(g.Description) == "" {
			continue
		}
		events = append(events, models.WorldEvent{
			ID:                 shortID(),
			Description:        g.Description,
			ImpactOnContext:    g.Impact,
			AffectedCharacters: g.AffectedCharacters,
		})
	}
	return events
}

// completeAct closes the current act: generates the world events its outcome
// leaves behind, evaluates whether the teleology has shifted, then evolves
// the world context in light of both. A shift rewrites the world's teleology
// for future acts; it never invalidates plans already made.
func (e *Engine) completeAct(ctx context.Context, w *models.World, act *models.Act) {
	summary := actSummaryText(act)

	act.WorldEvents = e.generateWorldEvents(ctx, w, act, summary)

	if shift := e.evaluateTeleologyShift(ctx, w, summary); shift != nil {
		act.TeleologyShift = shift
		w.TCCN.Teleology = shift.Shifted
	}

	act.ContextEvolution = e.evolveContext(ctx, w, summary, act.WorldEvents)
	if act.ContextEvolution != "" {
		w.TCCN.Context = act.ContextEvolution
	}

	act.Status = models.ActCompleted
}

// evolveContext asks for an updated world context after an act, given the
// act's summary, its world events, and the thread states it left. Empty on
// failure.
func (e *Engine) evolveContext(ctx context.Context, w *models.World, actSummary string, events []models.WorldEvent) string {
	user, err := e.prompts.Render("updaters", "CONTEXT_UPDATER", map[string]string{
		"current_context": w.TCCN.Context,
		"act_summary":     actSummary,
		"world_events":    worldEventLines(events),
		"thread_states":   threadStatesText(w),
	})
	if err != nil {
		return ""
	}
	evolved, err := e.strong.Complete(ctx, llm.Request{
		System:    "You evolve the world context of a story after each act. Respond with the updated context only.",
		User:      user,
		MaxTokens: 1024,
	})
	if err != nil {
		slog.Warn("Context evolution failed, keeping previous context", "error", err)
		return ""
	}
	return strings.TrimSpace(evolved)
}

// evaluateTeleologyShift checks whether the act's events bent the story's
// direction. Nil means no shift (or evaluation failure).
func (e *Engine) evaluateTeleologyShift(ctx context.Context, w *models.World, actSummary string) *models.TeleologyShift {
	user, err := e.prompts.Render("generators", "TELEOLOGY_SHIFT_EVALUATOR", map[string]string{
		"original_teleology": w.TCCN.Teleology,
		"act_summary":        actSummary,
		"accumulated_events": accumulatedEventsText(w),
	})
	if err != nil {
		return nil
	}

	var resp teleologyShiftResponse
	err = e.strong.CompleteStructured(ctx, llm.Request{
		System:    "You evaluate whether a story's driving teleology has shifted.",
		User:      user,
		MaxTokens: 512,
	}, &resp)
	if err != nil {
		slog.Warn("Teleology shift evaluation failed, keeping teleology", "error", err)
		return nil
	}
	if !resp.Shifted || strings.TrimSpace(resp.NewTeleology) == "" {
		return nil
	}
	return &models.TeleologyShift{
		Original: w.TCCN.Teleology,
		Shifted:  resp.NewTeleology,
		Reason:   resp.Reason,
	}
}

// worldEventLines renders the act's generated world events one per line.
func worldEventLines(events []models.WorldEvent) string {
	var lines []string
	for _, we := range events {
		lines = append(lines, "- "+we.Description)
	}
	if len(lines) == 0 {
		return "(no world events)"
	}
	return strings.Join(lines, "\n")
}

// actSummaryText condenses an act into its beat outcomes (last 20) for
// summarization prompts.
func actSummaryText(act *models.Act) string {
	var lines []string
	for _, scene := range act.Scenes {
		for _, beat := range scene.Beats {
			lines = append(lines, fmt.Sprintf("- %s: %s", beat.Actor, beat.ActualOutcome))
		}
	}
	if len(lines) > 20 {
		lines = lines[len(lines)-20:]
	}
	if len(lines) == 0 {
		return fmt.Sprintf("Act %d (%s): no beats played.", act.Number, act.Title)
	}
	return fmt.Sprintf("Act %d (%s):\n%s", act.Number, act.Title, strings.Join(lines, "\n"))
}
