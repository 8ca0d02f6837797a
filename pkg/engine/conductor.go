package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/dramaturge/dramaturge/pkg/models"
	"github.com/dramaturge/dramaturge/pkg/world"
)

// Advance performs exactly one generation step on a world and returns the
// resulting event. Step order: plan an act when none is open, close the act
// when its planned scenes are spent, compose the next scene, resolve the next
// beat, complete the scene when its beats are spent.
func (e *Engine) Advance(ctx context.Context, worldID string) (*Event, error) {
	unlock := e.lockWorld(worldID)
	defer unlock()
	return e.step(ctx, worldID, nil)
}

// AdvanceScene steps until the next scene_completed event (inclusive) and
// returns all events produced. On safety-limit exhaustion the events so far
// are returned alongside ErrSafetyLimit.
func (e *Engine) AdvanceScene(ctx context.Context, worldID string, onEvent func(Event)) ([]Event, error) {
	return e.advanceUntil(ctx, worldID, EventSceneCompleted, sceneSafetyLimit, onEvent)
}

// AdvanceAct steps until the next act_completed event (inclusive) and returns
// all events produced. On safety-limit exhaustion the events so far are
// returned alongside ErrSafetyLimit.
func (e *Engine) AdvanceAct(ctx context.Context, worldID string, onEvent func(Event)) ([]Event, error) {
	return e.advanceUntil(ctx, worldID, EventActCompleted, actSafetyLimit, onEvent)
}

func (e *Engine) advanceUntil(ctx context.Context, worldID string, boundary EventType, limit int, onEvent func(Event)) ([]Event, error) {
	unlock := e.lockWorld(worldID)
	defer unlock()

	var events []Event
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		if !e.store.Alive(worldID) {
			return events, world.ErrNotFound
		}

		event, err := e.step(ctx, worldID, nil)
		if err != nil {
			return events, err
		}
		events = append(events, *event)
		if onEvent != nil {
			onEvent(*event)
		}
		if event.Type == boundary {
			return events, nil
		}
	}
	return events, fmt.Errorf("%w after %d steps", ErrSafetyLimit, limit)
}

// step runs one state-machine transition under the world's store lock. The
// LLM calls of the step happen while the lock is held, so readers observe
// only step-complete states.
func (e *Engine) step(ctx context.Context, worldID string, overrideRoll *int) (*Event, error) {
	var event *Event
	err := e.store.WithWorld(worldID, func(w *models.World) error {
		act := w.CurrentAct()
		if act == nil || act.Status == models.ActCompleted {
			planned, err := e.planAct(ctx, w)
			if err != nil {
				return err
			}
			event = actPlannedEvent(planned)
			return nil
		}

		scene := w.CurrentScene()
		if scene == nil || scene.Status == models.SceneCompleted {
			if len(act.Plan.PlannedScenes) > 0 && len(act.Scenes) >= len(act.Plan.PlannedScenes) {
				e.completeAct(ctx, w, act)
				event = actCompletedEvent(act)
				return nil
			}
			composed, err := e.composeNextScene(ctx, w, act)
			if err != nil {
				return err
			}
			event = &Event{
				Type:        EventSceneComposed,
				SceneNumber: composed.Number,
				Actors:      composed.Actors,
				Setting:     composed.Setting,
				BeatCount:   len(composed.PlannedActions),
			}
			return nil
		}

		if len(scene.Beats) < len(scene.PlannedActions) {
			beat, err := e.resolveBeat(ctx, w, scene, overrideRoll)
			if err != nil {
				return err
			}
			event = &Event{
				Type:           EventBeatResolved,
				SceneNumber:    scene.Number,
				BeatSequence:   beat.Sequence,
				Actor:          beat.Actor,
				IntendedAction: beat.IntendedAction,
				ActualOutcome:  beat.ActualOutcome,
				DiceOutcome:    beat.DiceRoll.Outcome,
				RawRoll:        beat.DiceRoll.Raw,
				FinalValue:     beat.DiceRoll.Final,
				Prose:          beat.Prose,
			}
			return nil
		}

		e.completeScene(ctx, w, scene)
		event = &Event{
			Type:        EventSceneCompleted,
			SceneNumber: scene.Number,
			BeatsCount:  len(scene.Beats),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func actPlannedEvent(act *models.Act) *Event {
	return &Event{
		Type:      EventActPlanned,
		ActNumber: act.Number,
		Title:     act.Title,
	}
}

func actCompletedEvent(act *models.Act) *Event {
	descriptions := make([]string, 0, len(act.WorldEvents))
	for _, we := range act.WorldEvents {
		descriptions = append(descriptions, we.Description)
	}
	return &Event{
		Type:        EventActCompleted,
		ActNumber:   act.Number,
		WorldEvents: descriptions,
	}
}

// AdvanceSteps performs up to n generation steps, returning the events in
// order. Zero steps is a no-op returning an empty list.
func (e *Engine) AdvanceSteps(ctx context.Context, worldID string, steps int, onEvent func(Event)) ([]Event, error) {
	if steps < 0 {
		return nil, NewValidationError("steps", "must be non-negative")
	}
	if !e.store.Alive(worldID) {
		return nil, world.ErrNotFound
	}
	events := []Event{}
	if steps == 0 {
		return events, nil
	}

	unlock := e.lockWorld(worldID)
	defer unlock()

	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		event, err := e.step(ctx, worldID, nil)
		if err != nil {
			return events, err
		}
		events = append(events, *event)
		if onEvent != nil {
			onEvent(*event)
		}
	}
	return events, nil
}

// IsSafetyLimit reports whether err is the advance safety limit.
func IsSafetyLimit(err error) bool {
	return errors.Is(err, ErrSafetyLimit)
}
