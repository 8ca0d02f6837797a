package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dramaturge/dramaturge/pkg/models"
)

// The director protocol: five typed interventions that bend a running world.
// Every intervention is recorded on the world's intervention log.

func recordIntervention(w *models.World, kind, description string) {
	w.DirectorInterventions = append(w.DirectorInterventions, models.DirectorIntervention{
		Type:        kind,
		Description: description,
		Timestamp:   time.Now().UTC(),
	})
}

// OverrideDice resolves a director-specified action as the scene's next beat
// with a fixed raw roll instead of a random one. Fate modifiers still apply
// on top of the forced roll.
func (e *Engine) OverrideDice(ctx context.Context, worldID, actor, action string, roll int) (*Event, error) {
	if roll < 1 || roll > 100 {
		return nil, NewValidationError("forced_roll", "must be within 1..100")
	}
	if action == "" {
		return nil, NewValidationError("action", "must not be empty")
	}

	unlock := e.lockWorld(worldID)
	defer unlock()

	var event *Event
	err := e.store.WithWorld(worldID, func(w *models.World) error {
		scene := w.CurrentScene()
		if scene == nil || scene.Status == models.SceneCompleted {
			return ErrNoActiveScene
		}
		if _, ok := w.Characters[actor]; !ok {
			return ErrCharacterNotFound
		}
		recordIntervention(w, "override_dice",
			fmt.Sprintf("Forced raw roll %d for %s: %s", roll, actor, action))

		beat, err := e.resolveBeatAction(ctx, w, scene,
			models.PlannedAction{Actor: actor, Action: action}, &roll)
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
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// InjectEvent adds a director-authored world event to the current act,
// affecting every character.
func (e *Engine) InjectEvent(worldID, description string) (*models.WorldEvent, error) {
	if description == "" {
		return nil, NewValidationError("description", "must not be empty")
	}

	unlock := e.lockWorld(worldID)
	defer unlock()

	var injected models.WorldEvent
	err := e.store.WithWorld(worldID, func(w *models.World) error {
		act := w.CurrentAct()
		if act == nil {
			return ErrNoActiveAct
		}
		injected = models.WorldEvent{
			ID:                 shortID(),
			Description:        description,
			ImpactOnContext:    "Director-injected: " + description,
			AffectedCharacters: characterNames(w),
		}
		act.WorldEvents = append(act.WorldEvents, injected)
		recordIntervention(w, "inject_event", description)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &injected, nil
}

// RedirectCharacter replaces a character's ambitions and leaves a directorial
// note in their short-term memory.
func (e *Engine) RedirectCharacter(worldID, name, newDirection string) error {
	if newDirection == "" {
		return NewValidationError("new_direction", "must not be empty")
	}

	unlock := e.lockWorld(worldID)
	defer unlock()

	return e.store.WithWorld(worldID, func(w *models.World) error {
		character, ok := w.Characters[name]
		if !ok {
			return ErrCharacterNotFound
		}
		character.Ambitions = newDirection
		character.ShortTermMemory = append(character.ShortTermMemory,
			"[Director] New direction: "+newDirection)
		if len(character.ShortTermMemory) > shortTermMemoryCap {
			character.ShortTermMemory = character.ShortTermMemory[len(character.ShortTermMemory)-shortTermMemoryCap:]
		}
		recordIntervention(w, "redirect_character",
			fmt.Sprintf("%s redirected: %s", name, newDirection))
		return nil
	})
}

// ForceTrope searches the corpus for the query and extends the world's trope
// pool with the matches, biasing upcoming draws. The pool is capped; oldest
// entries are dropped first.
func (e *Engine) ForceTrope(worldID, query string) ([]models.Trope, error) {
	if query == "" {
		return nil, NewValidationError("query", "must not be empty")
	}

	unlock := e.lockWorld(worldID)
	defer unlock()

	found := e.tropes.Search(query, 3)
	if len(found.Tropes) == 0 {
		return nil, NewValidationError("query", "no tropes matched")
	}

	err := e.store.WithWorld(worldID, func(w *models.World) error {
		w.GlobalTropePool = append(w.GlobalTropePool, found.Tropes...)
		if len(w.GlobalTropePool) > tropePoolCap {
			w.GlobalTropePool = w.GlobalTropePool[len(w.GlobalTropePool)-tropePoolCap:]
		}
		names := make([]string, 0, len(found.Tropes))
		for _, t := range found.Tropes {
			names = append(names, t.Name)
		}
		recordIntervention(w, "force_trope",
			fmt.Sprintf("Forced tropes for %q: %v", query, names))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found.Tropes, nil
}

// ChooseThread overrides the status of the thread at index. Advancing a
// thread raises its tension by two. A resolved thread cannot be demoted.
func (e *Engine) ChooseThread(worldID string, index int, status models.ThreadStatus) error {
	normalized := normalizeThreadStatus(string(status))
	if normalized != status {
		return NewValidationError("status", "must be one of active, advancing, stalled, resolved, spawned")
	}

	unlock := e.lockWorld(worldID)
	defer unlock()

	return e.store.WithWorld(worldID, func(w *models.World) error {
		if index < 0 || index >= len(w.ThreadStates) {
			return ErrThreadIndexOutOfRange
		}
		ts := &w.ThreadStates[index]
		if ts.Status == models.ThreadResolved && status != models.ThreadResolved {
			return NewValidationError("status", "a resolved thread cannot be reopened")
		}
		ts.Status = status
		if status == models.ThreadAdvancing {
			ts.Tension = clampTension(ts.Tension + 2)
		}
		recordIntervention(w, "choose_thread",
			fmt.Sprintf("Thread %d set to %s: %s", index, status, snippet(ts.Thread, 80)))
		return nil
	})
}
