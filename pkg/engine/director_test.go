package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramaturge/dramaturge/pkg/models"
)

func interventionTypes(w *models.World) []string {
	types := make([]string, 0, len(w.DirectorInterventions))
	for _, di := range w.DirectorInterventions {
		types = append(types, di.Type)
	}
	return types
}

func TestOverrideDice(t *testing.T) {
	e := newTestEngine(t, scriptedStub())
	w := initTestWorld(t, e)
	ctx := context.Background()

	// before any scene is open
	_, err := e.OverrideDice(ctx, w.ID, "Mara", "open the locked chest", 50)
	assert.ErrorIs(t, err, ErrNoActiveScene)

	_, err = e.Advance(ctx, w.ID) // act
	require.NoError(t, err)
	_, err = e.Advance(ctx, w.ID) // scene
	require.NoError(t, err)

	_, err = e.OverrideDice(ctx, w.ID, "Mara", "open the locked chest", 0)
	assert.True(t, IsValidationError(err))
	_, err = e.OverrideDice(ctx, w.ID, "Mara", "open the locked chest", 101)
	assert.True(t, IsValidationError(err))
	_, err = e.OverrideDice(ctx, w.ID, "Nobody", "open the locked chest", 50)
	assert.ErrorIs(t, err, ErrCharacterNotFound)

	event, err := e.OverrideDice(ctx, w.ID, "Mara", "open the locked chest", 95)
	require.NoError(t, err)
	require.Equal(t, EventBeatResolved, event.Type)
	assert.Equal(t, "open the locked chest", event.IntendedAction)
	assert.Equal(t, 95, event.RawRoll)
	// two tropes at +5 each, clamped inside 1..100
	assert.Equal(t, 100, event.FinalValue)
	assert.Equal(t, models.OutcomeCriticalSuccess, event.DiceOutcome)

	snap, err := e.Store().Snapshot(w.ID)
	require.NoError(t, err)
	assert.Contains(t, interventionTypes(snap), "override_dice")
	assert.Len(t, snap.Acts[0].Scenes[0].Beats, 1)
}

func TestInjectEvent(t *testing.T) {
	e := newTestEngine(t, scriptedStub())
	w := initTestWorld(t, e)
	ctx := context.Background()

	_, err := e.InjectEvent(w.ID, "A stranger arrives on the ice road")
	assert.ErrorIs(t, err, ErrNoActiveAct)

	_, err = e.Advance(ctx, w.ID)
	require.NoError(t, err)

	injected, err := e.InjectEvent(w.ID, "A stranger arrives on the ice road")
	require.NoError(t, err)
	assert.Equal(t, "Director-injected: A stranger arrives on the ice road", injected.ImpactOnContext)
	assert.ElementsMatch(t, []string{"Ilya", "Mara"}, injected.AffectedCharacters)

	snap, err := e.Store().Snapshot(w.ID)
	require.NoError(t, err)
	// only the injected event; generated ones arrive when the act closes
	require.Len(t, snap.Acts[0].WorldEvents, 1)
	assert.Equal(t, injected.ID, snap.Acts[0].WorldEvents[0].ID)
	assert.Contains(t, interventionTypes(snap), "inject_event")

	_, err = e.InjectEvent(w.ID, "")
	assert.True(t, IsValidationError(err))
}

func TestRedirectCharacter(t *testing.T) {
	e := newTestEngine(t, scriptedStub())
	w := initTestWorld(t, e)

	err := e.RedirectCharacter(w.ID, "Nobody", "flee the town")
	assert.ErrorIs(t, err, ErrCharacterNotFound)

	require.NoError(t, e.RedirectCharacter(w.ID, "Ilya", "Confess everything to the council"))

	snap, err := e.Store().Snapshot(w.ID)
	require.NoError(t, err)
	ilya := snap.Characters["Ilya"]
	assert.Equal(t, "Confess everything to the council", ilya.Ambitions)
	require.NotEmpty(t, ilya.ShortTermMemory)
	assert.Equal(t, "[Director] New direction: Confess everything to the council",
		ilya.ShortTermMemory[len(ilya.ShortTermMemory)-1])
	assert.Contains(t, interventionTypes(snap), "redirect_character")
}

func TestForceTrope(t *testing.T) {
	e := newTestEngine(t, scriptedStub())
	w := initTestWorld(t, e)

	found, err := e.ForceTrope(w.ID, "betrayal")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "The Mentor's Betrayal", found[0].Name)

	snap, err := e.Store().Snapshot(w.ID)
	require.NoError(t, err)
	assert.Len(t, snap.GlobalTropePool, len(testTropes)+1)
	assert.Contains(t, interventionTypes(snap), "force_trope")

	_, err = e.ForceTrope(w.ID, "no such pattern anywhere")
	assert.True(t, IsValidationError(err))
}

func TestChooseThread(t *testing.T) {
	e := newTestEngine(t, scriptedStub())
	w := initTestWorld(t, e)

	err := e.ChooseThread(w.ID, 5, models.ThreadAdvancing)
	assert.ErrorIs(t, err, ErrThreadIndexOutOfRange)

	err = e.ChooseThread(w.ID, 0, models.ThreadStatus("Dramatic"))
	assert.True(t, IsValidationError(err))

	// advancing raises tension by two from the initial three
	require.NoError(t, e.ChooseThread(w.ID, 0, models.ThreadAdvancing))
	snap, err := e.Store().Snapshot(w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ThreadAdvancing, snap.ThreadStates[0].Status)
	assert.Equal(t, 5, snap.ThreadStates[0].Tension)

	// resolution is absorbing
	require.NoError(t, e.ChooseThread(w.ID, 0, models.ThreadResolved))
	err = e.ChooseThread(w.ID, 0, models.ThreadActive)
	assert.True(t, IsValidationError(err))

	snap, err = e.Store().Snapshot(w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ThreadResolved, snap.ThreadStates[0].Status)
	assert.Contains(t, interventionTypes(snap), "choose_thread")
}
