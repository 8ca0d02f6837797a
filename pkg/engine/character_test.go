package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramaturge/dramaturge/pkg/llm/llmtest"
	"github.com/dramaturge/dramaturge/pkg/models"
	"github.com/dramaturge/dramaturge/pkg/prompt"
)

func testTCCN() models.TCCN {
	return models.TCCN{
		Teleology: "The town must choose.",
		Context:   "Winter closes the port.",
		Characters: []models.CharacterSummary{
			{Name: "Mara", Description: "the harbormaster"},
		},
		NarrativeThreads: []models.NarrativeThread{{Text: "The ledger must surface"}},
	}
}

func newCharacterService(stub *llmtest.Stub) *CharacterService {
	return NewCharacterService(stub, stub, prompt.NewRegistry(filepath.Join("..", "..", "prompts")))
}

func TestGenerateKeepsSummaryName(t *testing.T) {
	stub := llmtest.New().On("Design a full dramatic character", characterResponse)
	svc := newCharacterService(stub)

	character, err := svc.Generate(context.Background(), testTCCN(), models.CharacterSummary{
		Name: "Mara", Description: "the harbormaster",
	})
	require.NoError(t, err)
	// the canned profile carries no name; the summary's name fills it
	assert.Equal(t, "Mara", character.Name)
	assert.Equal(t, "Order is mercy.", character.Philosophy)
}

func TestRefineRounds(t *testing.T) {
	stub := llmtest.New().
		On("Reimagine and deepen this character", `{"internal_state": "Sharper now.", "ambitions": "The same, but said plainly."}`)
	svc := newCharacterService(stub)

	base := &models.Character{Name: "Mara", InternalState: "Tired."}
	refined, err := svc.Refine(context.Background(), base, testTCCN(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Mara", refined.Name)
	assert.Equal(t, "Sharper now.", refined.InternalState)
	assert.Equal(t, 2, stub.CallCount())
}

func TestEnrichFallsBackToAppendedText(t *testing.T) {
	stub := llmtest.New().
		On("drawing on historical figures", "She carries her keys the way a duelist carries a blade.")
	svc := newCharacterService(stub)

	base := &models.Character{Name: "Mara", InternalState: "Tired."}
	enriched, err := svc.Enrich(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, "Mara", enriched.Name)
	assert.Contains(t, enriched.InternalState, "[Enrichment]")
	assert.Contains(t, enriched.InternalState, "duelist")
}

func TestEmbodyAndChat(t *testing.T) {
	stub := llmtest.New().
		On("Conversation so far:", "(sets down the lantern) You came back, then.")
	svc := newCharacterService(stub)

	character := &models.Character{Name: "Mara", VoiceStyle: "Clipped, nautical."}
	sessionID, err := svc.Embody(character, testTCCN(), "The harbor office at night", false)
	require.NoError(t, err)
	assert.Len(t, sessionID, 12)

	reply, err := svc.Chat(context.Background(), sessionID, "Mara, it's me.")
	require.NoError(t, err)
	assert.Contains(t, reply, "You came back")

	// the system prompt carries the embodiment frame
	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].System, "Clipped, nautical.")
	assert.Contains(t, calls[0].System, "The harbor office at night")

	svc.EndSession(sessionID)
	_, err = svc.Chat(context.Background(), sessionID, "still there?")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
