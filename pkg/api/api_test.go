package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramaturge/dramaturge/pkg/dice"
	"github.com/dramaturge/dramaturge/pkg/engine"
	"github.com/dramaturge/dramaturge/pkg/llm/llmtest"
	"github.com/dramaturge/dramaturge/pkg/models"
	"github.com/dramaturge/dramaturge/pkg/prompt"
	"github.com/dramaturge/dramaturge/pkg/seedstore"
	"github.com/dramaturge/dramaturge/pkg/trope"
	"github.com/dramaturge/dramaturge/pkg/world"
)

var testTropes = []models.Trope{
	{ID: "t1", Name: "The Mentor's Betrayal", Description: "A trusted guide turns."},
	{ID: "t2", Name: "Chekhov's Gun", Description: "A detail planted early must fire."},
	{ID: "t3", Name: "The Ticking Clock", Description: "A deadline compresses choices."},
	{ID: "t4", Name: "Hidden Ledger", Description: "Secret records surface at the worst moment."},
	{ID: "t5", Name: "Storm Warning", Description: "Weather forces the issue."},
}

const (
	seedResponse = `{
		"teleology": "A harbor town must choose between memory and survival.",
		"context": "Winter closes the port of Varn; the last ferry leaves tomorrow.",
		"characters": [
			{"name": "Mara", "description": "the harbormaster who keeps the ledgers and the secrets"},
			{"name": "Ilya", "description": "a smuggler who owes the town everything"}
		],
		"narrative_threads": [
			{"text": "The ledger discrepancy between Mara and the council must surface"},
			{"text": "Ilya's debt to Mara strains their alliance as the ice closes in"}
		]
	}`

	characterResponse = `{
		"internal_state": "Tired but resolute.",
		"ambitions": "Keep the town fed through winter.",
		"teleology": "To hold the line.",
		"philosophy": "Order is mercy.",
		"physical_state": "Weathered.",
		"voice_style": "Clipped, nautical.",
		"long_term_memory": ["The winter of the broken pier"],
		"short_term_memory": [],
		"internal_contradictions": ["Keeps secrets to protect the truth"]
	}`

	actPlanResponse = `{
		"title": "The Ice Closes",
		"planned_scenes": ["Confrontation at the harbor office"]
	}`

	worldEventResponse = `[
		{"description": "The ferry is cancelled.", "impact": "No one leaves Varn now.", "affected_characters": ["Mara", "Ilya"]}
	]`

	sceneResponse = `{
		"setting": "Harbor office at dusk",
		"place_description": "Salt-stained maps, a cold stove, one lamp.",
		"actors": ["Mara", "Ilya"],
		"narrative_threads": ["The ledger discrepancy between Mara and the council must surface"]
	}`

	beatActionsResponse = `[
		{"actor": "Mara", "action": "Mara demands the second ledger back."},
		{"actor": "Ilya", "action": "Ilya conceals the second ledger under the maps."}
	]`

	fateResponse = `{"modifier": 5, "rationale": "The trope favors confrontation."}`

	threadUpdateResponse = `[
		{"thread": "The ledger discrepancy between Mara and the council must surface", "status": "advancing", "tension": 6},
		{"thread": "Ilya's debt to Mara strains their alliance as the ice closes in", "status": "stalled", "tension": 4}
	]`

	stateUpdateResponse = `{
		"internal_state": "Shaken but certain.",
		"ambitions": "Keep the town fed through winter.",
		"teleology": "To hold the line.",
		"philosophy": "Order is mercy.",
		"physical_state": "Weathered, jaw set.",
		"voice_style": "Clipped, nautical.",
		"long_term_memory": ["The winter of the broken pier"],
		"short_term_memory": ["The ledger changed hands.", "The office smelled of tar and endings."],
		"internal_contradictions": ["Keeps secrets to protect the truth"]
	}`

	deltaResponse = `[
		{"character_name": "Mara", "new_short_term_memories": ["The ledger changed hands."]}
	]`
)

func scriptedStub() *llmtest.Stub {
	return llmtest.New().
		On("design the foundation of a dramatic story world", seedResponse).
		On("Design a full dramatic character", characterResponse).
		On("Reimagine and deepen this character", characterResponse).
		On("Plan act ", actPlanResponse).
		On("world events for the act", worldEventResponse).
		On("has shifted after this act", `{"shifted": false}`).
		On("Evolve the world context", "The port is closed; the town turns inward.").
		On("Compose the next scene", sceneResponse).
		On("Plan the sequence of beats", beatActionsResponse).
		On("bends fate", fateResponse).
		On("make that tier true", "Mara corners Ilya and the ledger changes hands.").
		On("Write the next moment of the scene as prose", "The lamplight wavered as Mara spread the ledger open.").
		On("Compute how this beat changed", deltaResponse).
		On("Re-evaluate every narrative thread", threadUpdateResponse).
		On("Update this character's inner state", stateUpdateResponse).
		On("Conversation so far:", "(leaning over the charts) Say what you came to say.")
}

func newTestServer(t *testing.T) (*gin.Engine, *engine.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := world.NewStore()
	prompts := prompt.NewRegistry(filepath.Join("..", "..", "prompts"))
	corpus := trope.NewFromTropes(testTropes, 7)
	eng := engine.New(store, scriptedStub(), scriptedStub(), prompts, corpus, dice.NewSeededRoller(11))

	seeds, err := seedstore.Open(filepath.Join(t.TempDir(), "seeds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { seeds.Close() })

	return NewServer(eng, seeds).Router(), eng
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func createWorld(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/narrative/worlds", gin.H{
		"seed_description": "A frozen harbor town with too many secrets",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp WorldCreatedResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.WorldID)
	return resp.WorldID
}

// parseSSE splits an SSE body into its decoded data frames.
func parseSSE(t *testing.T, body string) []map[string]any {
	t.Helper()
	var frames []map[string]any
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		require.True(t, strings.HasPrefix(block, "data: "), "frame %q", block)
		var frame map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(block, "data: ")), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func TestHealth(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decode(t, rec, &resp)
	assert.Equal(t, "ok", resp["status"])
	require.Contains(t, resp, "seed_store")
}

func TestCreateWorld(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/narrative/worlds", gin.H{
		"seed_description": "A frozen harbor town with too many secrets",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp WorldCreatedResponse
	decode(t, rec, &resp)
	assert.Len(t, resp.WorldID, 12)
	assert.Equal(t, "initialized", resp.Status)
	assert.ElementsMatch(t, []string{"Mara", "Ilya"}, resp.Characters)
	assert.Equal(t, 2, resp.ThreadCount)
	assert.Equal(t, len(testTropes), resp.TropePoolSize)

	// missing seed_description
	rec = doJSON(t, router, http.MethodPost, "/api/narrative/worlds", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// invalid mode is a semantic 400, not a binding failure
	rec = doJSON(t, router, http.MethodPost, "/api/narrative/worlds", gin.H{
		"seed_description": "a town",
		"mode":             "puppeteer",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateWorldStream(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/narrative/worlds/stream", gin.H{
		"seed_description": "A frozen harbor town with too many secrets",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := parseSSE(t, rec.Body.String())
	require.NotEmpty(t, frames)

	var steps []string
	for _, frame := range frames {
		steps = append(steps, frame["step"].(string))
	}
	assert.Contains(t, steps, "generating_seed")
	assert.Contains(t, steps, "character_ready")

	last := frames[len(frames)-1]
	assert.Equal(t, "done", last["step"])
	assert.NotEmpty(t, last["world_id"])
}

func TestListGetDeleteWorld(t *testing.T) {
	router, _ := newTestServer(t)
	id := createWorld(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/narrative/worlds", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Worlds []WorldSummary `json:"worlds"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Worlds, 1)
	assert.Equal(t, id, list.Worlds[0].ID)

	rec = doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var w models.World
	decode(t, rec, &w)
	assert.Equal(t, "A harbor town must choose between memory and survival.", w.TCCN.Teleology)

	rec = doJSON(t, router, http.MethodDelete, "/api/narrative/worlds/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdvanceSteps(t *testing.T) {
	router, _ := newTestServer(t)
	id := createWorld(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/narrative/worlds/"+id+"/advance", gin.H{"steps": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp EventsResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Events, 3)
	assert.Equal(t, engine.EventActPlanned, resp.Events[0].Type)
	assert.Equal(t, engine.EventSceneComposed, resp.Events[1].Type)
	assert.Equal(t, engine.EventBeatResolved, resp.Events[2].Type)

	beat := resp.Events[2]
	assert.Equal(t, "Mara", beat.Actor)
	assert.GreaterOrEqual(t, beat.FinalValue, 1)
	assert.NotEmpty(t, beat.Prose)

	// zero steps is a no-op
	rec = doJSON(t, router, http.MethodPost, "/api/narrative/worlds/"+id+"/advance", gin.H{"steps": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Empty(t, resp.Events)

	// negative steps rejected
	rec = doJSON(t, router, http.MethodPost, "/api/narrative/worlds/"+id+"/advance", gin.H{"steps": -2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/narrative/worlds/missing/advance", gin.H{"steps": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdvanceSceneAndAct(t *testing.T) {
	router, _ := newTestServer(t)
	id := createWorld(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/narrative/worlds/"+id+"/advance/scene", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp EventsResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Events)
	assert.Equal(t, engine.EventSceneCompleted, resp.Events[len(resp.Events)-1].Type)
	assert.False(t, resp.LimitReached)

	rec = doJSON(t, router, http.MethodPost, "/api/narrative/worlds/"+id+"/advance/act", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Events)
	assert.Equal(t, engine.EventActCompleted, resp.Events[len(resp.Events)-1].Type)
}

func TestAdvanceStream(t *testing.T) {
	router, _ := newTestServer(t)
	id := createWorld(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id+"/stream?steps=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := parseSSE(t, rec.Body.String())
	require.Len(t, frames, 4)
	assert.Equal(t, "act_planned", frames[0]["type"])
	assert.Equal(t, "scene_composed", frames[1]["type"])
	assert.Equal(t, "beat_resolved", frames[2]["type"])
	assert.Equal(t, "done", frames[3]["step"])

	rec = doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id+"/stream?steps=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryAndReadAccessors(t *testing.T) {
	router, _ := newTestServer(t)
	id := createWorld(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/narrative/worlds/"+id+"/advance/scene", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id+"/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var timeline TimelineResponse
	decode(t, rec, &timeline)
	require.Len(t, timeline.Acts, 1)
	assert.Equal(t, "The Ice Closes", timeline.Acts[0].Title)
	require.Len(t, timeline.Acts[0].Scenes, 1)
	assert.Len(t, timeline.Acts[0].Scenes[0].Beats, 2)

	rec = doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id+"/acts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var acts struct {
		Acts []models.Act `json:"acts"`
	}
	decode(t, rec, &acts)
	require.Len(t, acts.Acts, 1)

	rec = doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id+"/threads", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var threads struct {
		Threads []models.NarrativeThreadState `json:"threads"`
	}
	decode(t, rec, &threads)
	require.Len(t, threads.Threads, 2)
	assert.Equal(t, models.ThreadAdvancing, threads.Threads[0].Status)

	rec = doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id+"/prose", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var prose struct {
		AccumulatedProse string `json:"accumulated_prose"`
	}
	decode(t, rec, &prose)
	assert.Contains(t, prose.AccumulatedProse, "--- Scene 1 ---")

	rec = doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id+"/dice-history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rolls struct {
		Rolls []engine.DiceHistoryEntry `json:"rolls"`
	}
	decode(t, rec, &rolls)
	require.Len(t, rolls.Rolls, 2)
	assert.Equal(t, "Mara", rolls.Rolls[0].Actor)

	sceneID := acts.Acts[0].Scenes[0].ID
	rec = doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id+"/scenes/"+sceneID+"/beats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var beats struct {
		Beats []models.Beat `json:"beats"`
	}
	decode(t, rec, &beats)
	assert.Len(t, beats.Beats, 2)

	rec = doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id+"/scenes/nope/beats", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetModeEndpoint(t *testing.T) {
	router, _ := newTestServer(t)
	id := createWorld(t, router)

	rec := doJSON(t, router, http.MethodPut, "/api/narrative/worlds/"+id+"/mode", gin.H{"mode": "director"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/narrative/worlds/"+id+"/mode", gin.H{"mode": "chaos"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSampleTropes(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/narrative/tropes/sample?n=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sample models.TropeSample
	decode(t, rec, &sample)
	assert.Len(t, sample.Tropes, 3)

	rec = doJSON(t, router, http.MethodGet, "/api/narrative/tropes/sample?n=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// no media files loaded in the test corpus
	rec = doJSON(t, router, http.MethodGet, "/api/narrative/tropes/sample?medium=tv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &sample)
	assert.Empty(t, sample.Tropes)
}
