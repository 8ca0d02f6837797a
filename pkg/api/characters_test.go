package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramaturge/dramaturge/pkg/models"
)

func TestCharactersEndpoint(t *testing.T) {
	router, _ := newTestServer(t)
	id := createWorld(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/narrative/worlds/"+id+"/characters", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Characters map[string]models.Character `json:"characters"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Characters, 2)
	assert.Equal(t, "Clipped, nautical.", resp.Characters["Mara"].VoiceStyle)
}

func TestEmbodyAndChatEndpoints(t *testing.T) {
	router, _ := newTestServer(t)
	id := createWorld(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/narrative/worlds/"+id+"/characters/Mara/embody", gin.H{
		"scene_description": "The harbor office at night",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var embody EmbodyResponse
	decode(t, rec, &embody)
	require.NotEmpty(t, embody.SessionID)
	assert.Equal(t, "Mara", embody.Character)

	rec = doJSON(t, router, http.MethodPost, "/api/narrative/embodiments/"+embody.SessionID+"/chat", gin.H{
		"message": "Why do you keep two ledgers?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var chat ChatResponse
	decode(t, rec, &chat)
	assert.Contains(t, chat.Response, "Say what you came to say")

	rec = doJSON(t, router, http.MethodDelete, "/api/narrative/embodiments/"+embody.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/narrative/embodiments/"+embody.SessionID+"/chat", gin.H{
		"message": "still there?",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/narrative/worlds/"+id+"/characters/Nobody/embody", gin.H{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
