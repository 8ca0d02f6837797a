package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dramaturge/dramaturge/pkg/llm"
	"github.com/dramaturge/dramaturge/pkg/memory"
	"github.com/dramaturge/dramaturge/pkg/models"
	"github.com/dramaturge/dramaturge/pkg/parsing"
	"github.com/dramaturge/dramaturge/pkg/prompt"
)

// CharacterService runs the character lifecycle:
// generate → refine → enrich → embody → chat.
type CharacterService struct {
	strong  llm.Client
	fast    llm.Client
	prompts *prompt.Registry

	mu       sync.Mutex
	sessions map[string]*embodimentSession
}

type embodimentSession struct {
	systemPrompt  string
	memory        *memory.Conversation
	characterName string
	useStrong     bool
	lastUsed      time.Time
}

// NewCharacterService wires a character service on both LLM tiers.
func NewCharacterService(strong, fast llm.Client, prompts *prompt.Registry) *CharacterService {
	return &CharacterService{
		strong:   strong,
		fast:     fast,
		prompts:  prompts,
		sessions: make(map[string]*embodimentSession),
	}
}

// Generate runs first-pass character design from a TCCN summary.
func (c *CharacterService) Generate(ctx context.Context, tccn models.TCCN, summary models.CharacterSummary) (*models.Character, error) {
	user, err := c.prompts.Render("generators", "FIRST_PASS_CHARACTER_DESIGNER", map[string]string{
		"tcc_context":           tccn.PromptText(),
		"character_description": fmt.Sprintf("%s: %s", summary.Name, summary.Description),
	})
	if err != nil {
		return nil, err
	}

	var character models.Character
	err = c.strong.CompleteStructured(ctx, llm.Request{
		System:    "You are an expert character designer for theatrical plays.",
		User:      user,
		MaxTokens: 2048,
	}, &character)
	if err != nil {
		return nil, err
	}
	if character.Name == "" {
		character.Name = summary.Name
	}
	return &character, nil
}

// Refine deepens a character over the given number of refinement rounds.
func (c *CharacterService) Refine(ctx context.Context, character *models.Character, tccn models.TCCN, rounds int) (*models.Character, error) {
	current := character
	for i := 0; i < rounds; i++ {
		user, err := c.prompts.Render("refiners", "FULL_DESCRIPTION_CHARACTER_REFINER", map[string]string{
			"tcc_context":       tccn.PromptText(),
			"character_profile": current.PromptText(),
		})
		if err != nil {
			return nil, err
		}

		var refined models.Character
		err = c.strong.CompleteStructured(ctx, llm.Request{
			System:    "You are a master character developer. Reimagine and deepen this character.",
			User:      user,
			MaxTokens: 2048,
		}, &refined)
		if err != nil {
			return nil, err
		}
		if refined.Name == "" {
			refined.Name = character.Name
		}
		current = &refined
	}
	return current, nil
}

// Enrich draws historical and fictional inspiration into the profile. The
// enrichment pass returns free text; when it cannot be re-parsed into a
// profile, the text is appended to the character's internal state instead.
func (c *CharacterService) Enrich(ctx context.Context, character *models.Character) (*models.Character, error) {
	user, err := c.prompts.Render("generators", "FIRST_PASS_CHARACTER_ENRICHMENT", map[string]string{
		"hppti_context": character.PromptText(),
	})
	if err != nil {
		return nil, err
	}

	raw, err := c.strong.Complete(ctx, llm.Request{
		System: "You enrich character designs by drawing from historical and fictional inspiration sources.",
		User:   user,
	})
	if err != nil {
		return nil, err
	}

	var enriched models.Character
	if perr := parsing.ParseInto(raw, &enriched); perr == nil && enriched.InternalState != "" {
		if enriched.Name == "" {
			enriched.Name = character.Name
		}
		return &enriched, nil
	}

	text := raw
	if len(text) > 2000 {
		text = text[:2000]
	}
	character.InternalState += "\n\n[Enrichment]\n" + text
	return character, nil
}

// Embody starts a chat session speaking as the character within the given
// scene. Returns the session id.
func (c *CharacterService) Embody(character *models.Character, tccn models.TCCN, sceneDescription string, useStrong bool) (string, error) {
	systemPrompt, err := c.prompts.Render("embodiers", "CHARACTER_EMBODIER", map[string]string{
		"tcc_context":       tccn.PromptText(),
		"character_profile": character.PromptText(),
		"scene_description": sceneDescription,
	})
	if err != nil {
		return "", err
	}

	sessionID := shortID()
	c.mu.Lock()
	c.sessions[sessionID] = &embodimentSession{
		systemPrompt:  systemPrompt,
		memory:        memory.NewConversation(50),
		characterName: character.Name,
		useStrong:     useStrong,
		lastUsed:      time.Now(),
	}
	c.mu.Unlock()
	return sessionID, nil
}

// Chat sends a message to an embodied character and returns the in-character
// reply.
func (c *CharacterService) Chat(ctx context.Context, sessionID, message string) (string, error) {
	c.mu.Lock()
	session, ok := c.sessions[sessionID]
	if ok {
		session.lastUsed = time.Now()
	}
	c.mu.Unlock()
	if !ok {
		return "", ErrSessionNotFound
	}

	session.memory.Add("user", message)

	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	b.WriteString(session.memory.PromptText())
	b.WriteString("\nRespond as the character would naturally speak in this specific situation. ")
	b.WriteString("Follow their Voice & Speech Style. Use the play format: (action description) Dialogue. ")
	b.WriteString("Keep it real, not every line needs to be profound.")

	client := c.fast
	if session.useStrong {
		client = c.strong
	}
	response, err := client.Complete(ctx, llm.Request{
		System: session.systemPrompt,
		User:   b.String(),
	})
	if err != nil {
		return "", err
	}
	session.memory.Add("assistant", response)
	return response, nil
}

// EndSession removes an embodiment session.
func (c *CharacterService) EndSession(sessionID string) {
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
}

// PruneIdleSessions drops embodiment sessions idle longer than maxIdle and
// returns how many were removed.
func (c *CharacterService) PruneIdleSessions(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for id, session := range c.sessions {
		if session.lastUsed.Before(cutoff) {
			delete(c.sessions, id)
			pruned++
		}
	}
	return pruned
}

// SessionCount returns the number of live embodiment sessions.
func (c *CharacterService) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// shortID returns the 12-hex-char id form used across the engine.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
