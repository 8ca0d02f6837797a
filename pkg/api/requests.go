package api

// CreateWorldRequest is the body of POST /worlds and /worlds/stream.
type CreateWorldRequest struct {
	SeedDescription string `json:"seed_description" binding:"required"`
	Mode            string `json:"mode,omitempty"`
	TropePoolSize   int    `json:"trope_pool_size,omitempty"`
	NumCharacters   int    `json:"num_characters,omitempty"`
}

// SetModeRequest is the body of PUT /worlds/{id}/mode.
type SetModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// AdvanceRequest is the body of POST /worlds/{id}/advance.
type AdvanceRequest struct {
	Steps int `json:"steps"`
}

// OverrideDiceRequest is the body of the override-dice director op.
type OverrideDiceRequest struct {
	Actor      string `json:"actor" binding:"required"`
	Action     string `json:"action" binding:"required"`
	ForcedRoll int    `json:"forced_roll" binding:"required"`
}

// InjectEventRequest is the body of the inject-event director op.
type InjectEventRequest struct {
	EventDescription string `json:"event_description" binding:"required"`
}

// RedirectCharacterRequest is the body of the redirect-character director op.
type RedirectCharacterRequest struct {
	CharacterName string `json:"character_name" binding:"required"`
	NewDirection  string `json:"new_direction" binding:"required"`
}

// ForceTropeRequest is the body of the force-trope director op.
type ForceTropeRequest struct {
	TropeQuery string `json:"trope_query" binding:"required"`
}

// ChooseThreadRequest is the body of the choose-thread director op.
type ChooseThreadRequest struct {
	ThreadIndex *int   `json:"thread_index" binding:"required"`
	NewStatus   string `json:"new_status" binding:"required"`
}

// EmbodyRequest is the body of POST /worlds/{id}/characters/{name}/embody.
type EmbodyRequest struct {
	SceneDescription string `json:"scene_description"`
	UseStrong        bool   `json:"use_strong,omitempty"`
}

// ChatRequest is the body of POST /embodiments/{session_id}/chat.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// SaveSeedRequest is the body of POST /seeds.
type SaveSeedRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// GenerateSeedRequest is the body of POST /seeds/generate.
type GenerateSeedRequest struct {
	Description string `json:"description" binding:"required"`
	Name        string `json:"name,omitempty"`
	Save        bool   `json:"save,omitempty"`
}
