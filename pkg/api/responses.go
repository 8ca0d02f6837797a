package api

import (
	"time"

	"github.com/dramaturge/dramaturge/pkg/engine"
	"github.com/dramaturge/dramaturge/pkg/models"
)

// WorldCreatedResponse is returned by POST /worlds.
type WorldCreatedResponse struct {
	WorldID       string   `json:"world_id"`
	Status        string   `json:"status"`
	Characters    []string `json:"characters"`
	ThreadCount   int      `json:"thread_count"`
	TropePoolSize int      `json:"trope_pool_size"`
}

// WorldSummary is one entry of GET /worlds.
type WorldSummary struct {
	ID              string    `json:"id"`
	SeedDescription string    `json:"seed_description"`
	Status          string    `json:"status"`
	Mode            string    `json:"mode"`
	Characters      []string  `json:"characters"`
	ActCount        int       `json:"act_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// EventsResponse is returned by the advance endpoints.
type EventsResponse struct {
	Events []engine.Event `json:"events"`
	// LimitReached is set when the advance safety limit tripped before the
	// boundary event; Events still holds the partial transcript.
	LimitReached bool `json:"limit_reached,omitempty"`
}

// BeatSummary is the condensed beat view in timelines.
type BeatSummary struct {
	Sequence      int            `json:"sequence"`
	Actor         string         `json:"actor"`
	Outcome       models.Outcome `json:"outcome"`
	ActualOutcome string         `json:"actual_outcome"`
}

// SceneSummary is the condensed scene view in timelines.
type SceneSummary struct {
	Number  int                `json:"number"`
	Setting string             `json:"setting"`
	Status  models.SceneStatus `json:"status"`
	Actors  []string           `json:"actors"`
	Beats   []BeatSummary      `json:"beats"`
}

// ActSummary is the condensed act view in timelines.
type ActSummary struct {
	Number      int              `json:"number"`
	Title       string           `json:"title"`
	Status      models.ActStatus `json:"status"`
	WorldEvents []string         `json:"world_events"`
	Scenes      []SceneSummary   `json:"scenes"`
}

// TimelineResponse is returned by GET /worlds/{id}/summary.
type TimelineResponse struct {
	WorldID   string       `json:"world_id"`
	Status    string       `json:"status"`
	Teleology string       `json:"teleology"`
	Acts      []ActSummary `json:"acts"`
}

// EmbodyResponse is returned by the embody endpoint.
type EmbodyResponse struct {
	SessionID string `json:"session_id"`
	Character string `json:"character"`
}

// ChatResponse is returned by the embodiment chat endpoint.
type ChatResponse struct {
	Response string `json:"response"`
}

// progressFrame is one SSE progress event.
type progressFrame struct {
	Step    string `json:"step"`
	Detail  string `json:"detail,omitempty"`
	WorldID string `json:"world_id,omitempty"`
}

func timelineFromWorld(w *models.World) TimelineResponse {
	timeline := TimelineResponse{
		WorldID:   w.ID,
		Status:    w.Status,
		Teleology: w.TCCN.Teleology,
		Acts:      []ActSummary{},
	}
	for _, act := range w.Acts {
		actSummary := ActSummary{
			Number:      act.Number,
			Title:       act.Title,
			Status:      act.Status,
			WorldEvents: []string{},
			Scenes:      []SceneSummary{},
		}
		for _, we := range act.WorldEvents {
			actSummary.WorldEvents = append(actSummary.WorldEvents, we.Description)
		}
		for _, scene := range act.Scenes {
			sceneSummary := SceneSummary{
				Number:  scene.Number,
				Setting: scene.Setting,
				Status:  scene.Status,
				Actors:  scene.Actors,
				Beats:   []BeatSummary{},
			}
			for _, beat := range scene.Beats {
				sceneSummary.Beats = append(sceneSummary.Beats, BeatSummary{
					Sequence:      beat.Sequence,
					Actor:         beat.Actor,
					Outcome:       beat.DiceRoll.Outcome,
					ActualOutcome: beat.ActualOutcome,
				})
			}
			actSummary.Scenes = append(actSummary.Scenes, sceneSummary)
		}
		timeline.Acts = append(timeline.Acts, actSummary)
	}
	return timeline
}

func summaryFromWorld(w *models.World) WorldSummary {
	names := make([]string, 0, len(w.Characters))
	for name := range w.Characters {
		names = append(names, name)
	}
	return WorldSummary{
		ID:              w.ID,
		SeedDescription: w.SeedDescription,
		Status:          w.Status,
		Mode:            string(w.Mode),
		Characters:      names,
		ActCount:        len(w.Acts),
		CreatedAt:       w.CreatedAt,
	}
}
