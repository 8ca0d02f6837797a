package dice

import (
	"context"
	"log/slog"

	"github.com/dramaturge/dramaturge/pkg/llm"
	"github.com/dramaturge/dramaturge/pkg/models"
	"github.com/dramaturge/dramaturge/pkg/prompt"
	"github.com/dramaturge/dramaturge/pkg/trope"
)

// Service resolves actions: it draws tropes, assesses fate modifiers with
// the fast LLM tier, rolls, and classifies.
type Service struct {
	fast    llm.Client
	prompts *prompt.Registry
	corpus  *trope.Corpus
	roller  *Roller
}

// NewService wires a dice service. corpus backs global sampling when a
// world's pool is too small for the requested draw.
func NewService(fast llm.Client, prompts *prompt.Registry, corpus *trope.Corpus, roller *Roller) *Service {
	return &Service{fast: fast, prompts: prompts, corpus: corpus, roller: roller}
}

// Roller exposes the underlying roller.
func (s *Service) Roller() *Roller {
	return s.roller
}

// fateAssessment is the structured shape requested from the fast LLM per
// trope.
type fateAssessment struct {
	Modifier  int    `json:"modifier"`
	Rationale string `json:"rationale"`
}

// AssessFateModifiers asks the fast LLM, per trope, for a signed modifier in
// [-30, +30] with a rationale. Out-of-bound values are clamped silently. On
// any LLM failure the trope contributes a zero modifier; this method never
// fails the caller.
func (s *Service) AssessFateModifiers(ctx context.Context, action, actor string, tropes []models.Trope, sceneContext string) []models.FateModifier {
	modifiers := make([]models.FateModifier, 0, len(tropes))
	for _, tr := range tropes {
		user, err := s.prompts.Render("assessors", "FATE_MODIFIER_ASSESSOR", map[string]string{
			"action":            action,
			"actor":             actor,
			"trope_name":        tr.Name,
			"trope_description": tr.Description,
			"scene_context":     sceneContext,
		})
		if err != nil {
			slog.Warn("Fate assessor template unavailable, using neutral fate",
				"trope", tr.Name, "error", err)
			modifiers = append(modifiers, models.FateModifier{Trope: tr.Name, Modifier: 0, Rationale: "neutral fate"})
			continue
		}

		var assessment fateAssessment
		if err := s.fast.CompleteStructured(ctx, llm.Request{User: user, Temperature: 0.7}, &assessment); err != nil {
			slog.Warn("Fate modifier assessment failed, using neutral fate",
				"trope", tr.Name, "actor", actor, "error", err)
			modifiers = append(modifiers, models.FateModifier{Trope: tr.Name, Modifier: 0, Rationale: "neutral fate"})
			continue
		}

		modifiers = append(modifiers, models.FateModifier{
			Trope:     tr.Name,
			Modifier:  clamp(assessment.Modifier, -ModifierBound, ModifierBound),
			Rationale: assessment.Rationale,
		})
	}
	return modifiers
}

// ResolveParams carries one action resolution.
type ResolveParams struct {
	Action       string
	Actor        string
	SceneContext string
	Pool         []models.Trope
	NTropes      int
	// OverrideRoll replaces the random raw roll when non-nil (director use).
	OverrideRoll *int
}

// ResolveAction performs the full beat resolution: trope draw, fate
// assessment, roll, clamp, classify.
func (s *Service) ResolveAction(ctx context.Context, p ResolveParams) models.DiceRoll {
	tropes := s.drawTropes(p.Pool, p.NTropes)
	modifiers := s.AssessFateModifiers(ctx, p.Action, p.Actor, tropes, p.SceneContext)

	raw := 0
	if p.OverrideRoll != nil {
		raw = clamp(*p.OverrideRoll, 1, 100)
	} else {
		raw = s.roller.RollD100()
	}

	sum := 0
	for _, m := range modifiers {
		sum += m.Modifier
	}
	final := clamp(raw+sum, 1, 100)

	return models.DiceRoll{
		Raw:       raw,
		Modifiers: modifiers,
		Final:     final,
		Outcome:   Classify(final),
		Actor:     p.Actor,
		Action:    p.Action,
	}
}

// drawTropes picks n distinct tropes from pool, falling back to a global
// corpus sample when the pool is smaller than the draw.
func (s *Service) drawTropes(pool []models.Trope, n int) []models.Trope {
	if n <= 0 {
		return nil
	}
	if len(pool) < n {
		if s.corpus == nil {
			return pool
		}
		return s.corpus.SampleRandom(n).Tropes
	}

	picked := make(map[int]struct{}, n)
	out := make([]models.Trope, 0, n)
	for len(out) < n {
		i := s.roller.IntN(len(pool))
		if _, dup := picked[i]; dup {
			continue
		}
		picked[i] = struct{}{}
		out = append(out, pool[i])
	}
	return out
}
