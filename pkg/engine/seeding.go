package engine

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dramaturge/dramaturge/pkg/llm"
	"github.com/dramaturge/dramaturge/pkg/models"
	"github.com/dramaturge/dramaturge/pkg/prompt"
)

// Seeder turns a brief seed description into a full TCCN story seed.
type Seeder struct {
	strong  llm.Client
	prompts *prompt.Registry
}

// NewSeeder creates a seeder on the strong LLM tier.
func NewSeeder(strong llm.Client, prompts *prompt.Registry) *Seeder {
	return &Seeder{strong: strong, prompts: prompts}
}

const seedSystemPrompt = "You are an expert playwright and narrative designer."

// GenerateSeed produces a TCCN from a seed description. Structured
// completion is tried first; on failure the raw text is section-parsed.
func (s *Seeder) GenerateSeed(ctx context.Context, seedDescription string) (models.TCCN, error) {
	user, err := s.prompts.Render("generators", "INITIAL_HISTORY_TCC_GENERATOR", map[string]string{
		"seed_description": seedDescription,
	})
	if err != nil {
		return models.TCCN{}, err
	}

	var tccn models.TCCN
	err = s.strong.CompleteStructured(ctx, llm.Request{
		System:    seedSystemPrompt,
		User:      user,
		MaxTokens: 2048,
	}, &tccn)
	if err == nil && len(tccn.Characters) > 0 && len(tccn.NarrativeThreads) > 0 {
		return tccn, nil
	}
	if err != nil {
		slog.Warn("Structured seed generation failed, parsing free text", "error", err)
	}

	raw, err := s.strong.Complete(ctx, llm.Request{
		System: seedSystemPrompt,
		User:   user,
	})
	if err != nil {
		return models.TCCN{}, err
	}
	return parseTCCNText(raw), nil
}

var listItemPrefix = regexp.MustCompile(`^\d+[.)]\s*`)

// parseTCCNText best-effort parses free-text TCCN output organized in
// TELEOLOGY / CONTEXT / CHARACTERS / NARRATIVE THREADS sections.
func parseTCCNText(raw string) models.TCCN {
	sections := map[string]string{}
	current := ""
	for _, line := range strings.Split(raw, "\n") {
		upper := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(upper, "TELEOLOGY"):
			current = "teleology"
			sections[current] = afterColon(line)
		case strings.HasPrefix(upper, "CONTEXT"):
			current = "context"
			sections[current] = afterColon(line)
		case strings.HasPrefix(upper, "CHARACTERS"):
			current = "characters"
		case strings.HasPrefix(upper, "NARRATIVE THREADS"):
			current = "narrative_threads"
		default:
			if current != "" {
				sections[current] += "\n" + line
			}
		}
	}

	var characters []models.CharacterSummary
	for _, line := range strings.Split(strings.TrimSpace(sections["characters"]), "\n") {
		line = listItemPrefix.ReplaceAllString(strings.TrimSpace(line), "")
		if line == "" {
			continue
		}
		var name, desc string
		if i := strings.Index(line, ":"); i >= 0 {
			name, desc = line[:i], line[i+1:]
		} else if i := strings.Index(line, " - "); i >= 0 {
			name, desc = line[:i], line[i+3:]
		} else {
			continue
		}
		characters = append(characters, models.CharacterSummary{
			Name:        strings.TrimSpace(name),
			Description: strings.TrimSpace(desc),
		})
	}
	if len(characters) == 0 {
		characters = []models.CharacterSummary{{Name: "Unknown", Description: ""}}
	}

	var threads []models.NarrativeThread
	for _, line := range strings.Split(strings.TrimSpace(sections["narrative_threads"]), "\n") {
		line = listItemPrefix.ReplaceAllString(strings.TrimSpace(line), "")
		if line != "" {
			threads = append(threads, models.NarrativeThread{Text: line})
		}
	}
	if len(threads) == 0 {
		threads = []models.NarrativeThread{{Text: ""}}
	}

	return models.TCCN{
		Teleology:        strings.TrimSpace(sections["teleology"]),
		Context:          strings.TrimSpace(sections["context"]),
		Characters:       characters,
		NarrativeThreads: threads,
	}
}

func afterColon(line string) string {
	if i := strings.Index(line, ":"); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}
