// Package trope holds the in-memory trope corpus and its sampling
// operations.
package trope

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dramaturge/dramaturge/pkg/models"
)

// descriptionLimit bounds trope descriptions so prompt injection stays cheap.
const descriptionLimit = 500

// mediaEntry is one trope occurrence within a specific titled work.
type mediaEntry struct {
	Title string
	Trope models.Trope
}

// Corpus is a read-only indexed view over the trope dataset. Safe for
// concurrent use: the data is immutable after load and the random source is
// guarded by a mutex.
type Corpus struct {
	tropes []models.Trope
	// lowercased "name description" per trope, index-aligned with tropes
	searchText []string
	media      map[string][]mediaEntry

	mu  sync.Mutex
	rng *rand.Rand
}

// Load reads the corpus from dir. The main file tropes.csv is required; the
// per-media files (tv_tropes.csv, film_tropes.csv, lit_tropes.csv) are
// optional and enable SampleByMedia for their medium.
func Load(dir string) (*Corpus, error) {
	c := &Corpus{
		media: make(map[string][]mediaEntry),
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	main := filepath.Join(dir, "tropes.csv")
	tropes, err := readTropeFile(main)
	if err != nil {
		return nil, fmt.Errorf("load trope corpus: %w", err)
	}
	c.tropes = tropes
	c.searchText = make([]string, len(tropes))
	for i, t := range tropes {
		c.searchText[i] = strings.ToLower(t.Name + " " + t.Description)
	}

	for medium, file := range map[string]string{
		"tv":   "tv_tropes.csv",
		"film": "film_tropes.csv",
		"lit":  "lit_tropes.csv",
	} {
		entries, err := readMediaFile(filepath.Join(dir, file))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("load %s corpus: %w", medium, err)
		}
		c.media[medium] = entries
	}

	slog.Info("Trope corpus loaded",
		"tropes", len(c.tropes),
		"media_sets", len(c.media))
	return c, nil
}

// NewFromTropes builds a corpus directly from an in-memory slice, with an
// optional fixed seed for reproducible sampling. Intended for tests.
func NewFromTropes(tropes []models.Trope, seed uint64) *Corpus {
	c := &Corpus{
		tropes:     tropes,
		searchText: make([]string, len(tropes)),
		media:      make(map[string][]mediaEntry),
		rng:        rand.New(rand.NewPCG(seed, seed)),
	}
	for i, t := range tropes {
		c.searchText[i] = strings.ToLower(t.Name + " " + t.Description)
	}
	return c
}

// Size returns the number of tropes in the main corpus.
func (c *Corpus) Size() int {
	return len(c.tropes)
}

// SampleRandom draws n distinct tropes uniformly at random. When n exceeds
// the corpus size, every trope is returned once.
func (c *Corpus) SampleRandom(n int) models.TropeSample {
	if n <= 0 {
		return models.TropeSample{Source: models.TropeSampleRandom}
	}
	if n > len(c.tropes) {
		n = len(c.tropes)
	}

	c.mu.Lock()
	picked := make(map[int]struct{}, n)
	out := make([]models.Trope, 0, n)
	for len(out) < n {
		i := c.rng.IntN(len(c.tropes))
		if _, dup := picked[i]; dup {
			continue
		}
		picked[i] = struct{}{}
		out = append(out, c.tropes[i])
	}
	c.mu.Unlock()

	return models.TropeSample{Tropes: out, Source: models.TropeSampleRandom}
}

// Search returns up to n tropes whose name or description contains query,
// case-insensitively, in corpus order.
func (c *Corpus) Search(query string, n int) models.TropeSample {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.Trope{}
	if q == "" || n <= 0 {
		return models.TropeSample{Tropes: out, Source: models.TropeSampleSearch}
	}
	for i, text := range c.searchText {
		if strings.Contains(text, q) {
			out = append(out, c.tropes[i])
			if len(out) == n {
				break
			}
		}
	}
	return models.TropeSample{Tropes: out, Source: models.TropeSampleSearch}
}

// SampleByMedia draws up to n distinct tropes recorded for the given medium
// ("tv", "film" or "lit"), optionally restricted to one work title
// (case-insensitive substring match). An unknown medium yields an empty
// sample.
func (c *Corpus) SampleByMedia(medium, title string, n int) models.TropeSample {
	entries := c.media[strings.ToLower(medium)]
	if len(entries) == 0 || n <= 0 {
		return models.TropeSample{Source: models.TropeSampleMedia}
	}

	pool := entries
	if t := strings.ToLower(strings.TrimSpace(title)); t != "" {
		pool = nil
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.Title), t) {
				pool = append(pool, e)
			}
		}
	}
	if len(pool) == 0 {
		return models.TropeSample{Source: models.TropeSampleMedia}
	}
	if n > len(pool) {
		n = len(pool)
	}

	c.mu.Lock()
	picked := make(map[int]struct{}, n)
	seen := make(map[string]struct{}, n)
	out := make([]models.Trope, 0, n)
	for len(out) < n && len(picked) < len(pool) {
		i := c.rng.IntN(len(pool))
		if _, dup := picked[i]; dup {
			continue
		}
		picked[i] = struct{}{}
		if _, dup := seen[pool[i].Trope.Name]; dup {
			continue
		}
		seen[pool[i].Trope.Name] = struct{}{}
		out = append(out, pool[i].Trope)
	}
	c.mu.Unlock()

	return models.TropeSample{Tropes: out, Source: models.TropeSampleMedia}
}

// readTropeFile streams a CSV of at least three columns (id, name,
// description). A header row is detected and skipped.
func readTropeFile(path string) ([]models.Trope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var tropes []models.Trope
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 3 {
			continue
		}
		if first {
			first = false
			if looksLikeHeader(rec) {
				continue
			}
		}
		tropes = append(tropes, models.Trope{
			ID:          rec[0],
			Name:        rec[1],
			Description: truncate(rec[2], descriptionLimit),
		})
	}
	return tropes, nil
}

// readMediaFile streams a CSV of at least four columns (title, trope id,
// trope name, description).
func readMediaFile(path string) ([]mediaEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var entries []mediaEntry
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 4 {
			continue
		}
		if first {
			first = false
			if looksLikeHeader(rec) {
				continue
			}
		}
		entries = append(entries, mediaEntry{
			Title: rec[0],
			Trope: models.Trope{
				ID:          rec[1],
				Name:        rec[2],
				Description: truncate(rec[3], descriptionLimit),
			},
		})
	}
	return entries, nil
}

func looksLikeHeader(rec []string) bool {
	for _, field := range rec {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "trope_id", "trope", "name", "description", "title", "id":
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
