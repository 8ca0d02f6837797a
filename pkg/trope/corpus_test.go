package trope

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramaturge/dramaturge/pkg/models"
)

func testTropes(n int) []models.Trope {
	tropes := make([]models.Trope, n)
	for i := range tropes {
		tropes[i] = models.Trope{
			ID:          fmt.Sprintf("t%d", i),
			Name:        fmt.Sprintf("Trope %d", i),
			Description: fmt.Sprintf("Description of pattern %d", i),
		}
	}
	return tropes
}

func TestSampleRandom(t *testing.T) {
	c := NewFromTropes(testTropes(50), 7)

	sample := c.SampleRandom(10)
	assert.Equal(t, models.TropeSampleRandom, sample.Source)
	require.Len(t, sample.Tropes, 10)

	seen := map[string]struct{}{}
	for _, tr := range sample.Tropes {
		_, dup := seen[tr.ID]
		assert.False(t, dup, "sample must be without replacement")
		seen[tr.ID] = struct{}{}
	}
}

func TestSampleRandomBounds(t *testing.T) {
	c := NewFromTropes(testTropes(3), 1)

	assert.Empty(t, c.SampleRandom(0).Tropes)
	assert.Len(t, c.SampleRandom(10).Tropes, 3)
}

func TestSearch(t *testing.T) {
	tropes := []models.Trope{
		{ID: "1", Name: "Chekhov's Gun", Description: "An element introduced early pays off later."},
		{ID: "2", Name: "Red Herring", Description: "A misleading clue."},
		{ID: "3", Name: "The Reveal", Description: "A gun turns out to be a toy."},
	}
	c := NewFromTropes(tropes, 1)

	sample := c.Search("GUN", 10)
	assert.Equal(t, models.TropeSampleSearch, sample.Source)
	require.Len(t, sample.Tropes, 2)
	assert.Equal(t, "Chekhov's Gun", sample.Tropes[0].Name)
	assert.Equal(t, "The Reveal", sample.Tropes[1].Name)

	assert.Len(t, c.Search("gun", 1).Tropes, 1)
	assert.Empty(t, c.Search("", 10).Tropes)
	assert.Empty(t, c.Search("nonexistent", 10).Tropes)
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()

	main := "trope_id,name,description\n" +
		"t1,Chekhov's Gun,An element introduced early pays off later\n" +
		"t2,Red Herring,A misleading clue\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tropes.csv"), []byte(main), 0o644))

	tv := "title,trope_id,trope,description\n" +
		"Lighthouse Tales,t1,Chekhov's Gun,An element introduced early pays off later\n" +
		"Lighthouse Tales,t2,Red Herring,A misleading clue\n" +
		"Other Show,t3,The Reveal,A hidden truth surfaces\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tv_tropes.csv"), []byte(tv), 0o644))

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Size())

	sample := c.SampleByMedia("tv", "lighthouse", 5)
	assert.Equal(t, models.TropeSampleMedia, sample.Source)
	assert.Len(t, sample.Tropes, 2)

	assert.Empty(t, c.SampleByMedia("film", "", 5).Tropes)
	assert.Empty(t, c.SampleByMedia("tv", "unknown title", 5).Tropes)
}

func TestLoadMissingMainFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}

func TestDescriptionTruncated(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("d", 1000)
	main := "trope_id,name,description\nt1,Long One," + long + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tropes.csv"), []byte(main), 0o644))

	c, err := Load(dir)
	require.NoError(t, err)
	sample := c.SampleRandom(1)
	require.Len(t, sample.Tropes, 1)
	assert.Len(t, sample.Tropes[0].Description, 500)
}
