package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramaturge/dramaturge/pkg/llm/llmtest"
	"github.com/dramaturge/dramaturge/pkg/prompt"
)

func TestGenerateSeedStructured(t *testing.T) {
	stub := llmtest.New().On("design the foundation", seedResponse)
	s := NewSeeder(stub, prompt.NewRegistry(filepath.Join("..", "..", "prompts")))

	tccn, err := s.GenerateSeed(context.Background(), "a frozen harbor town")
	require.NoError(t, err)
	assert.Equal(t, "A harbor town must choose between memory and survival.", tccn.Teleology)
	require.Len(t, tccn.Characters, 2)
	assert.Equal(t, "Mara", tccn.Characters[0].Name)
	require.Len(t, tccn.NarrativeThreads, 2)
}

func TestGenerateSeedFallsBackToTextParsing(t *testing.T) {
	// non-JSON response: structured parsing fails, the free-text section
	// parser takes over on the second call
	freeText := `TELEOLOGY: The mill must fall.

CONTEXT: A drought year in the valley.

CHARACTERS:
1. Oren: the miller clinging to his wheel
2. Sela - a surveyor sent by the railway

NARRATIVE THREADS:
1. The water rights dispute cannot outlast the summer
2. Sela's report will decide the valley`

	stub := llmtest.New().On("design the foundation", freeText)
	s := NewSeeder(stub, prompt.NewRegistry(filepath.Join("..", "..", "prompts")))

	tccn, err := s.GenerateSeed(context.Background(), "a drought valley")
	require.NoError(t, err)
	assert.Equal(t, "The mill must fall.", tccn.Teleology)
	assert.Equal(t, "A drought year in the valley.", tccn.Context)

	require.Len(t, tccn.Characters, 2)
	assert.Equal(t, "Oren", tccn.Characters[0].Name)
	assert.Equal(t, "the miller clinging to his wheel", tccn.Characters[0].Description)
	assert.Equal(t, "Sela", tccn.Characters[1].Name)
	assert.Equal(t, "a surveyor sent by the railway", tccn.Characters[1].Description)

	require.Len(t, tccn.NarrativeThreads, 2)
	assert.Equal(t, "The water rights dispute cannot outlast the summer", tccn.NarrativeThreads[0].Text)

	// structured attempt plus free-text retry
	assert.Equal(t, 2, stub.CallCount())
}

func TestParseTCCNTextDegenerateInput(t *testing.T) {
	tccn := parseTCCNText("nothing recognizable here")
	// placeholders keep downstream pipelines total
	require.Len(t, tccn.Characters, 1)
	assert.Equal(t, "Unknown", tccn.Characters[0].Name)
	require.Len(t, tccn.NarrativeThreads, 1)
	assert.Empty(t, tccn.Teleology)
}
