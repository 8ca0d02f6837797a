package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationWindow(t *testing.T) {
	c := NewConversation(3)
	for i := 1; i <= 5; i++ {
		c.Add("user", fmt.Sprintf("message %d", i))
	}

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "message 3", msgs[0].Content)
	assert.Equal(t, "message 5", msgs[2].Content)
}

func TestConversationUnbounded(t *testing.T) {
	c := NewConversation(0)
	for i := 0; i < 10; i++ {
		c.Add("user", "m")
	}
	assert.Equal(t, 10, c.Len())
}

func TestConversationPromptText(t *testing.T) {
	c := NewConversation(10)
	c.Add("user", "Who are you?")
	c.Add("assistant", "The lighthouse keeper.")

	text := c.PromptText()
	assert.Equal(t, "user: Who are you?\nassistant: The lighthouse keeper.\n", text)
}
