// Package memory implements a bounded-window conversation log.
package memory

import (
	"fmt"
	"strings"
	"sync"
)

// Message is one role-tagged entry in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is a sliding window of the most recent messages. Safe for
// concurrent use.
type Conversation struct {
	mu     sync.Mutex
	window int
	msgs   []Message
}

// NewConversation creates a conversation keeping at most window messages.
// A non-positive window keeps everything.
func NewConversation(window int) *Conversation {
	return &Conversation{window: window}
}

// Add appends a message, evicting the oldest entries beyond the window.
func (c *Conversation) Add(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, Message{Role: role, Content: content})
	if c.window > 0 && len(c.msgs) > c.window {
		c.msgs = c.msgs[len(c.msgs)-c.window:]
	}
}

// Messages returns a copy of the current window.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Len returns the number of retained messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

// PromptText renders the window as a plain-text transcript for prompt
// injection.
func (c *Conversation) PromptText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	for _, m := range c.msgs {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
