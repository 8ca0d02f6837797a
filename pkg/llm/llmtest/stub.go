// Package llmtest provides a scripted llm.Client for tests: canned
// responses keyed on prompt substrings, no network.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dramaturge/dramaturge/pkg/llm"
	"github.com/dramaturge/dramaturge/pkg/parsing"
)

type rule struct {
	contains string
	response string
	err      error
}

// Stub implements llm.Client with substring-matched canned responses.
// Rules are checked in registration order; the first match wins. Safe for
// concurrent use.
type Stub struct {
	mu       sync.Mutex
	rules    []rule
	fallback string
	calls    []llm.Request
}

// New creates an empty stub. Without rules or a default, every call fails.
func New() *Stub {
	return &Stub{}
}

// On registers a canned response for prompts containing the given substring
// (matched against system + user text). Returns the stub for chaining.
func (s *Stub) On(contains, response string) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule{contains: contains, response: response})
	return s
}

// FailOn registers an error for prompts containing the given substring.
func (s *Stub) FailOn(contains string, err error) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule{contains: contains, err: err})
	return s
}

// SetDefault sets the response returned when no rule matches.
func (s *Stub) SetDefault(response string) *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = response
	return s
}

// Calls returns a copy of every request seen so far.
func (s *Stub) Calls() []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Request, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of requests seen so far.
func (s *Stub) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Complete implements llm.Client.
func (s *Stub) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)

	haystack := req.System + "\n" + req.User
	for _, r := range s.rules {
		if strings.Contains(haystack, r.contains) {
			if r.err != nil {
				return "", r.err
			}
			return r.response, nil
		}
	}
	if s.fallback != "" {
		return s.fallback, nil
	}
	return "", errors.New("llmtest: no rule matches prompt")
}

// CompleteStructured implements llm.Client by parsing the canned response
// into out.
func (s *Stub) CompleteStructured(ctx context.Context, req llm.Request, out any) error {
	text, err := s.Complete(ctx, req)
	if err != nil {
		return err
	}
	if err := parsing.ParseInto(text, out); err != nil {
		return &llm.StructureError{Provider: "llmtest", Model: "stub", Err: err}
	}
	return nil
}
