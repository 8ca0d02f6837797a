package llm

import "fmt"

// CallError reports a completion call that failed after retries
// (network, auth, quota).
type CallError struct {
	Provider string
	Model    string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("llm call failed (%s/%s): %v", e.Provider, e.Model, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// StructureError reports that no value matching the requested schema could
// be recovered from the model output, after fallback parsing.
type StructureError struct {
	Provider string
	Model    string
	Err      error
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("llm structured completion failed (%s/%s): %v", e.Provider, e.Model, e.Err)
}

func (e *StructureError) Unwrap() error { return e.Err }
