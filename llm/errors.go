package llm

import "fmt"

// AIServiceError is the single error kind for the completion subsystem.
// Connectivity failures, timeouts, and provider-side errors all surface as
// this type, carrying the underlying cause.
type AIServiceError struct {
	Provider string
	Message  string
	Err      error
}

func (e *AIServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *AIServiceError) Unwrap() error { return e.Err }
