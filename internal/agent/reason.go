package agent

import (
	"errors"
	"fmt"

	"github.com/nbenliogludev/go-nav-guide/internal/llm"
)

const genericFailureMessage = "Sorry, I encountered an error processing your request. Please try again."

// userMessage turns a pipeline failure into the single transcript line the
// user sees. Internal details stay in the logs.
func userMessage(err error) string {
	var missing *llm.MissingCredentialError
	if errors.As(err, &missing) {
		return fmt.Sprintf(
			"No API key is set for %s. Add one with `navguide key set %s <key>` and ask again.",
			missing.Backend, missing.Backend,
		)
	}
	return genericFailureMessage
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, llm.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, llm.ErrModelInvocation):
		return "model_error"
	case errors.Is(err, llm.ErrMalformedResponse):
		return "malformed_response"
	default:
		return "error"
	}
}
