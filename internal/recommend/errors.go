package recommend

import (
	"errors"
	"fmt"

	"github.com/spigell/opportunity-matcher/internal/ai"
	"github.com/spigell/opportunity-matcher/internal/query"
	"github.com/spigell/opportunity-matcher/internal/reconcile"
	"github.com/spigell/opportunity-matcher/internal/utils"
)

// Code identifies a failure class in responses.
type Code string

const (
	CodeInvalidInput     Code = "invalid_input"
	CodeEmbeddingFailed  Code = "embedding_failed"
	CodeModelCallFailed  Code = "model_call_failed"
	CodeReasonExtraction Code = "reason_extraction_failed"
	CodeInternal         Code = "internal_error"
)

// Error is a classified pipeline failure. Raw carries a truncated copy of
// the model output when the reply could not be parsed.
type Error struct {
	Code    Code
	Message string
	Raw     string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify maps any pipeline error onto an *Error. Errors that already are
// an *Error are returned unchanged.
func Classify(err error, maxRawLength int) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var extractionErr *reconcile.ExtractionError
	switch {
	case errors.Is(err, query.ErrInvalidInput):
		return &Error{Code: CodeInvalidInput, Message: "No job description provided", Err: err}
	case errors.Is(err, ai.ErrEmbedding):
		return &Error{Code: CodeEmbeddingFailed, Message: "Failed to embed the job description", Err: err}
	case errors.Is(err, ai.ErrModelCall):
		return &Error{Code: CodeModelCallFailed, Message: "Language model call failed", Err: err}
	case errors.As(err, &extractionErr):
		return &Error{
			Code:    CodeReasonExtraction,
			Message: "Could not parse the language model response",
			Raw:     utils.TruncateForLog(extractionErr.Raw, maxRawLength),
			Err:     err,
		}
	default:
		return &Error{Code: CodeInternal, Message: "Internal error", Err: err}
	}
}
