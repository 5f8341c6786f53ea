package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"venue_enrichment_backend/platform/ai/moonshot"
)

// ErrModelUnavailable marks a model id the provider does not recognise or serve.
// It is the only error that moves the Resolver to the next candidate.
var ErrModelUnavailable = errors.New("model unavailable")

// ModelError ties a provider failure to the model id it happened on.
type ModelError struct {
	Model       string
	Unavailable bool
	Err         error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrModelUnavailable) match classified failures.
func (e *ModelError) Is(target error) bool {
	return target == ErrModelUnavailable && e.Unavailable
}

// IsModelUnavailable reports whether err means the model id itself cannot be used.
func IsModelUnavailable(err error) bool {
	return errors.Is(err, ErrModelUnavailable)
}

// classify wraps a provider error, flagging it as unavailable only when the provider
// says the model is missing or unsupported. Quota, auth and network failures are not.
func classify(modelName string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrModelUnavailable) {
		return err
	}
	return &ModelError{Model: modelName, Unavailable: unavailable(err), Err: err}
}

func unavailable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || strings.Contains(strings.ToUpper(apiErr.Status), "NOT_FOUND") ||
			mentionsMissingModel(apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusNotFound || strings.Contains(strings.ToUpper(apiErrPtr.Status), "NOT_FOUND") ||
			mentionsMissingModel(apiErrPtr.Message)
	}
	var kimiErr *moonshot.APIError
	if errors.As(err, &kimiErr) {
		return kimiErr.StatusCode == http.StatusNotFound || mentionsMissingModel(kimiErr.Message)
	}
	return mentionsMissingModel(err.Error())
}

var missingModelPhrases = []string{
	"not found",
	"not supported",
	"unsupported",
	"unknown model",
	"does not exist",
	"is not available",
}

func mentionsMissingModel(message string) bool {
	lower := strings.ToLower(message)
	if !strings.Contains(lower, "model") {
		return false
	}
	for _, phrase := range missingModelPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ParseError is a model reply that could not be decoded into the expected shape.
type ParseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse model reply: %s: %v", e.Reason, e.Err)
	}
	return "parse model reply: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is (or wraps) a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
