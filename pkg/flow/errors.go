package flow

import "errors"

// DefaultErrorMessage is shown when an error carries no usable text.
const DefaultErrorMessage = "Something went wrong. Please try again."

// ShortMessager is implemented by provider errors that carry a concise,
// user-facing summary alongside the full error text.
type ShortMessager interface {
	ShortMessage() string
}

// Message normalizes any error to a human-readable display string: the
// provider's short message when present, otherwise the error text, otherwise
// a fixed fallback. Flow controllers surface every failure through this
// function; nothing propagates uncaught to the caller's UI.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var short ShortMessager
	if errors.As(err, &short) {
		if msg := short.ShortMessage(); msg != "" {
			return msg
		}
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}
