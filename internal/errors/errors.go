package errors

import "errors"

// This package defines a centralized set of sentinel errors for the application.
// Services wrap these with `fmt.Errorf("%w: ...")` and the API layer uses
// `errors.Is()` to map them to HTTP responses, so no service ever has to know
// about status codes.

var (
	// ErrNotFound signifies that a requested resource could not be located.
	// This is typically mapped to a 404 Not Found HTTP status.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that input data provided by a client failed
	// business rule validation. Mapped to 400 Bad Request; the wrapped message
	// is safe to show to the client.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidBody signifies that a request body could not be parsed at all
	// (as opposed to parsing fine and failing validation).
	// Mapped to 400 Bad Request with a fixed message.
	ErrInvalidBody = errors.New("invalid request body")

	// ErrConfiguration signifies that a server-side binding (AI client, search
	// instance) is missing or malformed. Mapped to 500 with a generic message;
	// the details are only logged.
	ErrConfiguration = errors.New("server configuration error")

	// ErrEmptyResponse signifies that the upstream AI service accepted the
	// request but returned no stream. Mapped to 502 Bad Gateway.
	ErrEmptyResponse = errors.New("no response from AI service")

	// ErrUnavailable signifies that the chat-room store is not wired.
	// Mapped to 503 Service Unavailable.
	ErrUnavailable = errors.New("chatroom not available")

	// ErrRateLimited signifies that a client exceeded its request quota.
	// Mapped to 429 Too Many Requests.
	ErrRateLimited = errors.New("too many requests")

	// ErrInternal signifies an unexpected error on the server. This is a generic
	// error used to prevent leaking sensitive implementation details to the client.
	// This is typically mapped to a 500 Internal Server Error HTTP status.
	ErrInternal = errors.New("internal server error")
)

// ValidationError carries a client-safe message and matches ErrValidation
// under errors.Is, so the API layer can show Message verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidation returns a ValidationError with the given client-safe message.
func NewValidation(message string) error {
	return &ValidationError{Message: message}
}
