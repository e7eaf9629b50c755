package chat

// Kind classifies chat errors
type Kind string

const (
	KindNotFound         Kind = "NotFound"
	KindForbidden        Kind = "Forbidden"
	KindValidation       Kind = "Validation"
	KindTransport        Kind = "Transport"
	KindAlreadyConnected Kind = "AlreadyConnected"
	KindRateLimited      Kind = "RateLimited"
	KindInternal         Kind = "Internal"
)

// Error is a chat failure reported to the originating connection. Message
// is the text sent in the error event.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound, Message: "Note not found."}
	ErrForbidden        = &Error{Kind: KindForbidden, Message: "You are not a collaborator of this note and cannot join the chat."}
	ErrValidation       = &Error{Kind: KindValidation, Message: "Invalid request."}
	ErrTransport        = &Error{Kind: KindTransport, Message: "Connection lost."}
	ErrAlreadyConnected = &Error{Kind: KindAlreadyConnected, Message: "Already connected."}
	ErrRateLimited      = &Error{Kind: KindRateLimited, Message: "Rate limit exceeded."}
	ErrInternal         = &Error{Kind: KindInternal, Message: "Failed to join chat room."}
)

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
