package operations

// Operation error codes surfaced to callers.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeInvalidArgument = "invalid-argument"
	CodeNotFound        = "not-found"
	CodeAlreadyExists   = "already-exists"
	CodeInternal        = "internal"
)

// Error is an operation outcome meant for the caller. Message is safe to
// display; internal causes are logged server-side and never attached.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

var ErrUnauthenticated = &Error{Code: CodeUnauthenticated, Message: "user must be authenticated"}

func invalidArgument(message string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: message}
}

func notFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

func alreadyExists(message string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: message}
}

func internalError(message string) *Error {
	return &Error{Code: CodeInternal, Message: message}
}
