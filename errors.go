package remotefs

import "errors"

// Error kinds shared by every protocol client. Clients classify protocol
// failures into one of these so that callers can branch with errors.Is
// without knowing which backend they are talking to.
var (
	ErrAlreadyConnected       = errors.New("already initialized connection")
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrBadAddress             = errors.New("bad address syntax")
	ErrConnectionError        = errors.New("connection error")
	ErrSslError               = errors.New("ssl error")
	ErrStatFailed             = errors.New("could not stat directory")
	ErrBadFile                = errors.New("bad file")
	ErrDirectoryAlreadyExists = errors.New("directory already exists")
	ErrDirectoryNotEmpty      = errors.New("directory is not empty")
	ErrFileCreateDenied       = errors.New("failed to create file")
	ErrCouldNotOpenFile       = errors.New("could not open file")
	ErrCouldNotRemoveFile     = errors.New("could not remove file")
	ErrIoError                = errors.New("i/o error")
	ErrNoSuchFileOrDirectory  = errors.New("no such file or directory")
	ErrPexError               = errors.New("not enough permissions")
	ErrProtocolError          = errors.New("protocol error")
	ErrNotConnected           = errors.New("uninitialized session")
	ErrUnsupportedFeature     = errors.New("unsupported feature")
)

// Error couples one of the Err* kinds above with an optional diagnostic
// message. errors.Is(err, kind) matches the kind; the message only
// affects display.
type Error struct {
	kind    error
	message string
}

// NewError returns an Error of the given kind with no extra message.
func NewError(kind error) *Error {
	return &Error{kind: kind}
}

// WrapError returns an Error of the given kind carrying cause's text as
// the diagnostic message.
func WrapError(kind error, cause error) *Error {
	if cause == nil {
		return &Error{kind: kind}
	}
	return &Error{kind: kind, message: cause.Error()}
}

// WrapErrorMessage returns an Error of the given kind with an explicit
// diagnostic message.
func WrapErrorMessage(kind error, message string) *Error {
	return &Error{kind: kind, message: message}
}

func (e *Error) Error() string {
	if e.message == "" {
		return e.kind.Error()
	}
	return e.kind.Error() + " (" + e.message + ")"
}

// Kind returns the sentinel this error was built from.
func (e *Error) Kind() error {
	return e.kind
}

func (e *Error) Unwrap() error {
	return e.kind
}
