package yamux

import (
	"errors"
	"fmt"
	"io"

	"github.com/ngrok/yamux/frame"
)

// ErrorCode classifies why a Session or Stream terminated.
type ErrorCode uint32

const (
	ErrorNone ErrorCode = iota
	ErrorProtocol
	ErrorInternal
	ErrorFlowControl
	ErrorStreamClosed
	ErrorStreamRefused
	ErrorStreamReset
	ErrorAcceptBacklogFull
	ErrorRemoteGoneAway
	ErrorKeepAliveTimeout
	ErrorSessionClosed
	ErrorUnknown ErrorCode = 0xFF
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorNone:
		return "no error"
	case ErrorProtocol:
		return "protocol error"
	case ErrorInternal:
		return "internal error"
	case ErrorFlowControl:
		return "flow control violation"
	case ErrorStreamClosed:
		return "stream closed"
	case ErrorStreamRefused:
		return "stream refused"
	case ErrorStreamReset:
		return "stream reset"
	case ErrorAcceptBacklogFull:
		return "accept backlog full"
	case ErrorRemoteGoneAway:
		return "remote gone away"
	case ErrorKeepAliveTimeout:
		return "keepalive timeout"
	case ErrorSessionClosed:
		return "session closed"
	default:
		return "unknown error"
	}
}

// yamuxError pairs an ErrorCode with the underlying error, if any, so
// that GetError can recover the code from an error returned anywhere in
// the public API.
type yamuxError struct {
	code ErrorCode
	err  error
}

func (e *yamuxError) Error() string {
	if e.err == nil {
		return e.code.String()
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *yamuxError) Unwrap() error { return e.err }

func newErr(code ErrorCode, err error) error {
	return &yamuxError{code: code, err: err}
}

// GetError extracts the ErrorCode carried by err, if any. If err does
// not originate from this package, it returns ErrorUnknown.
func GetError(err error) (ErrorCode, error) {
	var ye *yamuxError
	if errors.As(err, &ye) {
		return ye.code, ye.err
	}
	return ErrorUnknown, err
}

// fromFrameError maps a frame-level decode error onto a session-level
// ErrorCode. Every frame.Error observed on the wire is a protocol
// violation by definition: the codec only ever returns one for malformed
// input.
func fromFrameError(err error) error {
	var fe *frame.Error
	if errors.As(err, &fe) {
		return newErr(ErrorProtocol, err)
	}
	return newErr(ErrorInternal, err)
}

var (
	errSessionShutdown   = newErr(ErrorSessionClosed, errors.New("session shut down"))
	errStreamClosed      = newErr(ErrorStreamClosed, errors.New("stream closed"))
	errStreamReset       = newErr(ErrorStreamReset, errors.New("stream reset"))
	errAcceptBacklog     = newErr(ErrorAcceptBacklogFull, errors.New("accept backlog full"))
	errRemoteGoneAway    = newErr(ErrorRemoteGoneAway, errors.New("remote end has gone away"))
	errKeepAliveTimeout  = newErr(ErrorKeepAliveTimeout, errors.New("keepalive timeout, no ping response"))
	errTooManyStreams    = newErr(ErrorStreamRefused, errors.New("session has reached its maximum stream count"))
	errStreamOpenTimeout = newErr(ErrorInternal, errors.New("timed out waiting for peer to ack new stream"))
	errInvalidWindow     = newErr(ErrorFlowControl, errors.New("peer sent more data than the receive window allows"))
	errStreamStalled     = newErr(ErrorFlowControl, errors.New("stream write queue exceeded its bound, treating transport as stalled"))
	errFrameTooLarge     = errors.New("data frame exceeds the configured maximum frame length")
	errWriteTimeout      = errors.New("timed out waiting to write frame")
	errWrongParity       = errors.New("peer opened a stream id with the wrong parity")
	errDuplicateStreamID = errors.New("peer sent SYN for a stream id already in the table")

	// errStreamClosedCleanly is the error recorded on a stream's recv
	// buffer when the remote sends FIN. It is io.EOF rather than a
	// yamuxError: once buffered data is drained, Read should behave
	// exactly like any other io.Reader at end of stream.
	errStreamClosedCleanly = io.EOF
)
