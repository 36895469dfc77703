package yamux

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ngrok/yamux/frame"
)

func TestGetErrorExtractsCode(t *testing.T) {
	err := newErr(ErrorProtocol, errors.New("bad frame"))
	code, inner := GetError(err)
	require.Equal(t, ErrorProtocol, code)
	require.EqualError(t, inner, "bad frame")
}

func TestGetErrorUnknownForForeignErrors(t *testing.T) {
	code, _ := GetError(errors.New("not ours"))
	require.Equal(t, ErrorUnknown, code)
}

func TestFromFrameErrorMapsToProtocol(t *testing.T) {
	b := []byte{0xFF, 0xFF, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	fr := frame.NewFramer(bytes.NewReader(b), &bytes.Buffer{})
	_, err := fr.ReadFrame()
	require.Error(t, err)

	wrapped := fromFrameError(err)
	code, _ := GetError(wrapped)
	require.Equal(t, ErrorProtocol, code)
}

func TestErrorCodeString(t *testing.T) {
	require.Equal(t, "protocol error", ErrorProtocol.String())
	require.Equal(t, "unknown error", ErrorCode(0xFE).String())
}
