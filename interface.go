package yamux

import "net"

// Stream satisfies net.Conn aside from LocalAddr/RemoteAddr, which defer
// to the owning Session since a stream has no address of its own.
var _ net.Conn = (*Stream)(nil)

// LocalAddr returns the owning session's local address.
func (s *Stream) LocalAddr() net.Addr { return s.session.LocalAddr() }

// RemoteAddr returns the owning session's remote address.
func (s *Stream) RemoteAddr() net.Addr { return s.session.RemoteAddr() }
