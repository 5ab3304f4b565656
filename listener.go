package webserv

import (
	"net"
	"time"
)

// tcpKeepAliveListener wraps a *net.TCPListener, turning on TCP keep-alives
// for every accepted connection so idle connections behind NATs and load
// balancers aren't silently dropped. Connections still honor the engine's
// own request-read and keep-alive-idle deadlines (see ConnectionHandler);
// this is purely a transport-level setting.
type tcpKeepAliveListener struct {
	*net.TCPListener
}

// listenTCP opens a TCPListener for ld, wrapped with keep-alives enabled.
func listenTCP(ld ListenDirective) (net.Listener, error) {
	addr := ld.String()
	if ld.Host.IsWildcard() {
		addr = ":" + ld.Port.String()
	}
	nl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpKeepAliveListener{nl.(*net.TCPListener)}, nil
}

// Accept implements net.Listener, enabling keep-alive on each connection
// before handing it back.
func (l *tcpKeepAliveListener) Accept() (net.Conn, error) {
	tc, err := l.AcceptTCP()
	if err != nil {
		return nil, err
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
