package webserv

import (
	"net"
	"strings"
	"time"
)

// ConnState is one of the five states a ConnectionHandler cycles through.
type ConnState uint8

const (
	ConnReadingRequest ConnState = iota
	ConnProcessing
	ConnWritingResponse
	ConnKeepAlive
	ConnClosing
)

func (s ConnState) String() string {
	switch s {
	case ConnReadingRequest:
		return "reading_request"
	case ConnProcessing:
		return "processing"
	case ConnWritingResponse:
		return "writing_response"
	case ConnKeepAlive:
		return "keep_alive"
	case ConnClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// connReadChunk is the per-Read() byte budget.
const connReadChunk = 64 * 1024

// maxRequestBytes is the absolute ceiling on a request's combined
// start-line+headers+body size, past which the connection synthesizes 413
// rather than continuing to buffer.
const maxRequestBytes = 64 * 1024 * 1024

// ConnectionHandler owns one accepted client connection end to end: it
// drives the read/parse/route/handle/write cycle until the connection is
// closed. Each ConnectionHandler runs in its own goroutine and uses the
// net.Conn read/write deadlines as the suspension mechanism, so a handler
// never blocks past its current state's timeout.
type ConnectionHandler struct {
	conn       net.Conn
	engine     *Engine
	localHost  string
	localPort  Port
	remoteAddr string

	state  ConnState
	parser *Parser

	req  *HttpRequest
	resp *HttpResponse

	outBuf    []byte
	outOffset int

	lastActivity time.Time

	requestTimeout   time.Duration
	keepAliveTimeout time.Duration
}

// NewConnectionHandler wraps conn, bound to the engine that owns its
// configuration, mime table, CGI executor, and logger.
func NewConnectionHandler(conn net.Conn, engine *Engine) *ConnectionHandler {
	localHost, localPortStr, _ := net.SplitHostPort(conn.LocalAddr().String())
	localPort, _ := ParsePort(localPortStr)

	reqTimeout := 60 * time.Second
	keepAlive := 75 * time.Second
	if engine.Config.SendTimeout > 0 {
		reqTimeout = time.Duration(engine.Config.SendTimeout) * time.Second
	}
	if engine.Config.KeepAliveTimeout > 0 {
		keepAlive = time.Duration(engine.Config.KeepAliveTimeout) * time.Second
	}

	h := &ConnectionHandler{
		conn:             conn,
		engine:           engine,
		localHost:        localHost,
		localPort:        localPort,
		remoteAddr:       conn.RemoteAddr().String(),
		state:            ConnReadingRequest,
		lastActivity:     time.Now(),
		requestTimeout:   reqTimeout,
		keepAliveTimeout: keepAlive,
	}
	h.resetParser()
	return h
}

// resetParser starts a fresh Parser bound to a request pulled from the
// engine's requestPool, returning any previously in-flight request to the
// pool first.
func (h *ConnectionHandler) resetParser() {
	if h.parser != nil {
		h.engine.RequestPool.Put(h.parser.Request())
	}
	h.parser = NewParser(defaultMaxHeaderBytes, maxRequestBytes)
	h.parser.SetRequest(h.engine.RequestPool.Get())
}

// Run drives the handler until it reaches ConnClosing, then closes the
// socket. Within one connection requests are served strictly sequentially:
// the next request is not parsed until the previous response has been fully
// written.
func (h *ConnectionHandler) Run() {
	defer h.conn.Close()

	for h.state != ConnClosing {
		switch h.state {
		case ConnReadingRequest, ConnKeepAlive:
			h.handleRead()
		case ConnProcessing:
			h.handleProcess()
		case ConnWritingResponse:
			h.handleWrite()
		}
	}
}

func (h *ConnectionHandler) timeoutFor() time.Duration {
	if h.state == ConnKeepAlive {
		return h.keepAliveTimeout
	}
	return h.requestTimeout
}

// handleRead reads up to connReadChunk bytes, feeds the parser, and
// transitions on EOF, overflow, parse error, or parse completion.
func (h *ConnectionHandler) handleRead() {
	if h.parser == nil {
		h.resetParser()
	}

	h.conn.SetReadDeadline(time.Now().Add(h.timeoutFor()))

	buf := make([]byte, connReadChunk)
	n, err := h.conn.Read(buf)
	if n == 0 && err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			if h.state == ConnKeepAlive {
				h.state = ConnClosing
				return
			}
			h.synthesize(StatusRequestTimeout, true)
			return
		}
		h.state = ConnClosing
		return
	}
	h.lastActivity = time.Now()

	result, perr := h.parser.Feed(buf[:n])
	switch result {
	case FeedNeedsMore:
		if h.parser.headerBytes+len(h.parser.buf) > maxRequestBytes {
			h.synthesize(StatusPayloadTooLarge, true)
			return
		}
		// stay in the current read state; Run's loop calls us again.
		return
	case FeedComplete:
		h.req = h.parser.Request()
		h.state = ConnProcessing
	case FeedErrorResult:
		he, _ := AsError(perr)
		h.synthesize(he.Kind.Status(), true)
	}
}

// handleProcess resolves the virtual host and location, dispatches the
// matched handler, and serializes the response.
func (h *ConnectionHandler) handleProcess() {
	srv := h.resolveServer()
	if srv == nil {
		h.synthesize(StatusNotFound, true)
		return
	}

	effectiveMax := srv.ClientMaxBodySize
	if effectiveMax == 0 {
		effectiveMax = h.engine.Config.ClientMaxBodySize
	}
	if effectiveMax > 0 && int64(len(h.req.Body)) > effectiveMax.Bytes() {
		h.respondWithServer(srv, nil, StatusPayloadTooLarge)
		return
	}

	loc := SelectLocation(srv.Locations, h.req.Uri.Path)
	if loc == nil {
		h.respondWithServer(srv, nil, StatusNotFound)
		return
	}

	hctx := &HandlerContext{
		Fs:          h.engine.Fs,
		Cache:       h.engine.ListingCache,
		CgiExecutor: h.engine.CgiExecutor,
		Logger:      h.engine.Logger,
		MimeTypes:   h.engine.Config.MimeTypes,
		Server:      srv,
		Location:    loc,
		ServerName:  h.primaryServerName(srv),
		ServerPort:  h.localPort,
		RemoteAddr:  h.remoteAddr,
	}

	resp, err := Dispatch(hctx, h.req)
	if err != nil {
		he, _ := AsError(err)
		h.respondWithServer(srv, loc, he.Kind.Status())
		return
	}

	h.finishResponse(resp)
}

func (h *ConnectionHandler) primaryServerName(srv *ServerConfig) string {
	if len(srv.ServerNames) > 0 {
		return srv.ServerNames[0]
	}
	return h.localHost
}

// respondWithServer synthesizes an error response using srv/loc's
// configured error pages (falling back through the precedence in
// resolveErrorPage), then finishes the response the normal way.
func (h *ConnectionHandler) respondWithServer(srv *ServerConfig, loc *LocationConfig, status ErrorCode) {
	resp := resolveErrorPage(h.engine.Fs, loc, srv, status)
	h.finishResponse(resp)
}

// synthesize builds a canned error response with no server/location context,
// used for parser-stage and virtual-host-resolution failures, before a
// ServerConfig has even been selected.
func (h *ConnectionHandler) synthesize(status ErrorCode, forceClose bool) {
	resp := NewErrorResponse(status)
	if forceClose {
		resp.KeepAlive(false)
	}
	h.finishResponse(resp)
}

// finishResponse sets the Connection header (any 4xx/5xx forces close;
// otherwise the request's own keep-alive intent decides), serializes the
// response into the outbound buffer, and transitions to WritingResponse.
func (h *ConnectionHandler) finishResponse(resp *HttpResponse) {
	if resp.Version.Major == 0 {
		if h.req != nil {
			resp.Version = h.req.Version
		} else {
			resp.Version = HTTP11
		}
	}

	keepAlive := false
	if !resp.Status.IsError() && h.req != nil {
		keepAlive = h.req.ResolveKeepAlive()
	}
	if !resp.Headers.Has("Connection") {
		resp.KeepAlive(keepAlive)
	}

	h.resp = resp

	buf := h.engine.BufferPool.Get()
	defer h.engine.BufferPool.Put(buf)
	resp.WriteTo(buf)
	h.outBuf = append([]byte(nil), buf.Bytes()...)
	h.outOffset = 0

	h.logAccess()
	h.state = ConnWritingResponse
}

// handleWrite writes from outOffset, handling short writes by updating the
// offset and returning for another call, and deciding KeepAlive vs Closing
// once the buffer is fully flushed.
func (h *ConnectionHandler) handleWrite() {
	h.conn.SetWriteDeadline(time.Now().Add(h.requestTimeout))

	n, err := h.conn.Write(h.outBuf[h.outOffset:])
	h.outOffset += n
	if err != nil {
		h.state = ConnClosing
		return
	}
	if h.outOffset < len(h.outBuf) {
		return
	}

	keepAlive := h.resp != nil && strings.EqualFold(h.resp.Headers.Get("Connection"), "keep-alive")
	h.req = nil
	h.resp = nil
	h.outBuf = nil
	h.outOffset = 0
	h.resetParser()

	if keepAlive {
		h.state = ConnKeepAlive
	} else {
		h.state = ConnClosing
	}
}

// resolveServer selects the virtual host from the connection's local
// (host, port) and the parsed request's effective Host.
func (h *ConnectionHandler) resolveServer() *ServerConfig {
	return SelectServer(h.engine.Config.Servers, h.localHost, h.localPort, h.req.Host())
}

func (h *ConnectionHandler) logAccess() {
	if h.engine.Logger == nil || h.req == nil || h.resp == nil {
		return
	}
	h.engine.Logger.Access(AccessEntry{
		RemoteAddr: h.remoteAddr,
		Method:     h.req.Method,
		Target:     h.req.RawTarget,
		Version:    h.req.Version,
		Status:     h.resp.Status,
		Bytes:      len(h.resp.Body),
	})
}

// IsTimedOut reports whether the connection has been idle past its current
// state's deadline. Exposed for callers that reap idle handlers, separate
// from the per-Read SetReadDeadline enforcement already applied inline.
func (h *ConnectionHandler) IsTimedOut(now time.Time) bool {
	return now.Sub(h.lastActivity) > h.timeoutFor()
}
