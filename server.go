package webserv

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Engine is the top-level running server: the loaded configuration plus the
// collaborators every ConnectionHandler shares (filesystem, directory
// listing cache, CGI executor, logger, buffer/request pools). It owns a
// set of raw net.Listeners; there is no net/http.Server underneath, the
// connection state machine in conn.go is the whole transport.
type Engine struct {
	Config       *HttpConfig
	Fs           Fs
	Logger       *Logger
	ListingCache *listingCache
	CgiExecutor  *CgiExecutor
	BufferPool   *bufferPool
	RequestPool  *requestPool

	mu        sync.Mutex
	listeners []net.Listener
	wg        sync.WaitGroup
	closed    bool
}

// NewEngine wires config's collaborators together. fs defaults to the real
// filesystem when nil, matching osFs being fs.go's zero-config default.
func NewEngine(config *HttpConfig, logger *Logger, fs Fs) *Engine {
	if fs == nil {
		fs = DefaultFs
	}
	if logger == nil {
		logger = NewLogger()
	}

	e := &Engine{
		Config:      config,
		Fs:          fs,
		Logger:      logger,
		CgiExecutor: NewCgiExecutor(logger),
		BufferPool:  newBufferPool(4 * 1024),
		RequestPool: newRequestPool(),
	}
	e.ListingCache = newListingCache(32*1024*1024, logger)
	return e
}

// uniqueListenDirectives collects every distinct (host, port) a ServerConfig
// declares, since several virtual hosts commonly share one listen address.
func uniqueListenDirectives(servers []*ServerConfig) []ListenDirective {
	seen := map[string]bool{}
	var out []ListenDirective
	for _, srv := range servers {
		for _, ld := range srv.Listen {
			key := ld.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, ld)
		}
	}
	return out
}

// Serve opens a listener for every distinct listen directive across the
// configured virtual hosts and blocks, accepting connections and handing
// each to its own goroutine, until Close or Shutdown is called. It returns
// nil once every listener has been closed deliberately.
func (e *Engine) Serve() error {
	directives := uniqueListenDirectives(e.Config.Servers)
	if len(directives) == 0 {
		return fmt.Errorf("webserv: no listen directives configured")
	}

	for _, ld := range directives {
		nl, err := listenTCP(ld)
		if err != nil {
			e.closeListeners()
			return fmt.Errorf("webserv: listen %s: %w", ld.String(), err)
		}

		e.mu.Lock()
		e.listeners = append(e.listeners, nl)
		e.mu.Unlock()

		e.wg.Add(1)
		go e.acceptLoop(nl)

		e.Logger.Infof("listening on %s", ld.String())
	}

	e.wg.Wait()
	return nil
}

// acceptLoop runs for the lifetime of one listener, spawning a
// ConnectionHandler goroutine per accepted connection. It returns once the
// listener is closed (by Close/Shutdown or a fatal accept error).
func (e *Engine) acceptLoop(nl net.Listener) {
	defer e.wg.Done()

	for {
		conn, err := nl.Accept()
		if err != nil {
			e.mu.Lock()
			closed := e.closed
			e.mu.Unlock()
			if closed {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			e.Logger.Errorf("accept error on %s: %v", nl.Addr(), err)
			return
		}

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			NewConnectionHandler(conn, e).Run()
		}()
	}
}

// Close closes every listener immediately, without waiting for in-flight
// connections to finish their current request.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return e.closeListeners()
}

func (e *Engine) closeListeners() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for _, nl := range e.listeners {
		if err := nl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if e.ListingCache != nil {
		e.ListingCache.Close()
	}
	return firstErr
}

// Shutdown closes the listeners, then waits for in-flight connection
// goroutines to finish on their own (each bounded by its own read/write
// deadlines) or for ctx to expire, whichever comes first.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.Close(); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShutdownTimeout is a convenience wrapper around Shutdown using a fixed
// grace period, for callers that don't need a caller-supplied context.
func (e *Engine) ShutdownTimeout(grace time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return e.Shutdown(ctx)
}
