package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// requestTimeout bounds how long a client may hold a connection.
const requestTimeout = 2 * time.Second

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts unix-socket clients until context cancellation or listener
// close. Each connection carries exactly one request and one response.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			_ = c.SetDeadline(time.Now().Add(requestTimeout))
			_ = encodeLine(c, "response", serveOne(ctx, c, handler))
		}(conn)
	}
}

func serveOne(ctx context.Context, c net.Conn, handler Handler) Response {
	var req Request
	if err := decodeLine(c, "request", &req); err != nil {
		return Response{OK: false, Error: err.Error()}
	}

	req.Command = normalizeCommand(req.Command)
	if req.Command == "" {
		return Response{OK: false, Error: "empty command"}
	}
	return handler.Handle(ctx, req)
}
