// Command askit is a push-to-talk voice command tool. The first invocation
// owns the microphone for one utterance; later ones steer it over a socket.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/askit/internal/app"
)

func main() {
	// SIGINT and SIGTERM cancel the owner session, which discards the recording.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
