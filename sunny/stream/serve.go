package stream

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Serve streams the emulator to websocket clients connecting on /ws until ctx
// is cancelled or the listener fails. It only returns once the emulator is no
// longer being driven, so the caller may touch it afterwards.
func Serve(ctx context.Context, emu Emulator, listener net.Listener, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := NewHub(logger)
	go hub.Run(ctx)

	played := make(chan struct{})
	go func() {
		defer close(played)
		Play(ctx, emu, hub)
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	server := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		shutdown, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		server.Shutdown(shutdown)
	}()

	logger.Info("Streaming frames", "address", listener.Addr().String(), "path", "/ws")
	err := server.Serve(listener)

	cancel()
	<-played

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serving websocket stream")
	}
	return nil
}
