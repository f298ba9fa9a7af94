package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }

// Serve runs an HTTP server on addr until ctx is done, then shuts it down.
func Serve(ctx context.Context, addr string, h http.Handler, logger *zap.SugaredLogger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", addr)
	}
	return serveListener(ctx, ln, h, logger)
}

func serveListener(ctx context.Context, ln net.Listener, h http.Handler, logger *zap.SugaredLogger) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Infof("http: listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http shutdown")
	}
	if err := <-errCh; err != http.ErrServerClosed {
		return err
	}
	return nil
}
