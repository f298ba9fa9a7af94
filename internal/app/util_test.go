package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"go.uber.org/zap/zaptest"
	"go.viam.com/test"
)

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "ok") })
	go func() { done <- serveListener(ctx, ln, h, zaptest.NewLogger(t).Sugar()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	test.That(t, err, test.ShouldBeNil)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(body), test.ShouldEqual, "ok")

	cancel()
	test.That(t, <-done, test.ShouldBeNil)

	err = Serve(context.Background(), "not-an-address", h, zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldNotBeNil)
}
