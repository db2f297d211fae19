package server

import (
	"testing"
	"time"

	"coindash/src/logger"
	"coindash/src/models"
)

func newStoppedHubServer(t *testing.T) (*EdgeServer, chan struct{}) {
	t.Helper()

	cfg := &models.MConfig{Name: "test", Host: "127.0.0.1", Port: 8090, LogLevel: "ERROR"}
	store := newMemStore()
	p := &scriptedProvider{name: "coingecko", series: liveSeries("bitcoin", "7")}
	svc := newTestService(store, p, nil)

	srv := NewEdgeServer(cfg, svc, logger.NewLogger("ERROR", "test"))

	hubDone := make(chan struct{})
	go func() {
		srv.handleWebsockets()
		close(hubDone)
	}()
	return srv, hubDone
}

// -----------------------------------------------------------------------------

func TestEdgeServer_StopShutsHubDown(t *testing.T) {
	srv, hubDone := newStoppedHubServer(t)

	// A broadcast before shutdown goes through the normal path.
	srv.BroadcastSeries(liveSeries("bitcoin", "7"))

	if err := srv.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-hubDone:
	case <-time.After(2 * time.Second):
		t.Fatal("hub loop did not exit after Stop")
	}
}

func TestEdgeServer_BroadcastAfterStopDoesNotPanic(t *testing.T) {
	srv, hubDone := newStoppedHubServer(t)

	srv.Stop()
	<-hubDone

	// Late resolvers may still broadcast while the process unwinds; the
	// event is dropped, never a panic.
	srv.BroadcastSeries(liveSeries("bitcoin", "7"))
	srv.BroadcastSeries(liveSeries("ethereum", "1"))

	// Stop is idempotent.
	if err := srv.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
