package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"tracker-sync/internal/model"
)

func startTestNATS(t *testing.T) *natsserver.Server {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestNotifyRunPublishesEvent(t *testing.T) {
	srv := startTestNATS(t)

	sub, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	ch := make(chan *nats.Msg, 1)
	if _, err := sub.ChanSubscribe("fleet.tracker_sync.completed", ch); err != nil {
		t.Fatal(err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatal(err)
	}

	n, err := Connect(srv.ClientURL(), "fleet.tracker_sync.completed", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer n.Close()

	summary := model.NewRunSummary(model.SyncModeAuto, false, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	summary.Matched = 4
	summary.Skipped = 1
	summary.ListingPath = "/Devices.aspx"
	summary.Errors = append(summary.Errors, "no match found")

	if err := n.NotifyRun(context.Background(), summary); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-ch:
		var ev RunEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			t.Fatal(err)
		}
		if ev.Mode != model.SyncModeAuto || ev.Matched != 4 || ev.Skipped != 1 || ev.Errors != 1 || ev.ListingPath != "/Devices.aspx" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for run event")
	}
}

func TestCloseDeliversLastEvent(t *testing.T) {
	srv := startTestNATS(t)

	sub, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	ch := make(chan *nats.Msg, 1)
	if _, err := sub.ChanSubscribe("fleet.tracker_sync.completed", ch); err != nil {
		t.Fatal(err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatal(err)
	}

	n, err := Connect(srv.ClientURL(), "fleet.tracker_sync.completed", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	summary := model.NewRunSummary(model.SyncModeManual, false, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	summary.Matched = 2
	if err := n.NotifyRun(context.Background(), summary); err != nil {
		t.Fatal(err)
	}
	n.Close()

	if !n.conn.IsClosed() {
		t.Fatal("connection should be closed once Close returns")
	}

	select {
	case msg := <-ch:
		var ev RunEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			t.Fatal(err)
		}
		if ev.Mode != model.SyncModeManual || ev.Matched != 2 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event published before Close was lost")
	}

	// A second Close on a closed connection must not block.
	done := make(chan struct{})
	go func() {
		n.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Close blocked")
	}
}

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{Subject: "x"}
	c := (*headerCarrier)(msg)
	if c.Get("traceparent") != "" || c.Keys() != nil {
		t.Fatal("empty carrier should have no keys")
	}
	c.Set("traceparent", "00-abc-def-01")
	if msg.Header.Get("traceparent") != "00-abc-def-01" || len(c.Keys()) != 1 {
		t.Fatalf("header=%v", msg.Header)
	}
}
