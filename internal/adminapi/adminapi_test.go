package adminapi

import (
	"context"
	"testing"
	"time"
)

type fakeSource struct{ resp StatusResponse }

func (f fakeSource) AdminStatus() StatusResponse { return f.resp }

func TestServerGetStatusReturnsSourceSnapshot(t *testing.T) {
	src := fakeSource{resp: StatusResponse{GatewayID: "cafe1234", RxReceived: 7}}
	srv := NewServer(src, NewHub())

	got, err := srv.GetStatus(context.Background(), &StatusRequest{})
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if got.GatewayID != "cafe1234" || got.RxReceived != 7 {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestHubPublishDeliversToSubscriber(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	h.Publish(&Event{Kind: EventGPSSync})

	select {
	case e := <-ch:
		if e.Kind != EventGPSSync {
			t.Fatalf("got kind %v, want EventGPSSync", e.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestHubPublishDropsForFullSubscriberWithoutBlocking(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()

	for i := 0; i < hubBacklog+10; i++ {
		h.Publish(&Event{Kind: EventGPSStale})
	}

	if len(ch) != hubBacklog {
		t.Fatalf("expected buffer full at %d, got %d", hubBacklog, len(ch))
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch, unsubscribe := h.Subscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}
