package updates

import (
	"context"
	"testing"

	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/tl"
)

func TestHandleChannelPts_FirstUpdateAdoptsBaseline(t *testing.T) {
	d, consumer := newTestDispatcher(&fakeInvoker{})
	peer := &schema.PeerChannel{}
	peer.ID = 77
	msg := &schema.UpdateNewChannelMessage{
		Message: &schema.Message{ID: 1, PeerID: peer},
		Pts:     500, PtsCount: 1,
	}
	d.handleSingle(msg)
	if consumer.len() != 1 {
		t.Fatalf("expected the first channel update delivered, got %d", consumer.len())
	}
	if d.channelFor(77).pts != 500 {
		t.Fatalf("expected channel pts baseline adopted as 500, got %d", d.channelFor(77).pts)
	}
}

func TestHandleChannelPts_GapBuffersThenDrains(t *testing.T) {
	withShortDebounce(t)
	invoker := &fakeInvoker{}
	d, _ := newTestDispatcher(invoker)
	d.SeedChannel(1, 100)

	ahead := &schema.Message{ID: 2}
	d.handleChannelPts(1, 103, 1, ahead) // gap: wants 101
	if len(d.channelFor(1).buffer) != 1 {
		t.Fatalf("expected the out-of-order channel update buffered, got %d entries", len(d.channelFor(1).buffer))
	}

	consumer := &recordingConsumer{}
	d.consumer = consumer

	d.handleChannelPts(1, 101, 1, &schema.Message{ID: 3})
	if consumer.len() != 1 {
		t.Fatalf("expected only the gap-filling update delivered, got %d", consumer.len())
	}

	d.handleChannelPts(1, 102, 1, &schema.Message{ID: 4})
	if consumer.len() != 3 {
		t.Fatalf("expected the buffered update to drain, got %d delivered", consumer.len())
	}
	if d.channelFor(1).pts != 103 {
		t.Fatalf("expected channel pts to reach 103, got %d", d.channelFor(1).pts)
	}

	// Drained before the debounce fired: the scheduled getChannelDifference
	// call must have been cancelled.
	if calls := invoker.awaitCalls(1, 10*gapFetchDebounce); calls != 0 {
		t.Fatalf("expected the debounced getChannelDifference to be cancelled, got %d calls", calls)
	}
}

// TestHandleChannelPts_GapSchedulesDebouncedChannelDifferenceFetch mirrors
// the global-pts scenario 4 for a per-channel gap: a single out-of-order
// channel update must schedule getChannelDifference, not wait forever for
// buffering alone to close it.
func TestHandleChannelPts_GapSchedulesDebouncedChannelDifferenceFetch(t *testing.T) {
	withShortDebounce(t)
	invoker := &fakeInvoker{}
	d, _ := newTestDispatcher(invoker)
	d.SeedChannel(1, 100)

	d.handleChannelPts(1, 103, 1, &schema.Message{ID: 2}) // gap: wants 101
	if calls := invoker.awaitCalls(1, 10*gapFetchDebounce); calls < 1 {
		t.Fatalf("expected the debounced channel gap to trigger at least one getChannelDifference call, got %d", calls)
	}
}

func TestFetchChannelDifference_EmptyAdoptsPts(t *testing.T) {
	invoker := &fakeInvoker{replies: []tl.Object{&schema.ChannelDifferenceEmpty{Final: true, Pts: 900}}}
	d, _ := newTestDispatcher(invoker)
	d.SeedChannel(5, 800)

	if err := d.fetchChannelDifference(context.Background(), 5); err != nil {
		t.Fatalf("fetchChannelDifference: %v", err)
	}
	if d.channelFor(5).pts != 900 {
		t.Fatalf("expected channel pts updated to 900, got %d", d.channelFor(5).pts)
	}
}

func TestFetchChannelDifference_TooLongResetsBuffer(t *testing.T) {
	invoker := &fakeInvoker{replies: []tl.Object{
		&schema.ChannelDifferenceTooLong{Final: true, Pts: 1000, Messages: []tl.Object{&schema.Message{ID: 1}}},
	}}
	d, consumer := newTestDispatcher(invoker)
	d.SeedChannel(9, 500)
	d.channelFor(9).buffer = append(d.channelFor(9).buffer, &ptsUpdate{pts: 600, ptsCount: 1, obj: &schema.Message{ID: 99}})

	if err := d.fetchChannelDifference(context.Background(), 9); err != nil {
		t.Fatalf("fetchChannelDifference: %v", err)
	}
	if d.channelFor(9).pts != 1000 {
		t.Fatalf("expected channel pts reset to 1000, got %d", d.channelFor(9).pts)
	}
	if len(d.channelFor(9).buffer) != 0 {
		t.Fatalf("expected the stale buffer dropped, got %d entries", len(d.channelFor(9).buffer))
	}
	if consumer.len() != 1 {
		t.Fatalf("expected the TooLong reply's Messages delivered, got %d", consumer.len())
	}
}

func TestFetchChannelDifference_ContinuesUntilFinal(t *testing.T) {
	invoker := &fakeInvoker{replies: []tl.Object{
		&schema.ChannelDifference{Final: false, Pts: 700, NewMessages: []tl.Object{&schema.Message{ID: 1}}},
		&schema.ChannelDifferenceEmpty{Final: true, Pts: 710},
	}}
	d, _ := newTestDispatcher(invoker)
	d.SeedChannel(3, 600)

	if err := d.fetchChannelDifference(context.Background(), 3); err != nil {
		t.Fatalf("fetchChannelDifference: %v", err)
	}
	if invoker.calls != 2 {
		t.Fatalf("expected Final=false to trigger a second call, got %d calls", invoker.calls)
	}
	if d.channelFor(3).pts != 710 {
		t.Fatalf("expected final pts 710, got %d", d.channelFor(3).pts)
	}
}
