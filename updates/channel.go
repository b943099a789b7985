package updates

import (
	"context"
	"sort"
	"time"

	"github.com/mivmi/snakegram/observability"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/tl"
)

// SeedChannel installs the baseline pts for a channel the caller already
// knows about (e.g. from a stored channel_pts), so the first update for it
// doesn't look like an infinite gap.
func (d *Dispatcher) SeedChannel(channelID int64, pts int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[channelID] = &channelState{pts: pts}
}

func (d *Dispatcher) channelFor(channelID int64) *channelState {
	cs, ok := d.channels[channelID]
	if !ok {
		cs = &channelState{}
		d.channels[channelID] = cs
	}
	return cs
}

// handleChannelPts is handlePtsCarrying's per-channel counterpart: each
// channel has its own independent pts sequence and its own gap buffer.
func (d *Dispatcher) handleChannelPts(channelID int64, pts, ptsCount int32, obj tl.Object) {
	if channelID == 0 {
		d.consumer.OnUpdate(obj)
		return
	}

	d.mu.Lock()
	cs := d.channelFor(channelID)

	if cs.pts == 0 {
		// First update seen for this channel: adopt its pts as the baseline
		// rather than treating it as an unbounded gap.
		cs.pts = pts
		d.mu.Unlock()
		d.consumer.OnUpdate(obj)
		return
	}

	want := cs.pts + ptsCount
	switch {
	case pts < want:
		d.mu.Unlock()
		return
	case pts == want:
		cs.pts = pts
		d.mu.Unlock()
		d.consumer.OnUpdate(obj)
		d.drainChannelBuffer(channelID)
		return
	default:
		cs.buffer = append(cs.buffer, &ptsUpdate{pts: pts, ptsCount: ptsCount, obj: obj})
		sort.Slice(cs.buffer, func(i, j int) bool { return cs.buffer[i].pts < cs.buffer[j].pts })
		if len(cs.buffer) > maxPtsBuffer {
			cs.buffer = cs.buffer[:maxPtsBuffer]
		}
		d.mu.Unlock()
		d.obs.UpdateGapDetected(observability.GapKindChannel)
		d.scheduleFetchChannelDifference(channelID)
		return
	}
}

func (d *Dispatcher) drainChannelBuffer(channelID int64) {
	for {
		d.mu.Lock()
		cs := d.channels[channelID]
		if cs == nil || len(cs.buffer) == 0 {
			if cs != nil && cs.fetchTimer != nil {
				cs.fetchTimer.Stop()
				cs.fetchTimer = nil
			}
			d.mu.Unlock()
			return
		}
		head := cs.buffer[0]
		want := cs.pts + head.ptsCount
		if head.pts != want {
			d.mu.Unlock()
			return
		}
		cs.buffer = cs.buffer[1:]
		cs.pts = head.pts
		d.mu.Unlock()
		d.consumer.OnUpdate(head.obj)
	}
}

// scheduleFetchChannelDifference is requestFetchChannelDifference's
// debounced counterpart (scheduleFetchDifference's per-channel analog):
// every channel pts gap schedules a getChannelDifference call, but repeated
// gap reports for the same channel within gapFetchDebounce coalesce onto
// the one pending timer.
func (d *Dispatcher) scheduleFetchChannelDifference(channelID int64) {
	d.mu.Lock()
	cs := d.channelFor(channelID)
	if cs.fetchTimer != nil {
		d.mu.Unlock()
		return
	}
	cs.fetchTimer = time.AfterFunc(gapFetchDebounce, func() {
		d.mu.Lock()
		if cs := d.channels[channelID]; cs != nil {
			cs.fetchTimer = nil
		}
		d.mu.Unlock()
		d.requestFetchChannelDifference(channelID, 0)
	})
	d.mu.Unlock()
}

// requestFetchChannelDifference runs updates.getChannelDifference for one
// channel, single-flighted per channel the same way requestFetchDifference
// is single-flighted globally. baselinePts seeds the first call if the
// channel has no recorded pts yet (e.g. an UpdateChannelTooLong carrying one).
func (d *Dispatcher) requestFetchChannelDifference(channelID int64, baselinePts int32) {
	d.mu.Lock()
	cs := d.channelFor(channelID)
	if cs.fetching {
		d.mu.Unlock()
		return
	}
	if cs.pts == 0 {
		cs.pts = baselinePts
	}
	cs.fetching = true
	d.mu.Unlock()

	go func() {
		defer func() {
			d.mu.Lock()
			if cs := d.channels[channelID]; cs != nil {
				cs.fetching = false
			}
			d.mu.Unlock()
		}()
		if err := d.fetchChannelDifference(context.Background(), channelID); err != nil {
			d.log.Warnf("getChannelDifference recovery failed for channel %d: %v", channelID, err)
		}
	}()
}

func (d *Dispatcher) fetchChannelDifference(ctx context.Context, channelID int64) error {
	start := time.Now()
	applied := 0
	defer func() { d.obs.DifferenceFetched(time.Since(start), applied) }()

	for {
		d.mu.Lock()
		cs := d.channelFor(channelID)
		req := &schema.GetChannelDifference{
			Force:   false,
			Channel: &schema.InputChannel{ChannelID: channelID},
			Filter:  &schema.ChannelMessagesFilterEmpty{},
			Pts:     cs.pts,
			Limit:   channelDifferenceLimit,
		}
		d.mu.Unlock()

		reply, err := d.invoker.Invoke(ctx, req)
		if err != nil {
			return err
		}

		switch v := reply.(type) {
		case *schema.ChannelDifferenceEmpty:
			d.mu.Lock()
			d.channelFor(channelID).pts = v.Pts
			d.mu.Unlock()
			return nil

		case *schema.ChannelDifferenceTooLong:
			d.mu.Lock()
			cs := d.channelFor(channelID)
			cs.pts = v.Pts
			cs.buffer = nil
			d.mu.Unlock()
			for _, u := range v.Messages {
				d.consumer.OnUpdate(u)
			}
			for _, u := range v.Chats {
				d.consumer.OnUpdate(u)
			}
			for _, u := range v.Users {
				d.consumer.OnUpdate(u)
			}
			return nil

		case *schema.ChannelDifference:
			for _, u := range v.NewMessages {
				d.consumer.OnUpdate(u)
			}
			for _, u := range v.OtherUpdates {
				d.handleSingle(u)
			}
			applied += len(v.NewMessages) + len(v.OtherUpdates)
			for _, u := range v.Chats {
				d.consumer.OnUpdate(u)
			}
			for _, u := range v.Users {
				d.consumer.OnUpdate(u)
			}
			d.mu.Lock()
			d.channelFor(channelID).pts = v.Pts
			d.mu.Unlock()
			if v.Final {
				return nil
			}
			continue

		default:
			return nil
		}
	}
}
