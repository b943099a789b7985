// Package updates implements the update dispatcher: seq/pts gap detection
// with a small reordering buffer, short-update normalization, and the
// debounced getDifference/getChannelDifference recovery calls the original
// client issues once a gap can't be closed by buffering alone.
package updates

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mivmi/snakegram/mterr"
	"github.com/mivmi/snakegram/observability"
	"github.com/mivmi/snakegram/schema"
	"github.com/mivmi/snakegram/tl"
)

// defaultQtsLimit bounds how many secret-chat updates one getDifference
// round trip returns; channelDifferenceLimit does the same for per-channel
// catch-up. maxSeqBuffer/maxPtsBuffer bound the reorder buffers themselves:
// past this many entries the ones farthest from the next expected pts/seq
// are dropped, keeping the entries most likely to drain soon.
const (
	defaultQtsLimit        = 100
	channelDifferenceLimit = 100
	maxSeqBuffer           = 64
	maxPtsBuffer           = 64
)

// gapFetchDebounce coalesces a burst of gap reports arriving close together
// into the one getDifference/getChannelDifference call that follows, rather
// than firing one per reported gap. A var, not a const, so tests can shrink
// it instead of sleeping 500ms.
var gapFetchDebounce = 500 * time.Millisecond

// Invoker is the subset of the client the dispatcher needs to recover from
// a gap: issuing getDifference/getChannelDifference and awaiting the reply.
type Invoker interface {
	Invoke(ctx context.Context, query tl.Object) (tl.Object, error)
}

// Consumer receives fully ordered, gap-free updates ready for the
// application layer (entity resolution, message stores, etc).
type Consumer interface {
	OnUpdate(obj tl.Object)
}

type seqBatch struct {
	updatesList, users, chats []tl.Object
	seqStart, seq, date       int32
}

type ptsUpdate struct {
	pts, ptsCount int32
	obj           tl.Object
}

type channelState struct {
	pts        int32
	buffer     []*ptsUpdate
	fetching   bool
	fetchTimer *time.Timer
}

// Dispatcher tracks the global pts/qts/date/seq state plus one pts counter
// per channel, and turns the raw Updates/Update wire objects the message
// loop hands it into an ordered stream for Consumer.
type Dispatcher struct {
	invoker  Invoker
	consumer Consumer
	log      *observability.Logger
	obs      observability.Observer

	mu       sync.Mutex
	pts      int32
	qts      int32
	date     int32
	seq      int32
	init     bool

	seqBuffer  map[int32]*seqBatch
	ptsBuffer  []*ptsUpdate
	fetching   bool
	fetchTimer *time.Timer

	channels map[int64]*channelState

	selfID atomic.Int64
}

// New returns a Dispatcher with no state; call Bootstrap once an
// updates.getState (or equivalent) reply is available.
func New(invoker Invoker, consumer Consumer, log *observability.Logger) *Dispatcher {
	if log == nil {
		log = observability.Discard
	}
	return &Dispatcher{
		invoker:   invoker,
		consumer:  consumer,
		log:       log,
		obs:       observability.NoopObserver,
		seqBuffer: make(map[int32]*seqBatch),
		channels:  make(map[int64]*channelState),
	}
}

// SetObserver installs obs as the dispatcher's metric sink; call before the
// first update arrives. A nil obs is ignored.
func (d *Dispatcher) SetObserver(obs observability.Observer) {
	if d == nil || obs == nil {
		return
	}
	d.obs = obs
}

// SetSelfID records the logged-in user's own id. It's consulted only to
// normalize an outgoing (Out=true) UpdateShortMessage, whose from_id the
// wire form omits since the server assumes the client already knows it.
func (d *Dispatcher) SetSelfID(id int64) {
	if d == nil {
		return
	}
	d.selfID.Store(id)
}

// SelfID returns the id last installed by SetSelfID, or 0 if none.
func (d *Dispatcher) SelfID() int64 { return d.selfID.Load() }

// Bootstrap seeds the dispatcher's state from an updates.State, normally
// fetched once at connect time via updates.getState.
func (d *Dispatcher) Bootstrap(st *schema.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pts, d.qts, d.date, d.seq = st.Pts, st.Qts, st.Date, st.Seq
	d.init = true
}

// HandleUpdate implements msgloop.Handler: every content-related object the
// message loop doesn't itself own (i.e. everything that isn't an RPC
// result or session-maintenance message) arrives here.
func (d *Dispatcher) HandleUpdate(obj tl.Object) {
	switch v := obj.(type) {
	case *schema.Updates:
		d.handleBatch(v.UpdatesList, v.Users, v.Chats, v.Seq, v.Seq, v.Date)
	case *schema.UpdatesCombined:
		d.handleBatch(v.UpdatesList, v.Users, v.Chats, v.SeqStart, v.Seq, v.Date)
	case *schema.UpdateShort:
		d.handleSingle(v.Update)
	case *schema.UpdateShortMessage:
		d.handlePtsCarrying(v.Pts, v.PtsCount, d.normalizeShortMessage(v))
	case *schema.UpdateShortChatMessage:
		d.handlePtsCarrying(v.Pts, v.PtsCount, normalizeShortChatMessage(v))
	case *schema.UpdateShortSentMessage:
		d.handlePtsCarrying(v.Pts, v.PtsCount, normalizeShortSentMessage(v))
	case *schema.UpdatesTooLong:
		d.requestFetchDifference()
	default:
		d.consumer.OnUpdate(obj)
	}
}

func (d *Dispatcher) handleSingle(obj tl.Object) {
	switch v := obj.(type) {
	case *schema.UpdateNewMessage:
		d.handlePtsCarrying(v.Pts, v.PtsCount, v)
	case *schema.UpdateNewChannelMessage:
		d.handleChannelPts(channelIDOf(v.Message), v.Pts, v.PtsCount, v)
	case *schema.UpdateChannelTooLong:
		d.requestFetchChannelDifference(v.ChannelID, v.ChannelPts)
	default:
		d.consumer.OnUpdate(obj)
	}
}

func channelIDOf(msg *schema.Message) int64 {
	if msg == nil {
		return 0
	}
	if peer, ok := msg.PeerID.(*schema.PeerChannel); ok {
		return peer.ID
	}
	return 0
}

// handleBatch applies seq-ordered Updates/UpdatesCombined, buffering
// anything that arrives ahead of the expected seq and draining the buffer
// once the gap closes.
func (d *Dispatcher) handleBatch(updatesList, users, chats []tl.Object, seqStart, seq, date int32) {
	d.mu.Lock()

	if seqStart == 0 || seq == 0 || !d.init {
		// Seq 0 (or a not-yet-bootstrapped dispatcher) means no ordering
		// guarantee is being made for this batch; apply immediately.
		d.mu.Unlock()
		d.applyBatch(updatesList, users, chats, date)
		return
	}

	if seqStart <= d.seq {
		d.mu.Unlock() // already applied, or older than our baseline
		return
	}

	if seqStart > d.seq+1 {
		d.seqBuffer[seqStart] = &seqBatch{updatesList, users, chats, seqStart, seq, date}
		trimSeqBuffer(d.seqBuffer)
		d.mu.Unlock()
		d.obs.UpdateGapDetected(observability.GapKindSeq)
		d.scheduleFetchDifference()
		return
	}

	d.seq, d.date = seq, date
	d.mu.Unlock()
	d.applyBatch(updatesList, users, chats, date)
	d.drainSeqBuffer()
}

// trimSeqBuffer drops the farthest-ahead entries once the reorder buffer
// passes maxSeqBuffer, keeping the ones closest to draining.
func trimSeqBuffer(buf map[int32]*seqBatch) {
	for len(buf) > maxSeqBuffer {
		var farthest int32 = -1
		for seqStart := range buf {
			if farthest == -1 || seqStart > farthest {
				farthest = seqStart
			}
		}
		delete(buf, farthest)
	}
}

func (d *Dispatcher) drainSeqBuffer() {
	for {
		d.mu.Lock()
		next, ok := d.seqBuffer[d.seq+1]
		if ok {
			delete(d.seqBuffer, d.seq+1)
			d.seq, d.date = next.seq, next.date
		}
		d.mu.Unlock()
		d.cancelFetchDifferenceIfDrained()
		if !ok {
			return
		}
		d.applyBatch(next.updatesList, next.users, next.chats, next.date)
	}
}

func (d *Dispatcher) applyBatch(updatesList, users, chats []tl.Object, date int32) {
	for _, u := range updatesList {
		d.handleSingle(u)
	}
	for _, u := range users {
		d.consumer.OnUpdate(u)
	}
	for _, c := range chats {
		d.consumer.OnUpdate(c)
	}
}

// handlePtsCarrying applies the global pts gap check shared by
// updateNewMessage and the three compact updateShort* variants.
func (d *Dispatcher) handlePtsCarrying(pts, ptsCount int32, obj tl.Object) {
	d.mu.Lock()

	if !d.init {
		d.mu.Unlock()
		d.consumer.OnUpdate(obj)
		return
	}

	want := d.pts + ptsCount
	switch {
	case pts < want:
		d.mu.Unlock() // duplicate or already-applied; drop silently
		return
	case pts == want:
		d.pts = pts
		d.mu.Unlock()
		d.consumer.OnUpdate(obj)
		d.drainPtsBuffer()
		return
	default:
		d.ptsBuffer = append(d.ptsBuffer, &ptsUpdate{pts: pts, ptsCount: ptsCount, obj: obj})
		sort.Slice(d.ptsBuffer, func(i, j int) bool { return d.ptsBuffer[i].pts < d.ptsBuffer[j].pts })
		if len(d.ptsBuffer) > maxPtsBuffer {
			d.ptsBuffer = d.ptsBuffer[:maxPtsBuffer]
		}
		d.mu.Unlock()
		d.obs.UpdateGapDetected(observability.GapKindPTS)
		d.scheduleFetchDifference()
		return
	}
}

func (d *Dispatcher) drainPtsBuffer() {
	for {
		d.mu.Lock()
		if len(d.ptsBuffer) == 0 {
			d.mu.Unlock()
			d.cancelFetchDifferenceIfDrained()
			return
		}
		head := d.ptsBuffer[0]
		want := d.pts + head.ptsCount
		if head.pts != want {
			d.mu.Unlock()
			return
		}
		d.ptsBuffer = d.ptsBuffer[1:]
		d.pts = head.pts
		empty := len(d.ptsBuffer) == 0
		d.mu.Unlock()
		if empty {
			d.cancelFetchDifferenceIfDrained()
		}
		d.consumer.OnUpdate(head.obj)
	}
}

// scheduleFetchDifference debounces a getDifference recovery call: every
// pts/seq gap schedules one (spec §4.6 — buffering alone never resolves a
// gap the missing updates don't happen to fill on their own), but repeated
// gap reports arriving within gapFetchDebounce of each other coalesce onto
// the one pending timer instead of stacking up redundant calls.
// requestFetchDifference is itself single-flighted once the timer fires.
func (d *Dispatcher) scheduleFetchDifference() {
	d.mu.Lock()
	if d.fetchTimer != nil {
		d.mu.Unlock()
		return
	}
	d.fetchTimer = time.AfterFunc(gapFetchDebounce, func() {
		d.mu.Lock()
		d.fetchTimer = nil
		d.mu.Unlock()
		d.requestFetchDifference()
	})
	d.mu.Unlock()
}

// cancelFetchDifferenceIfDrained stops a pending debounce timer once both
// reorder buffers have emptied out, so a gap that closed by buffering alone
// doesn't still trigger a now-pointless getDifference call.
func (d *Dispatcher) cancelFetchDifferenceIfDrained() {
	d.mu.Lock()
	drained := len(d.seqBuffer) == 0 && len(d.ptsBuffer) == 0
	if drained && d.fetchTimer != nil {
		d.fetchTimer.Stop()
		d.fetchTimer = nil
	}
	d.mu.Unlock()
}

// requestFetchDifference runs updates.getDifference to resolve a gap the
// reordering buffer couldn't close, single-flighted so concurrent gap
// reports only trigger one recovery call.
func (d *Dispatcher) requestFetchDifference() {
	d.mu.Lock()
	if d.fetching {
		d.mu.Unlock()
		return
	}
	d.fetching = true
	d.mu.Unlock()

	go func() {
		defer func() {
			d.mu.Lock()
			d.fetching = false
			d.mu.Unlock()
		}()
		if err := d.fetchDifference(context.Background()); err != nil {
			d.log.Warnf("getDifference recovery failed: %v", err)
		}
	}()
}

func (d *Dispatcher) fetchDifference(ctx context.Context) error {
	start := time.Now()
	applied := 0
	defer func() { d.obs.DifferenceFetched(time.Since(start), applied) }()

	for {
		d.mu.Lock()
		req := &schema.GetDifference{Pts: d.pts, Qts: d.qts, Date: d.date, QtsLimit: defaultQtsLimit}
		d.mu.Unlock()

		reply, err := d.invoker.Invoke(ctx, req)
		if err != nil {
			return err
		}

		switch v := reply.(type) {
		case *schema.DifferenceEmpty:
			d.mu.Lock()
			d.date, d.seq = v.Date, v.Seq
			d.mu.Unlock()
			return nil

		case *schema.Difference:
			d.applyBatch(v.NewMessages, v.Users, v.Chats, v.State.Date)
			for _, u := range v.OtherUpdates {
				d.handleSingle(u)
			}
			applied += len(v.NewMessages) + len(v.OtherUpdates)
			d.mu.Lock()
			d.pts, d.qts, d.date, d.seq = v.State.Pts, v.State.Qts, v.State.Date, v.State.Seq
			d.seqBuffer = make(map[int32]*seqBatch)
			d.ptsBuffer = nil
			d.mu.Unlock()
			return nil

		case *schema.DifferenceSlice:
			st := v.IntermediateState
			d.applyBatch(v.NewMessages, v.Users, v.Chats, st.Date)
			for _, u := range v.OtherUpdates {
				d.handleSingle(u)
			}
			applied += len(v.NewMessages) + len(v.OtherUpdates)
			d.mu.Lock()
			d.pts, d.qts, d.date = st.Pts, st.Qts, st.Date
			d.mu.Unlock()
			continue // more slices to fetch

		case *schema.DifferenceTooLong:
			d.mu.Lock()
			d.pts = v.Pts
			d.seqBuffer = make(map[int32]*seqBatch)
			d.ptsBuffer = nil
			d.mu.Unlock()
			return mterr.Wrap(mterr.StageUpdates, mterr.CodeDifferenceTooLong, nil)

		default:
			return mterr.NewSecurityError(mterr.CodeGapDetected, "unexpected updates.Difference reply")
		}
	}
}
