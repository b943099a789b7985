package session

import "testing"

func TestGenerateMsgID_MonotonicAndAlignedToFour(t *testing.T) {
	s := New(1, nullSalts{})
	var prev int64
	for i := 0; i < 100; i++ {
		id := s.GenerateMsgID()
		if id <= prev {
			t.Fatalf("msg_id not strictly increasing: prev=%d got=%d", prev, id)
		}
		if id%4 != 0 {
			t.Fatalf("msg_id %d not a multiple of 4", id)
		}
		prev = id
	}
}

func TestGenerateSeqNo_ContentRelatedConsumesSlot(t *testing.T) {
	s := New(1, nullSalts{})

	// Acks/containers don't bump the sequence counter.
	a := s.GenerateSeqNo(false)
	b := s.GenerateSeqNo(false)
	if a != b {
		t.Fatalf("expected repeated non-content seqno, got %d then %d", a, b)
	}

	first := s.GenerateSeqNo(true)
	second := s.GenerateSeqNo(true)
	if second <= first {
		t.Fatalf("expected content-related seqno to strictly increase: %d then %d", first, second)
	}
	if first%2 != 1 || second%2 != 1 {
		t.Fatalf("expected content-related seqno to be odd: %d, %d", first, second)
	}
}

func TestServerSalt_RefreshesOnlyAfterExpiry(t *testing.T) {
	src := &countingSalts{salt: 111}
	s := New(1, src)

	if got := s.ServerSalt(); got != 111 {
		t.Fatalf("expected initial salt from source, got %d", got)
	}
	if got := s.ServerSalt(); got != 111 {
		t.Fatalf("expected cached salt on second call, got %d", got)
	}
	if src.calls != 1 {
		t.Fatalf("expected exactly one source call while salt is valid, got %d", src.calls)
	}

	s.SetServerSalt(222)
	if got := s.ServerSalt(); got != 222 {
		t.Fatalf("expected the explicitly installed salt, got %d", got)
	}
}

func TestHandshakeCompleted_TogglesFlag(t *testing.T) {
	s := New(1, nullSalts{})
	if s.IsHandshakeComplete() {
		t.Fatalf("expected a fresh session to report handshake incomplete")
	}
	s.HandshakeCompleted()
	if !s.IsHandshakeComplete() {
		t.Fatalf("expected IsHandshakeComplete true after HandshakeCompleted")
	}
	s.StartHandshake()
	if s.IsHandshakeComplete() {
		t.Fatalf("expected StartHandshake to clear the completed flag")
	}
}

func TestUpdateTimeOffset_IgnoresDriftWithinOneSecond(t *testing.T) {
	s := New(1, nullSalts{})
	local := s.LocalTime()

	s.UpdateTimeOffset(local + 1)
	if off := s.ServerTime() - s.LocalTime(); off != 0 {
		t.Fatalf("expected a <=1s drift to be ignored, offset now %d", off)
	}

	s.UpdateTimeOffset(local + 5)
	if off := s.ServerTime() - s.LocalTime(); off < 4 || off > 5 {
		t.Fatalf("expected a >1s drift to be adopted, got offset %d", off)
	}
}

type nullSalts struct{}

func (nullSalts) ServerSalt(now int64) (int64, int64) { return 0, now + 1800 }

type countingSalts struct {
	salt  int64
	calls int
}

func (c *countingSalts) ServerSalt(now int64) (int64, int64) {
	c.calls++
	return c.salt, now + 1800
}
