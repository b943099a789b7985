package updates

import "github.com/mivmi/snakegram/schema"

// normalizeShortMessage expands a compact private-chat notification into
// the full updateNewMessage shape the pts path expects. The wire form omits
// from_id for an outgoing (Out=true) message since the server assumes the
// client already knows its own identity; SelfID supplies it.
func (d *Dispatcher) normalizeShortMessage(v *schema.UpdateShortMessage) *schema.UpdateNewMessage {
	fromID := v.UserID
	if v.Out {
		fromID = d.SelfID()
	}
	return &schema.UpdateNewMessage{
		Message: &schema.Message{
			ID:      v.ID,
			FromID:  schema.NewPeerUser(fromID),
			PeerID:  schema.NewPeerUser(v.UserID),
			Date:    v.Date,
			Message: v.Message,
			Out:     v.Out,
		},
		Pts:      v.Pts,
		PtsCount: v.PtsCount,
	}
}

// normalizeShortChatMessage is normalizeShortMessage's basic-group analog:
// both from_id and peer_id already appear on the wire, just not wrapped in
// a Message/Peer shape.
func normalizeShortChatMessage(v *schema.UpdateShortChatMessage) *schema.UpdateNewMessage {
	return &schema.UpdateNewMessage{
		Message: &schema.Message{
			ID:      v.ID,
			FromID:  schema.NewPeerUser(v.FromID),
			PeerID:  schema.NewPeerChat(v.ChatID),
			Date:    v.Date,
			Message: v.Message,
		},
		Pts:      v.Pts,
		PtsCount: v.PtsCount,
	}
}

// normalizeShortSentMessage wraps the ack for a message the client itself
// just sent. Neither peer_id nor from_id is recoverable from the wire form
// alone (the server omits both, since the client already knows which
// outgoing call this acks), so the normalized Message carries neither.
func normalizeShortSentMessage(v *schema.UpdateShortSentMessage) *schema.UpdateNewMessage {
	return &schema.UpdateNewMessage{
		Message: &schema.Message{
			ID:   v.ID,
			Date: v.Date,
			Out:  v.Out,
		},
		Pts:      v.Pts,
		PtsCount: v.PtsCount,
	}
}
