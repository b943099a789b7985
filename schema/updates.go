package schema

import "github.com/mivmi/snakegram/tl"

// peerEncode/peerDecode factor the three Peer* variants' shared shape: a
// single bare int64 id wrapped in a distinct boxed constructor.
type peerID struct{ ID int64 }

func (p *peerID) Encode(w *tl.Writer) { w.PutInt64(p.ID) }
func (p *peerID) Decode(r *tl.Reader) { p.ID = r.GetInt64() }

// PeerUser is peerUser.
type PeerUser struct{ peerID }

var crcPeerUser = register("peerUser user_id:long = Peer", func() tl.Decodable { return &PeerUser{} })

func (m *PeerUser) CRC() uint32 { return crcPeerUser }

// NewPeerUser returns a peerUser wrapping userID.
func NewPeerUser(userID int64) *PeerUser { return &PeerUser{peerID{ID: userID}} }

// PeerChat is peerChat.
type PeerChat struct{ peerID }

var crcPeerChat = register("peerChat chat_id:long = Peer", func() tl.Decodable { return &PeerChat{} })

func (m *PeerChat) CRC() uint32 { return crcPeerChat }

// NewPeerChat returns a peerChat wrapping chatID.
func NewPeerChat(chatID int64) *PeerChat { return &PeerChat{peerID{ID: chatID}} }

// PeerChannel is peerChannel.
type PeerChannel struct{ peerID }

var crcPeerChannel = register("peerChannel channel_id:long = Peer", func() tl.Decodable { return &PeerChannel{} })

func (m *PeerChannel) CRC() uint32 { return crcPeerChannel }

// User is a trimmed user, carrying only what entity caching and update
// dispatch need: identity, access hash, and the bot/deleted/min flags the
// entity cache's merge-don't-clobber rule depends on.
type User struct {
	ID         int64
	AccessHash int64
	Bot        bool
	Deleted    bool
	Min        bool
	FirstName  string
	Username   string
}

var crcUser = register(
	"user id:long access_hash:long bot:Bool deleted:Bool min:Bool first_name:string username:string = User",
	func() tl.Decodable { return &User{} },
)

func (m *User) CRC() uint32 { return crcUser }
func (m *User) Encode(w *tl.Writer) {
	w.PutInt64(m.ID)
	w.PutInt64(m.AccessHash)
	w.PutBool(m.Bot)
	w.PutBool(m.Deleted)
	w.PutBool(m.Min)
	w.PutString(m.FirstName)
	w.PutString(m.Username)
}
func (m *User) Decode(r *tl.Reader) {
	m.ID = r.GetInt64()
	m.AccessHash = r.GetInt64()
	m.Bot = r.GetBool()
	m.Deleted = r.GetBool()
	m.Min = r.GetBool()
	m.FirstName = r.GetString()
	m.Username = r.GetString()
}

// Chat is a basic group chat.
type Chat struct {
	ID         int64
	Title      string
	Left       bool
	MigratedTo int64
}

var crcChat = register("chat id:long title:string left:Bool migrated_to:long = Chat", func() tl.Decodable { return &Chat{} })

func (m *Chat) CRC() uint32 { return crcChat }
func (m *Chat) Encode(w *tl.Writer) {
	w.PutInt64(m.ID)
	w.PutString(m.Title)
	w.PutBool(m.Left)
	w.PutInt64(m.MigratedTo)
}
func (m *Chat) Decode(r *tl.Reader) {
	m.ID = r.GetInt64()
	m.Title = r.GetString()
	m.Left = r.GetBool()
	m.MigratedTo = r.GetInt64()
}

// Channel is a supergroup or broadcast channel.
type Channel struct {
	ID         int64
	AccessHash int64
	Title      string
	Username   string
	Megagroup  bool
	Broadcast  bool
	Min        bool
}

var crcChannel = register(
	"channel id:long access_hash:long title:string username:string megagroup:Bool broadcast:Bool min:Bool = Chat",
	func() tl.Decodable { return &Channel{} },
)

func (m *Channel) CRC() uint32 { return crcChannel }
func (m *Channel) Encode(w *tl.Writer) {
	w.PutInt64(m.ID)
	w.PutInt64(m.AccessHash)
	w.PutString(m.Title)
	w.PutString(m.Username)
	w.PutBool(m.Megagroup)
	w.PutBool(m.Broadcast)
	w.PutBool(m.Min)
}
func (m *Channel) Decode(r *tl.Reader) {
	m.ID = r.GetInt64()
	m.AccessHash = r.GetInt64()
	m.Title = r.GetString()
	m.Username = r.GetString()
	m.Megagroup = r.GetBool()
	m.Broadcast = r.GetBool()
	m.Min = r.GetBool()
}

// ChannelForbidden is channelForbidden, returned once access is revoked.
type ChannelForbidden struct {
	ID    int64
	Title string
}

var crcChannelForbidden = register("channelForbidden id:long title:string = Chat", func() tl.Decodable { return &ChannelForbidden{} })

func (m *ChannelForbidden) CRC() uint32 { return crcChannelForbidden }
func (m *ChannelForbidden) Encode(w *tl.Writer) {
	w.PutInt64(m.ID)
	w.PutString(m.Title)
}
func (m *ChannelForbidden) Decode(r *tl.Reader) {
	m.ID = r.GetInt64()
	m.Title = r.GetString()
}

// Message is the application-level message envelope carried inside update
// and difference payloads.
type Message struct {
	ID      int32
	FromID  tl.Object
	PeerID  tl.Object
	Date    int32
	Message string
	Out     bool
}

var crcMessage = register(
	"message id:int from_id:Peer peer_id:Peer date:int message:string out:Bool = Message",
	func() tl.Decodable { return &Message{} },
)

func (m *Message) CRC() uint32 { return crcMessage }
func (m *Message) Encode(w *tl.Writer) {
	w.PutInt32(m.ID)
	w.PutObject(m.FromID)
	w.PutObject(m.PeerID)
	w.PutInt32(m.Date)
	w.PutString(m.Message)
	w.PutBool(m.Out)
}
func (m *Message) decodeWith(r *tl.Reader, reg *tl.Registry) error {
	m.ID = r.GetInt32()
	from, err := reg.Decode(r)
	if err != nil {
		return err
	}
	m.FromID = from
	peer, err := reg.Decode(r)
	if err != nil {
		return err
	}
	m.PeerID = peer
	m.Date = r.GetInt32()
	m.Message = r.GetString()
	m.Out = r.GetBool()
	return nil
}

// Decode implements tl.Decodable by dispatching nested Peer fields through
// the package registry R; use decodeWith directly if a different registry applies.
func (m *Message) Decode(r *tl.Reader) {
	if err := m.decodeWith(r, R); err != nil {
		panic(err)
	}
}

// UpdateNewMessage is updateNewMessage, a pts-ordered update for common chats.
type UpdateNewMessage struct {
	Message  *Message
	Pts      int32
	PtsCount int32
}

var crcUpdateNewMessage = register(
	"updateNewMessage message:Message pts:int pts_count:int = Update",
	func() tl.Decodable { return &UpdateNewMessage{} },
)

func (m *UpdateNewMessage) CRC() uint32 { return crcUpdateNewMessage }
func (m *UpdateNewMessage) Encode(w *tl.Writer) {
	w.PutObject(m.Message)
	w.PutInt32(m.Pts)
	w.PutInt32(m.PtsCount)
}
func (m *UpdateNewMessage) Decode(r *tl.Reader) {
	r.ExpectCRC(crcMessage)
	msg := &Message{}
	if err := msg.decodeWith(r, R); err != nil {
		return
	}
	m.Message = msg
	m.Pts = r.GetInt32()
	m.PtsCount = r.GetInt32()
}

// UpdateNewChannelMessage is updateNewChannelMessage, qts-independent and
// ordered instead by a per-channel pts sequence.
type UpdateNewChannelMessage struct {
	Message  *Message
	Pts      int32
	PtsCount int32
}

var crcUpdateNewChannelMessage = register(
	"updateNewChannelMessage message:Message pts:int pts_count:int = Update",
	func() tl.Decodable { return &UpdateNewChannelMessage{} },
)

func (m *UpdateNewChannelMessage) CRC() uint32 { return crcUpdateNewChannelMessage }
func (m *UpdateNewChannelMessage) Encode(w *tl.Writer) {
	w.PutObject(m.Message)
	w.PutInt32(m.Pts)
	w.PutInt32(m.PtsCount)
}
func (m *UpdateNewChannelMessage) Decode(r *tl.Reader) {
	r.ExpectCRC(crcMessage)
	msg := &Message{}
	if err := msg.decodeWith(r, R); err != nil {
		return
	}
	m.Message = msg
	m.Pts = r.GetInt32()
	m.PtsCount = r.GetInt32()
}

// UpdateShortMessage is updateShortMessage, a compact private-chat message
// notification the client must expand into a full Message locally.
type UpdateShortMessage struct {
	ID       int32
	UserID   int64
	Message  string
	Pts      int32
	PtsCount int32
	Date     int32
	Out      bool
}

var crcUpdateShortMessage = register(
	"updateShortMessage id:int user_id:long message:string pts:int pts_count:int date:int out:Bool = Updates",
	func() tl.Decodable { return &UpdateShortMessage{} },
)

func (m *UpdateShortMessage) CRC() uint32 { return crcUpdateShortMessage }
func (m *UpdateShortMessage) Encode(w *tl.Writer) {
	w.PutInt32(m.ID)
	w.PutInt64(m.UserID)
	w.PutString(m.Message)
	w.PutInt32(m.Pts)
	w.PutInt32(m.PtsCount)
	w.PutInt32(m.Date)
	w.PutBool(m.Out)
}
func (m *UpdateShortMessage) Decode(r *tl.Reader) {
	m.ID = r.GetInt32()
	m.UserID = r.GetInt64()
	m.Message = r.GetString()
	m.Pts = r.GetInt32()
	m.PtsCount = r.GetInt32()
	m.Date = r.GetInt32()
	m.Out = r.GetBool()
}

// UpdateShortChatMessage is updateShortChatMessage, the basic-group analog
// of UpdateShortMessage.
type UpdateShortChatMessage struct {
	ID       int32
	FromID   int64
	ChatID   int64
	Message  string
	Pts      int32
	PtsCount int32
	Date     int32
}

var crcUpdateShortChatMessage = register(
	"updateShortChatMessage id:int from_id:long chat_id:long message:string pts:int pts_count:int date:int = Updates",
	func() tl.Decodable { return &UpdateShortChatMessage{} },
)

func (m *UpdateShortChatMessage) CRC() uint32 { return crcUpdateShortChatMessage }
func (m *UpdateShortChatMessage) Encode(w *tl.Writer) {
	w.PutInt32(m.ID)
	w.PutInt64(m.FromID)
	w.PutInt64(m.ChatID)
	w.PutString(m.Message)
	w.PutInt32(m.Pts)
	w.PutInt32(m.PtsCount)
	w.PutInt32(m.Date)
}
func (m *UpdateShortChatMessage) Decode(r *tl.Reader) {
	m.ID = r.GetInt32()
	m.FromID = r.GetInt64()
	m.ChatID = r.GetInt64()
	m.Message = r.GetString()
	m.Pts = r.GetInt32()
	m.PtsCount = r.GetInt32()
	m.Date = r.GetInt32()
}

// UpdateShortSentMessage is updateShortSentMessage, the ack for a message
// the client itself sent, missing from_id/peer_id since both are already known.
type UpdateShortSentMessage struct {
	ID       int32
	Pts      int32
	PtsCount int32
	Date     int32
	Out      bool
}

var crcUpdateShortSentMessage = register(
	"updateShortSentMessage id:int pts:int pts_count:int date:int out:Bool = Updates",
	func() tl.Decodable { return &UpdateShortSentMessage{} },
)

func (m *UpdateShortSentMessage) CRC() uint32 { return crcUpdateShortSentMessage }
func (m *UpdateShortSentMessage) Encode(w *tl.Writer) {
	w.PutInt32(m.ID)
	w.PutInt32(m.Pts)
	w.PutInt32(m.PtsCount)
	w.PutInt32(m.Date)
	w.PutBool(m.Out)
}
func (m *UpdateShortSentMessage) Decode(r *tl.Reader) {
	m.ID = r.GetInt32()
	m.Pts = r.GetInt32()
	m.PtsCount = r.GetInt32()
	m.Date = r.GetInt32()
	m.Out = r.GetBool()
}

// UpdateShort is updateShort, one bare Update with no seq/pts bookkeeping of
// its own (the wrapped update carries whatever it needs).
type UpdateShort struct {
	Update tl.Object
	Date   int32
}

var crcUpdateShort = register("updateShort update:Update date:int = Updates", func() tl.Decodable { return &UpdateShort{} })

func (m *UpdateShort) CRC() uint32 { return crcUpdateShort }
func (m *UpdateShort) Encode(w *tl.Writer) {
	w.PutObject(m.Update)
	w.PutInt32(m.Date)
}
func (m *UpdateShort) Decode(r *tl.Reader) {
	obj, err := R.Decode(r)
	if err != nil {
		return
	}
	m.Update = obj
	m.Date = r.GetInt32()
}

// UpdatesTooLong is updatesTooLong, signaling the client has fallen far
// enough behind that it must call GetDifference instead of replaying updates.
type UpdatesTooLong struct{}

var crcUpdatesTooLong = register("updatesTooLong = Updates", func() tl.Decodable { return &UpdatesTooLong{} })

func (m *UpdatesTooLong) CRC() uint32         { return crcUpdatesTooLong }
func (m *UpdatesTooLong) Encode(w *tl.Writer) {}
func (m *UpdatesTooLong) Decode(r *tl.Reader) {}

// UpdateChannelTooLong is updateChannelTooLong, the per-channel analog of
// UpdatesTooLong; ChannelPts, if present, seeds the GetChannelDifference call.
type UpdateChannelTooLong struct {
	ChannelID  int64
	ChannelPts int32
}

var crcUpdateChannelTooLong = register(
	"updateChannelTooLong channel_id:long pts:int = Update",
	func() tl.Decodable { return &UpdateChannelTooLong{} },
)

func (m *UpdateChannelTooLong) CRC() uint32 { return crcUpdateChannelTooLong }
func (m *UpdateChannelTooLong) Encode(w *tl.Writer) {
	w.PutInt64(m.ChannelID)
	w.PutInt32(m.ChannelPts)
}
func (m *UpdateChannelTooLong) Decode(r *tl.Reader) {
	m.ChannelID = r.GetInt64()
	m.ChannelPts = r.GetInt32()
}

func decodeObjectVector(r *tl.Reader) []tl.Object {
	return r.GetVector(R)
}

func encodeObjectVector(w *tl.Writer, items []tl.Object) {
	w.PutVector(items)
}

// Updates is the common updates constructor: a batch of Update objects plus
// the Users/Chats needed to resolve their peers, sealed with a global Seq.
type Updates struct {
	UpdatesList []tl.Object
	Users       []tl.Object
	Chats       []tl.Object
	Date        int32
	Seq         int32
}

var crcUpdates = register(
	"updates updates:Vector<Update> users:Vector<User> chats:Vector<Chat> date:int seq:int = Updates",
	func() tl.Decodable { return &Updates{} },
)

func (m *Updates) CRC() uint32 { return crcUpdates }
func (m *Updates) Encode(w *tl.Writer) {
	encodeObjectVector(w, m.UpdatesList)
	encodeObjectVector(w, m.Users)
	encodeObjectVector(w, m.Chats)
	w.PutInt32(m.Date)
	w.PutInt32(m.Seq)
}
func (m *Updates) Decode(r *tl.Reader) {
	m.UpdatesList = decodeObjectVector(r)
	m.Users = decodeObjectVector(r)
	m.Chats = decodeObjectVector(r)
	m.Date = r.GetInt32()
	m.Seq = r.GetInt32()
}

// UpdatesCombined is updatesCombined, identical to Updates but naming the
// [SeqStart, Seq] range the batch closes, used to detect skipped ranges.
type UpdatesCombined struct {
	UpdatesList []tl.Object
	Users       []tl.Object
	Chats       []tl.Object
	Date        int32
	SeqStart    int32
	Seq         int32
}

var crcUpdatesCombined = register(
	"updatesCombined updates:Vector<Update> users:Vector<User> chats:Vector<Chat> date:int seq_start:int seq:int = Updates",
	func() tl.Decodable { return &UpdatesCombined{} },
)

func (m *UpdatesCombined) CRC() uint32 { return crcUpdatesCombined }
func (m *UpdatesCombined) Encode(w *tl.Writer) {
	encodeObjectVector(w, m.UpdatesList)
	encodeObjectVector(w, m.Users)
	encodeObjectVector(w, m.Chats)
	w.PutInt32(m.Date)
	w.PutInt32(m.SeqStart)
	w.PutInt32(m.Seq)
}
func (m *UpdatesCombined) Decode(r *tl.Reader) {
	m.UpdatesList = decodeObjectVector(r)
	m.Users = decodeObjectVector(r)
	m.Chats = decodeObjectVector(r)
	m.Date = r.GetInt32()
	m.SeqStart = r.GetInt32()
	m.Seq = r.GetInt32()
}

// GetState is updates.getState, the request that bootstraps pts/qts/date/seq.
type GetState struct{}

var crcGetState = register("updates.getState = updates.State", func() tl.Decodable { return &GetState{} })

func (m *GetState) CRC() uint32         { return crcGetState }
func (m *GetState) Encode(w *tl.Writer) {}
func (m *GetState) Decode(r *tl.Reader) {}

// State is updates.state, the reply to GetState.
type State struct {
	Pts         int32
	Qts         int32
	Date        int32
	Seq         int32
	UnreadCount int32
}

var crcState = register(
	"updates.state pts:int qts:int date:int seq:int unread_count:int = updates.State",
	func() tl.Decodable { return &State{} },
)

func (m *State) CRC() uint32 { return crcState }
func (m *State) Encode(w *tl.Writer) {
	w.PutInt32(m.Pts)
	w.PutInt32(m.Qts)
	w.PutInt32(m.Date)
	w.PutInt32(m.Seq)
	w.PutInt32(m.UnreadCount)
}
func (m *State) Decode(r *tl.Reader) {
	m.Pts = r.GetInt32()
	m.Qts = r.GetInt32()
	m.Date = r.GetInt32()
	m.Seq = r.GetInt32()
	m.UnreadCount = r.GetInt32()
}

// GetDifference is updates.getDifference, fetching everything missed since
// the given Pts/Qts/Date, capped at QtsLimit secret-chat updates.
type GetDifference struct {
	Pts      int32
	Qts      int32
	Date     int32
	QtsLimit int32
}

var crcGetDifference = register(
	"updates.getDifference pts:int qts:int date:int qts_limit:int = updates.Difference",
	func() tl.Decodable { return &GetDifference{} },
)

func (m *GetDifference) CRC() uint32 { return crcGetDifference }
func (m *GetDifference) Encode(w *tl.Writer) {
	w.PutInt32(m.Pts)
	w.PutInt32(m.Qts)
	w.PutInt32(m.Date)
	w.PutInt32(m.QtsLimit)
}
func (m *GetDifference) Decode(r *tl.Reader) {
	m.Pts = r.GetInt32()
	m.Qts = r.GetInt32()
	m.Date = r.GetInt32()
	m.QtsLimit = r.GetInt32()
}

// DifferenceEmpty is updates.differenceEmpty: nothing changed since the
// client's state except the clock.
type DifferenceEmpty struct {
	Date int32
	Seq  int32
}

var crcDifferenceEmpty = register("updates.differenceEmpty date:int seq:int = updates.Difference", func() tl.Decodable { return &DifferenceEmpty{} })

func (m *DifferenceEmpty) CRC() uint32 { return crcDifferenceEmpty }
func (m *DifferenceEmpty) Encode(w *tl.Writer) {
	w.PutInt32(m.Date)
	w.PutInt32(m.Seq)
}
func (m *DifferenceEmpty) Decode(r *tl.Reader) {
	m.Date = r.GetInt32()
	m.Seq = r.GetInt32()
}

// Difference is updates.difference: the full catch-up payload, terminal
// (no further getDifference call is needed once applied).
type Difference struct {
	NewMessages   []tl.Object
	OtherUpdates  []tl.Object
	Chats         []tl.Object
	Users         []tl.Object
	State         *State
}

var crcDifference = register(
	"updates.difference new_messages:Vector<Message> other_updates:Vector<Update> chats:Vector<Chat> users:Vector<User> state:updates.State = updates.Difference",
	func() tl.Decodable { return &Difference{} },
)

func (m *Difference) CRC() uint32 { return crcDifference }
func (m *Difference) Encode(w *tl.Writer) {
	encodeObjectVector(w, m.NewMessages)
	encodeObjectVector(w, m.OtherUpdates)
	encodeObjectVector(w, m.Chats)
	encodeObjectVector(w, m.Users)
	w.PutObject(m.State)
}
func (m *Difference) Decode(r *tl.Reader) {
	m.NewMessages = decodeObjectVector(r)
	m.OtherUpdates = decodeObjectVector(r)
	m.Chats = decodeObjectVector(r)
	m.Users = decodeObjectVector(r)
	r.ExpectCRC(crcState)
	st := &State{}
	st.Decode(r)
	m.State = st
}

// DifferenceSlice is updates.differenceSlice: a non-terminal partial catch-up
// batch; IntermediateState.Pts/Qts seed the next GetDifference call.
type DifferenceSlice struct {
	NewMessages      []tl.Object
	OtherUpdates     []tl.Object
	Chats            []tl.Object
	Users            []tl.Object
	IntermediateState *State
}

var crcDifferenceSlice = register(
	"updates.differenceSlice new_messages:Vector<Message> other_updates:Vector<Update> chats:Vector<Chat> users:Vector<User> intermediate_state:updates.State = updates.Difference",
	func() tl.Decodable { return &DifferenceSlice{} },
)

func (m *DifferenceSlice) CRC() uint32 { return crcDifferenceSlice }
func (m *DifferenceSlice) Encode(w *tl.Writer) {
	encodeObjectVector(w, m.NewMessages)
	encodeObjectVector(w, m.OtherUpdates)
	encodeObjectVector(w, m.Chats)
	encodeObjectVector(w, m.Users)
	w.PutObject(m.IntermediateState)
}
func (m *DifferenceSlice) Decode(r *tl.Reader) {
	m.NewMessages = decodeObjectVector(r)
	m.OtherUpdates = decodeObjectVector(r)
	m.Chats = decodeObjectVector(r)
	m.Users = decodeObjectVector(r)
	r.ExpectCRC(crcState)
	st := &State{}
	st.Decode(r)
	m.IntermediateState = st
}

// DifferenceTooLong is updates.differenceTooLong: the gap is so large the
// client should discard all cached message history for Pts and refetch fresh.
type DifferenceTooLong struct {
	Pts int32
}

var crcDifferenceTooLong = register("updates.differenceTooLong pts:int = updates.Difference", func() tl.Decodable { return &DifferenceTooLong{} })

func (m *DifferenceTooLong) CRC() uint32         { return crcDifferenceTooLong }
func (m *DifferenceTooLong) Encode(w *tl.Writer) { w.PutInt32(m.Pts) }
func (m *DifferenceTooLong) Decode(r *tl.Reader) { m.Pts = r.GetInt32() }

// InputChannel is inputChannel, the minimal reference needed to address a
// channel in GetChannelDifference.
type InputChannel struct {
	ChannelID  int64
	AccessHash int64
}

var crcInputChannel = register("inputChannel channel_id:long access_hash:long = InputChannel", func() tl.Decodable { return &InputChannel{} })

func (m *InputChannel) CRC() uint32 { return crcInputChannel }
func (m *InputChannel) Encode(w *tl.Writer) {
	w.PutInt64(m.ChannelID)
	w.PutInt64(m.AccessHash)
}
func (m *InputChannel) Decode(r *tl.Reader) {
	m.ChannelID = r.GetInt64()
	m.AccessHash = r.GetInt64()
}

// ChannelMessagesFilterEmpty is channelMessagesFilterEmpty, the default
// (unfiltered) filter for GetChannelDifference.
type ChannelMessagesFilterEmpty struct{}

var crcChannelMessagesFilterEmpty = register("channelMessagesFilterEmpty = ChannelMessagesFilter", func() tl.Decodable { return &ChannelMessagesFilterEmpty{} })

func (m *ChannelMessagesFilterEmpty) CRC() uint32         { return crcChannelMessagesFilterEmpty }
func (m *ChannelMessagesFilterEmpty) Encode(w *tl.Writer) {}
func (m *ChannelMessagesFilterEmpty) Decode(r *tl.Reader) {}

// GetChannelDifference is updates.getChannelDifference, the per-channel
// analog of GetDifference; Force bypasses the server's "you're caught up" check.
type GetChannelDifference struct {
	Force   bool
	Channel *InputChannel
	Filter  tl.Object
	Pts     int32
	Limit   int32
}

var crcGetChannelDifference = register(
	"updates.getChannelDifference force:Bool channel:InputChannel filter:ChannelMessagesFilter pts:int limit:int = updates.ChannelDifference",
	func() tl.Decodable { return &GetChannelDifference{} },
)

func (m *GetChannelDifference) CRC() uint32 { return crcGetChannelDifference }
func (m *GetChannelDifference) Encode(w *tl.Writer) {
	w.PutBool(m.Force)
	w.PutObject(m.Channel)
	w.PutObject(m.Filter)
	w.PutInt32(m.Pts)
	w.PutInt32(m.Limit)
}
func (m *GetChannelDifference) Decode(r *tl.Reader) {
	m.Force = r.GetBool()
	r.ExpectCRC(crcInputChannel)
	ch := &InputChannel{}
	ch.Decode(r)
	m.Channel = ch
	filter, err := R.Decode(r)
	if err != nil {
		return
	}
	m.Filter = filter
	m.Pts = r.GetInt32()
	m.Limit = r.GetInt32()
}

// ChannelDifferenceEmpty is updates.channelDifferenceEmpty.
type ChannelDifferenceEmpty struct {
	Final   bool
	Pts     int32
	Timeout int32
}

var crcChannelDifferenceEmpty = register(
	"updates.channelDifferenceEmpty final:Bool pts:int timeout:int = updates.ChannelDifference",
	func() tl.Decodable { return &ChannelDifferenceEmpty{} },
)

func (m *ChannelDifferenceEmpty) CRC() uint32 { return crcChannelDifferenceEmpty }
func (m *ChannelDifferenceEmpty) Encode(w *tl.Writer) {
	w.PutBool(m.Final)
	w.PutInt32(m.Pts)
	w.PutInt32(m.Timeout)
}
func (m *ChannelDifferenceEmpty) Decode(r *tl.Reader) {
	m.Final = r.GetBool()
	m.Pts = r.GetInt32()
	m.Timeout = r.GetInt32()
}

// ChannelDifferenceTooLong is updates.channelDifferenceTooLong: the client
// should drop its local per-channel pts and treat Pts as a fresh baseline.
type ChannelDifferenceTooLong struct {
	Final    bool
	Timeout  int32
	Pts      int32
	Messages []tl.Object
	Chats    []tl.Object
	Users    []tl.Object
}

var crcChannelDifferenceTooLong = register(
	"updates.channelDifferenceTooLong final:Bool timeout:int pts:int messages:Vector<Message> chats:Vector<Chat> users:Vector<User> = updates.ChannelDifference",
	func() tl.Decodable { return &ChannelDifferenceTooLong{} },
)

func (m *ChannelDifferenceTooLong) CRC() uint32 { return crcChannelDifferenceTooLong }
func (m *ChannelDifferenceTooLong) Encode(w *tl.Writer) {
	w.PutBool(m.Final)
	w.PutInt32(m.Timeout)
	w.PutInt32(m.Pts)
	encodeObjectVector(w, m.Messages)
	encodeObjectVector(w, m.Chats)
	encodeObjectVector(w, m.Users)
}
func (m *ChannelDifferenceTooLong) Decode(r *tl.Reader) {
	m.Final = r.GetBool()
	m.Timeout = r.GetInt32()
	m.Pts = r.GetInt32()
	m.Messages = decodeObjectVector(r)
	m.Chats = decodeObjectVector(r)
	m.Users = decodeObjectVector(r)
}

// ChannelDifference is updates.channelDifference: the per-channel catch-up
// payload; Final tells the dispatcher whether another round-trip is needed.
type ChannelDifference struct {
	Final        bool
	Pts          int32
	Timeout      int32
	NewMessages  []tl.Object
	OtherUpdates []tl.Object
	Chats        []tl.Object
	Users        []tl.Object
}

var crcChannelDifference = register(
	"updates.channelDifference final:Bool pts:int timeout:int new_messages:Vector<Message> other_updates:Vector<Update> chats:Vector<Chat> users:Vector<User> = updates.ChannelDifference",
	func() tl.Decodable { return &ChannelDifference{} },
)

func (m *ChannelDifference) CRC() uint32 { return crcChannelDifference }
func (m *ChannelDifference) Encode(w *tl.Writer) {
	w.PutBool(m.Final)
	w.PutInt32(m.Pts)
	w.PutInt32(m.Timeout)
	encodeObjectVector(w, m.NewMessages)
	encodeObjectVector(w, m.OtherUpdates)
	encodeObjectVector(w, m.Chats)
	encodeObjectVector(w, m.Users)
}
func (m *ChannelDifference) Decode(r *tl.Reader) {
	m.Final = r.GetBool()
	m.Pts = r.GetInt32()
	m.Timeout = r.GetInt32()
	m.NewMessages = decodeObjectVector(r)
	m.OtherUpdates = decodeObjectVector(r)
	m.Chats = decodeObjectVector(r)
	m.Users = decodeObjectVector(r)
}
