package stream

// MessageKind tags the variant carried by a StreamingMessage.
type MessageKind int

const (
	MsgStart MessageKind = iota
	MsgStop
	MsgPacket
	MsgMPEGTS
	MsgExit
	MsgNoStart
	MsgServiceStatus
	MsgSignalStatus
	MsgTimeshiftStatus
	MsgGrace
	MsgSpeed
	MsgSkip
)

// StartInfo is the payload of a START message: the full filtered component
// list plus enough source metadata for a muxer to initialize a container.
type StartInfo struct {
	Components []*ElementaryStream
	PCRPID     int
	PMTPID     int
	Nicename   string
}

// Packet is a payload shared read-only between every Target a Broadcast
// fans out to (spec.md §3: "packet payloads are shared... between packets
// in flight"). Go's garbage collector, not manual refcounting, is what
// keeps Data alive for as long as any Target still holds the enclosing
// StreamingMessage; no Target may mutate Data.
type Packet struct {
	StreamIndex int
	Data        []byte
	PTS, DTS    int64
	Commercial  bool
	Key         bool // random-access point (keyframe)
}

// StreamingMessage is the tagged union tvheadend calls streaming_message_t.
// Exactly one of the typed fields below is meaningful, selected by Kind.
// A StreamingMessage is produced once and consumed once: ownership passes
// to whichever target's queue receives it.
type StreamingMessage struct {
	Kind MessageKind

	Start         *StartInfo      // MsgStart
	StopCode      ErrorCode       // MsgStop / MsgNoStart
	Pkt           *Packet         // MsgPacket
	MPEGTS        []byte          // MsgMPEGTS
	ServiceStatus StreamingStatusFlag // MsgServiceStatus
}

// NewStartMessage builds a START message carrying the given component list.
func NewStartMessage(si *StartInfo) *StreamingMessage {
	return &StreamingMessage{Kind: MsgStart, Start: si}
}

// NewStopMessage builds a STOP message with the given reason code.
func NewStopMessage(code ErrorCode) *StreamingMessage {
	return &StreamingMessage{Kind: MsgStop, StopCode: code}
}

// NewPacketMessage builds a PACKET message carrying pkt (ownership passes
// to the message).
func NewPacketMessage(pkt *Packet) *StreamingMessage {
	return &StreamingMessage{Kind: MsgPacket, Pkt: pkt}
}

// NewServiceStatusMessage builds a SERVICE_STATUS message.
func NewServiceStatusMessage(flags StreamingStatusFlag) *StreamingMessage {
	return &StreamingMessage{Kind: MsgServiceStatus, ServiceStatus: flags}
}

// ExitMessage is the sentinel that cancels a recording worker's queue.
var ExitMessage = &StreamingMessage{Kind: MsgExit}

// Target receives StreamingMessages delivered by a StreamingPad.
// Deliver is called under the owning Service's stream mutex and must not
// block indefinitely; on success, ownership of msg transfers to Target.
type Target interface {
	Deliver(msg *StreamingMessage) error
}
