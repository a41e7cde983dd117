// Package stream holds the core live-service data model: elementary
// streams, services, the streaming pad fan-out hub, and the streaming
// message types that flow across it. This is the direct analogue of
// tvheadend's service.c / streaming.h, reworked into Go value types guarded
// by an explicit mutex instead of pthread + TAILQ.
package stream

// ComponentType tags one elementary stream's media kind. The concrete
// codec/variant list mirrors the tag set in tvheadend's streaming.h
// (SCT_* constants); we keep only the tags the filter and DVR pipeline
// actually branch on.
type ComponentType int

const (
	ComponentUnknown ComponentType = iota

	// Video codecs
	ComponentMPEG2Video
	ComponentH264
	ComponentHEVC
	ComponentVP9

	// Audio codecs
	ComponentMPEG2Audio
	ComponentAC3
	ComponentAAC
	ComponentEAC3
	ComponentDTS

	ComponentTeletext
	ComponentDVBSubtitle
	ComponentTextSubtitle
	ComponentCA
	ComponentPCR
	ComponentPMT
)

func (t ComponentType) String() string {
	switch t {
	case ComponentMPEG2Video:
		return "MPEG2VIDEO"
	case ComponentH264:
		return "H264"
	case ComponentHEVC:
		return "HEVC"
	case ComponentVP9:
		return "VP9"
	case ComponentMPEG2Audio:
		return "MPEG2AUDIO"
	case ComponentAC3:
		return "AC3"
	case ComponentAAC:
		return "AAC"
	case ComponentEAC3:
		return "EAC3"
	case ComponentDTS:
		return "DTS"
	case ComponentTeletext:
		return "TELETEXT"
	case ComponentDVBSubtitle:
		return "DVBSUB"
	case ComponentTextSubtitle:
		return "TEXTSUB"
	case ComponentCA:
		return "CA"
	case ComponentPCR:
		return "PCR"
	case ComponentPMT:
		return "PMT"
	default:
		return "UNKNOWN"
	}
}

// IsVideo reports whether t is one of the video codec tags.
func (t ComponentType) IsVideo() bool {
	switch t {
	case ComponentMPEG2Video, ComponentH264, ComponentHEVC, ComponentVP9:
		return true
	}
	return false
}

// IsAudio reports whether t is one of the audio codec tags.
func (t ComponentType) IsAudio() bool {
	switch t {
	case ComponentMPEG2Audio, ComponentAC3, ComponentAAC, ComponentEAC3, ComponentDTS:
		return true
	}
	return false
}

// IsSubtitle reports whether t is a DVB or plain-text subtitle tag.
func (t ComponentType) IsSubtitle() bool {
	return t == ComponentDVBSubtitle || t == ComponentTextSubtitle
}

// CAID is one conditional-access identifier entry on an elementary stream.
// Owned exclusively by its ElementaryStream.
type CAID struct {
	CAID       uint16 // 16-bit conditional-access system id
	ProviderID uint32 // 24-bit provider id, narrows within CAID
	PID        int
	Use        bool // whether this CAID is currently selected by the filter
	Filter     CAIDFilterFlag
}

// CAIDFilterFlag mirrors the stream-level Filter bitmask but scoped to one
// CAID entry: IGNORE and USED are mutually exclusive outcomes of one filter
// pass (spec invariant: never both hold after a pass).
type CAIDFilterFlag uint8

const (
	CAIDFilterNone CAIDFilterFlag = 0
	CAIDFilterUsed CAIDFilterFlag = 1 << iota
	CAIDFilterIgnore
)

// RateStats tracks average packet rate and continuity-error counters for one
// elementary stream, grounded on the teacher's tsPIDStats accounting in
// internal/tuner/ts_inspector.go (continuity counter errors/duplicates, PCR
// recovery deltas) rather than on a new ad hoc scheme.
type RateStats struct {
	Packets       uint64
	AvgRateKbit   float64
	ContinuityErr uint64
	ContinuityDup uint64
	PCRDeltaMin   uint64
	PCRDeltaMax   uint64
	PCRBackwards  uint64
}

// ReassemblyState holds the transport-level reassembly buffers for one
// elementary stream. Concrete depacketization (PES/PS demux) is a leaf
// concern of the out-of-scope input layer; this struct only carries the
// bytes already accumulated for the current unit plus the bookkeeping the
// filter/DVR pipeline needs to reset on start/stop.
type ReassemblyState struct {
	Main  []byte
	PS    []byte
	Audio []byte
}

func (r *ReassemblyState) reset() {
	r.Main = r.Main[:0]
	r.PS = r.PS[:0]
	r.Audio = r.Audio[:0]
}

// ElementaryStream is one PID/program component of a Service: an audio or
// video track, a subtitle or teletext stream, a CA stream, or a PCR/PMT
// marker. Created by (*Service).CreateStream while the Service's stream
// lock is held; mutated only under that lock.
type ElementaryStream struct {
	// Index is the stable, monotonically assigned position of this stream
	// within its owning Service (spec invariant: unique, monotonic).
	Index int
	// PID is the wire packet id; -1 means "no wire PID yet assigned".
	PID  int
	Type ComponentType

	Language string // ISO-639-2 3-letter code, empty if unset

	// Video geometry
	Width, Height int
	FrameDuration int // in 1/90000s ticks, 0 if unknown
	AspectNum     int
	AspectDen     int

	AudioType int

	// Subtitle linkage
	CompositionID int // DVB subtitle composition page id (legacy "compositionid")
	AncillaryID   int // DVB subtitle ancillary page id (legacy "ancillartyid", kept misspelled on disk)
	ParentPID     int // text-subtitle parent stream pid

	CAIDs []*CAID

	Reassembly ReassemblyState

	ContinuityCounter uint8
	DTS, PTS, PrevDTS int64

	Stats RateStats

	// Filter is the per-stream outcome bitmask set by the last
	// ElementaryStreamFilter pass: IGNORE or USED, never both.
	Filter CAIDFilterFlag

	Nicename string
}

// newElementaryStream constructs a stream with the given index/type and an
// unset wire PID. Callers use (*Service).CreateStream to get index
// assignment and uniqueness enforcement; this constructor is the building
// block that does.
func newElementaryStream(index int, typ ComponentType) *ElementaryStream {
	return &ElementaryStream{
		Index: index,
		PID:   -1,
		Type:  typ,
	}
}

// ResetReassembly clears transport-reassembly state, called when a
// Service (re)starts or stops streaming a component.
func (es *ElementaryStream) ResetReassembly() {
	es.Reassembly.reset()
	es.ContinuityCounter = 0
	es.DTS, es.PTS, es.PrevDTS = 0, 0, 0
}

// ClearFilterState zeroes this stream's and all its CAIDs' filter outcome,
// the first step of each ElementaryStreamFilter pass.
func (es *ElementaryStream) ClearFilterState() {
	es.Filter = CAIDFilterNone
	for _, c := range es.CAIDs {
		c.Filter = CAIDFilterNone
		c.Use = false
	}
}
