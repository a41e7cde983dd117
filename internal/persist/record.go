// Package persist stores a Service's elementary-stream layout across
// restarts: the PAT/PMT/PCR PIDs and the ordered component list, keyed by
// the Service's id-node UUID. Backed by modernc.org/sqlite, the same pure-Go
// driver the teacher vendors for its own (out-of-scope) Plex library
// integration.
package persist

import (
	"encoding/json"
	"sort"

	"github.com/hdhrcore/tvcore/internal/stream"
)

// caidJSON is the on-disk shape of one stream.CAID entry. The legacy
// caidnum/caproviderid keys are accepted on load for records written by an
// older schema version; new records are always written with caid/providerid.
type caidJSON struct {
	CAID         uint16 `json:"caid,omitempty"`
	ProviderID   uint32 `json:"providerid,omitempty"`
	LegacyCAID   uint16 `json:"caidnum,omitempty"`
	LegacyProvID uint32 `json:"caproviderid,omitempty"`
	PID          int    `json:"pid"`
}

func (c caidJSON) resolve() (caid uint16, providerID uint32) {
	if c.CAID != 0 {
		return c.CAID, c.ProviderID
	}
	return c.LegacyCAID, c.LegacyProvID
}

// streamJSON is the on-disk shape of one stream.ElementaryStream.
// CompositionID/AncillaryID keep the teacher's misspelled-on-disk
// "ancillartyid" key for backward compatibility with records already
// written by earlier schema versions.
type streamJSON struct {
	PID           int        `json:"pid"`
	Type          int        `json:"type"`
	Position      int        `json:"position"`
	Language      string     `json:"language,omitempty"`
	AudioType     int        `json:"audio_type,omitempty"`
	CAIDList      []caidJSON `json:"caidlist,omitempty"`
	CompositionID int        `json:"compositionid,omitempty"`
	AncillaryID   int        `json:"ancillartyid,omitempty"`
	ParentPID     int        `json:"parentpid,omitempty"`
	Width         int        `json:"width,omitempty"`
	Height        int        `json:"height,omitempty"`
	Duration      int        `json:"duration,omitempty"`
}

// serviceBlob is the JSON payload stored in service_records.blob.
type serviceBlob struct {
	Streams []streamJSON `json:"streams"`
}

// Record is the sqlite row for one Service: uuid primary key, the PCR/PMT
// PIDs as plain columns (so they're queryable without decoding the blob),
// and the component list JSON-encoded into blob.
type Record struct {
	UUID string
	PCR  int
	PMT  int
	Blob string
}

// EncodeService builds a Record from a live Service. Streams are sorted by
// Index (the spec's "position") ascending before encoding so repeated
// Save calls against an unchanged Service produce byte-identical blobs.
func EncodeService(svc *stream.Service) (Record, error) {
	svc.Lock()
	components := make([]*stream.ElementaryStream, len(svc.Components))
	copy(components, svc.Components)
	pcr, pmt := svc.PCRPID, svc.PMTPID
	svc.Unlock()

	sort.Slice(components, func(i, j int) bool { return components[i].Index < components[j].Index })

	blob := serviceBlob{Streams: make([]streamJSON, 0, len(components))}
	for _, es := range components {
		sj := streamJSON{
			PID:           es.PID,
			Type:          int(es.Type),
			Position:      es.Index,
			Language:      es.Language,
			AudioType:     es.AudioType,
			CompositionID: es.CompositionID,
			AncillaryID:   es.AncillaryID,
			ParentPID:     es.ParentPID,
			Width:         es.Width,
			Height:        es.Height,
		}
		if es.FrameDuration != 0 {
			sj.Duration = es.FrameDuration
		}
		for _, c := range es.CAIDs {
			sj.CAIDList = append(sj.CAIDList, caidJSON{CAID: c.CAID, ProviderID: c.ProviderID, PID: c.PID})
		}
		blob.Streams = append(blob.Streams, sj)
	}

	raw, err := json.Marshal(blob)
	if err != nil {
		return Record{}, err
	}
	return Record{UUID: svc.ID, PCR: pcr, PMT: pmt, Blob: string(raw)}, nil
}

// DecodeInto applies rec onto svc: clears and rebuilds svc.Components from
// the stored stream list (skipping any malformed item rather than aborting
// the whole load), and restores PCRPID/PMTPID.
func DecodeInto(svc *stream.Service, rec Record) error {
	var blob serviceBlob
	if err := json.Unmarshal([]byte(rec.Blob), &blob); err != nil {
		return err
	}

	sort.Slice(blob.Streams, func(i, j int) bool { return blob.Streams[i].Position < blob.Streams[j].Position })

	svc.Lock()
	defer svc.Unlock()
	svc.PCRPID = rec.PCR
	svc.PMTPID = rec.PMT
	svc.Components = svc.Components[:0]
	for _, sj := range blob.Streams {
		if sj.PID < -1 {
			continue // malformed: skip, keep loading the rest
		}
		es := svc.CreateStream(sj.PID, stream.ComponentType(sj.Type))
		es.Language = sj.Language
		es.AudioType = sj.AudioType
		es.CompositionID = sj.CompositionID
		es.AncillaryID = sj.AncillaryID
		es.ParentPID = sj.ParentPID
		es.Width = sj.Width
		es.Height = sj.Height
		es.FrameDuration = sj.Duration
		for _, cj := range sj.CAIDList {
			caid, provID := cj.resolve()
			es.CAIDs = append(es.CAIDs, &stream.CAID{CAID: caid, ProviderID: provID, PID: cj.PID})
		}
	}
	return nil
}
