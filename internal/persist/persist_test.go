package persist

import (
	"encoding/json"
	"testing"

	"github.com/hdhrcore/tvcore/internal/stream"
)

func newTestService(id string) *stream.Service {
	svc := stream.New(id, nil)
	svc.Lock()
	es2 := svc.CreateStream(201, stream.ComponentAAC)
	es2.Language = "eng"
	es1 := svc.CreateStream(101, stream.ComponentH264)
	es1.Width, es1.Height = 1920, 1080
	es1.CAIDs = append(es1.CAIDs, &stream.CAID{CAID: 0x0b00, ProviderID: 0x1234, PID: 99})
	svc.PCRPID = 101
	svc.PMTPID = 100
	svc.Unlock()
	return svc
}

func TestEncodeService_sortsStreamsByPosition(t *testing.T) {
	svc := newTestService("svc-encode")
	rec, err := EncodeService(svc)
	if err != nil {
		t.Fatal(err)
	}
	var blob serviceBlob
	if err := json.Unmarshal([]byte(rec.Blob), &blob); err != nil {
		t.Fatal(err)
	}
	if len(blob.Streams) != 2 {
		t.Fatalf("streams = %d, want 2", len(blob.Streams))
	}
	if blob.Streams[0].Position != 0 || blob.Streams[1].Position != 1 {
		t.Fatalf("positions = %d, %d, want ascending 0, 1", blob.Streams[0].Position, blob.Streams[1].Position)
	}
	if blob.Streams[0].PID != 201 || blob.Streams[1].PID != 101 {
		t.Fatalf("pids = %d, %d, want 201 (index 0), 101 (index 1)", blob.Streams[0].PID, blob.Streams[1].PID)
	}
}

func TestEncodeDecodeRoundTrip_byteIdentical(t *testing.T) {
	svc := newTestService("svc-roundtrip")
	rec1, err := EncodeService(svc)
	if err != nil {
		t.Fatal(err)
	}

	dst := stream.New("svc-roundtrip", nil)
	if err := DecodeInto(dst, rec1); err != nil {
		t.Fatal(err)
	}
	rec2, err := EncodeService(dst)
	if err != nil {
		t.Fatal(err)
	}
	if rec1.Blob != rec2.Blob {
		t.Fatalf("Save->Load->Save blob changed:\n  first:  %s\n  second: %s", rec1.Blob, rec2.Blob)
	}
	if rec1.PCR != rec2.PCR || rec1.PMT != rec2.PMT {
		t.Fatalf("PCR/PMT changed: (%d,%d) -> (%d,%d)", rec1.PCR, rec1.PMT, rec2.PCR, rec2.PMT)
	}
}

func TestDecodeInto_legacyCAIDKeysFallBack(t *testing.T) {
	rec := Record{
		UUID: "svc-legacy",
		Blob: `{"streams":[{"pid":55,"type":6,"position":0,"caidlist":[{"caidnum":2816,"caproviderid":10,"pid":60}]}]}`,
	}
	svc := stream.New("svc-legacy", nil)
	if err := DecodeInto(svc, rec); err != nil {
		t.Fatal(err)
	}
	svc.Lock()
	defer svc.Unlock()
	if len(svc.Components) != 1 || len(svc.Components[0].CAIDs) != 1 {
		t.Fatalf("expected one stream with one CAID, got %+v", svc.Components)
	}
	c := svc.Components[0].CAIDs[0]
	if c.CAID != 2816 || c.ProviderID != 10 {
		t.Fatalf("legacy caidnum/caproviderid not honored: got CAID=%d ProviderID=%d", c.CAID, c.ProviderID)
	}
}

func TestDecodeInto_malformedItemSkippedNotFatal(t *testing.T) {
	rec := Record{
		UUID: "svc-malformed",
		Blob: `{"streams":[{"pid":-99,"type":1,"position":0},{"pid":10,"type":1,"position":1}]}`,
	}
	svc := stream.New("svc-malformed", nil)
	if err := DecodeInto(svc, rec); err != nil {
		t.Fatal(err)
	}
	svc.Lock()
	defer svc.Unlock()
	if len(svc.Components) != 1 || svc.Components[0].PID != 10 {
		t.Fatalf("expected the malformed pid=-99 entry skipped, got %+v", svc.Components)
	}
}

func TestStore_saveLoadRoundTripViaSQLite(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	svc := newTestService("svc-store")
	if err := st.Save(svc); err != nil {
		t.Fatal(err)
	}

	dst := stream.New("svc-store", nil)
	ok, err := st.Load(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("Load reported no record found")
	}
	dst.Lock()
	defer dst.Unlock()
	if len(dst.Components) != 2 {
		t.Fatalf("loaded components = %d, want 2", len(dst.Components))
	}
	if dst.PCRPID != 101 || dst.PMTPID != 100 {
		t.Fatalf("PCRPID/PMTPID = %d/%d, want 101/100", dst.PCRPID, dst.PMTPID)
	}
}

func TestStore_loadMissingUUIDReturnsFalse(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	svc := stream.New("does-not-exist", nil)
	ok, err := st.Load(svc)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("Load should report false for a UUID with no stored record")
	}
}
