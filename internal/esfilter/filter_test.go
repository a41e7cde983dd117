package esfilter

import (
	"testing"

	"github.com/hdhrcore/tvcore/internal/stream"
)

func newSvc(t *testing.T, comps ...struct {
	pid int
	typ stream.ComponentType
	lang string
}) *stream.Service {
	t.Helper()
	svc := stream.New("svc1", nil)
	svc.Lock()
	for _, c := range comps {
		es := svc.CreateStream(c.pid, c.typ)
		es.Language = c.lang
	}
	svc.Unlock()
	return svc
}

func TestApply_noRules_passesEverythingAndMarksUsed(t *testing.T) {
	svc := newSvc(t,
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{100, stream.ComponentH264, ""},
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{101, stream.ComponentAAC, "eng"},
	)
	svc.Lock()
	defer svc.Unlock()
	rs := NewSet()
	Apply(svc, rs, nil)
	if len(svc.Filtered) != 2 {
		t.Fatalf("Filtered len = %d, want 2", len(svc.Filtered))
	}
}

func TestApply_onceDowngradesSecondSameLanguageAudio(t *testing.T) {
	svc := newSvc(t,
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{200, stream.ComponentAC3, "eng"},
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{201, stream.ComponentAAC, "eng"},
	)
	svc.Lock()
	defer svc.Unlock()

	rs := NewSet()
	rs.Add(ClassAudio, &Rule{Enabled: true, Action: ActionOnce, Language: "eng"})
	Apply(svc, rs, nil)

	if len(svc.Filtered) != 1 {
		t.Fatalf("Filtered len = %d, want 1 (second eng audio should be downgraded to ignore)", len(svc.Filtered))
	}
	if svc.Filtered[0].PID != 200 {
		t.Fatalf("Filtered[0].PID = %d, want 200 (first match keeps it)", svc.Filtered[0].PID)
	}
}

func TestApply_exclusiveCARuleNarrowsToOneCAID(t *testing.T) {
	svc := newSvc(t,
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{300, stream.ComponentCA, ""},
	)
	svc.Lock()
	es := svc.Components[0]
	es.CAIDs = []*stream.CAID{
		{CAID: 0x0500, ProviderID: 1, PID: 300},
		{CAID: 0x0602, ProviderID: 2, PID: 300},
	}
	svc.Unlock()

	svc.Lock()
	defer svc.Unlock()

	want := uint16(0x0500)
	rs := NewSet()
	rs.Add(ClassCA, &Rule{Enabled: true, Action: ActionExclusive, CAID: &want})
	Apply(svc, rs, nil)

	if len(svc.Filtered) != 1 {
		t.Fatalf("Filtered len = %d, want 1", len(svc.Filtered))
	}
	if !es.CAIDs[0].Use {
		t.Error("CAID 0x0500 should be Use=true")
	}
	if es.CAIDs[1].Use {
		t.Error("CAID 0x0602 should be Use=false (excluded by EXCLUSIVE rule)")
	}
}

func TestApply_exclusiveRewindClearsPriorClassAdmissions(t *testing.T) {
	svc := newSvc(t,
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{400, stream.ComponentAC3, "eng"},
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{401, stream.ComponentAAC, "fre"},
	)
	svc.Lock()
	defer svc.Unlock()

	fre := "fre"
	rs := NewSet()
	rs.Add(ClassAudio, &Rule{Enabled: true, Action: ActionUse})
	rs.Add(ClassAudio, &Rule{Enabled: true, Action: ActionExclusive, Language: fre})
	Apply(svc, rs, nil)

	if len(svc.Filtered) != 1 {
		t.Fatalf("Filtered len = %d, want 1", len(svc.Filtered))
	}
	if svc.Filtered[0].PID != 401 {
		t.Fatalf("Filtered[0].PID = %d, want 401 (exclusive rule should rewind prior USE admission)", svc.Filtered[0].PID)
	}
}

func TestApply_ignoreExcludesStreamFromFallback(t *testing.T) {
	svc := newSvc(t,
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{500, stream.ComponentTeletext, ""},
	)
	svc.Lock()
	defer svc.Unlock()

	rs := NewSet()
	rs.Add(ClassTeletext, &Rule{Enabled: true, Action: ActionIgnore})
	Apply(svc, rs, nil)

	if len(svc.Filtered) != 0 {
		t.Fatalf("Filtered len = %d, want 0 (ignored stream must not fall through)", len(svc.Filtered))
	}
}

func TestApply_emptyActionSkippedStreamStillReachesFallback(t *testing.T) {
	svc := newSvc(t,
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{600, stream.ComponentDVBSubtitle, "eng"},
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{601, stream.ComponentDVBSubtitle, "fre"},
	)
	svc.Lock()
	defer svc.Unlock()

	rs := NewSet()
	rs.Add(ClassSubtitle, &Rule{Enabled: true, Action: ActionUse, Language: "eng"})
	rs.Add(ClassSubtitle, &Rule{Enabled: true, Action: ActionEmpty, Language: "fre"})
	Apply(svc, rs, nil)

	if len(svc.Filtered) != 2 {
		t.Fatalf("Filtered len = %d, want 2 (EMPTY skips 601 once the class has output, then the fallback pass admits it)", len(svc.Filtered))
	}
	if svc.Filtered[0].PID != 600 || svc.Filtered[1].PID != 601 {
		t.Fatalf("Filtered PIDs = %d, %d, want 600 (USE rule), 601 (fallback)", svc.Filtered[0].PID, svc.Filtered[1].PID)
	}
}

func TestApply_sindexSelectsOnlyNthMatch(t *testing.T) {
	svc := newSvc(t,
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{700, stream.ComponentAAC, "eng"},
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{701, stream.ComponentAAC, "eng"},
	)
	svc.Lock()
	defer svc.Unlock()

	rs := NewSet()
	rs.Add(ClassAudio, &Rule{Enabled: true, Action: ActionIgnore, Language: "eng", SIndex: 1})
	Apply(svc, rs, nil)

	if len(svc.Filtered) != 1 {
		t.Fatalf("Filtered len = %d, want 1", len(svc.Filtered))
	}
	if svc.Filtered[0].PID != 701 {
		t.Fatalf("Filtered[0].PID = %d, want 701 (only the first match should be ignored)", svc.Filtered[0].PID)
	}
}

func TestApply_disabledRuleIsSkipped(t *testing.T) {
	svc := newSvc(t,
		struct {
			pid  int
			typ  stream.ComponentType
			lang string
		}{800, stream.ComponentAAC, "eng"},
	)
	svc.Lock()
	defer svc.Unlock()

	rs := NewSet()
	rs.Add(ClassAudio, &Rule{Enabled: false, Action: ActionIgnore})
	Apply(svc, rs, nil)

	if len(svc.Filtered) != 1 {
		t.Fatalf("Filtered len = %d, want 1 (disabled rule must have no effect, fallback admits)", len(svc.Filtered))
	}
}
