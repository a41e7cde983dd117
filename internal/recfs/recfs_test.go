package recfs

import "testing"

func TestUniqueChannelNames_sortedAndDeduped(t *testing.T) {
	recs := []Recording{
		{Channel: "BBC One"}, {Channel: "ITV"}, {Channel: "BBC One"}, {Channel: ""},
	}
	got := uniqueChannelNames(recs)
	want := []string{"BBC One", "ITV"}
	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("names = %v, want %v", got, want)
		}
	}
}

func TestUniqueFileNames_disambiguatesDuplicateTitles(t *testing.T) {
	recs := []Recording{
		{Channel: "BBC One", Title: "News", Suffix: "ts"},
		{Channel: "BBC One", Title: "News", Suffix: "ts"},
		{Channel: "BBC One", Title: "Weather", Suffix: "ts"},
	}
	names := uniqueFileNames(recs, []int{0, 1, 2})
	if names[2] != "Weather.ts" {
		t.Errorf("names[2] = %q, want Weather.ts", names[2])
	}
	if names[0] == names[1] {
		t.Fatalf("duplicate titles must get distinct file names, got %q and %q", names[0], names[1])
	}
	if names[0] != "News [1].ts" || names[1] != "News [2].ts" {
		t.Errorf("names = %q, %q, want News [1].ts, News [2].ts", names[0], names[1])
	}
}

func TestUniqueFileNames_singleTitleUnchanged(t *testing.T) {
	recs := []Recording{{Channel: "ITV", Title: "Drama", Suffix: "mkv"}}
	names := uniqueFileNames(recs, []int{0})
	if names[0] != "Drama.mkv" {
		t.Errorf("names[0] = %q, want Drama.mkv (no disambiguation needed)", names[0])
	}
}
