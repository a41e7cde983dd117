package supervisor

import (
	"reflect"
	"testing"
	"time"
)

func TestParseCommand_quotesAndEscapes(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`/bin/true`, []string{"/bin/true"}},
		{`/usr/bin/ffmpeg -i "input file.ts" -o out.mp4`, []string{"/usr/bin/ffmpeg", "-i", "input file.ts", "-o", "out.mp4"}},
		{`cmd arg\ with\ space`, []string{"cmd", "arg with space"}},
	}
	for _, tc := range tests {
		got := ParseCommand(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseCommand(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

func TestSupervisor_ensureAndStop(t *testing.T) {
	s := &Supervisor{
		Name:         "sleeper",
		Command:      []string{"sleep", "30"},
		Restart:      false,
		RestartDelay: time.Millisecond,
	}
	if err := s.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	// A second Ensure while already running must be a no-op, not a second
	// process launch.
	if err := s.Ensure(); err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestSupervisor_missingCommandErrors(t *testing.T) {
	s := &Supervisor{Name: "empty"}
	if err := s.Ensure(); err == nil {
		t.Fatal("expected Ensure to reject a supervisor with no command")
	}
}
