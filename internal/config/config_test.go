package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	os.Clearenv()
	c := Load()
	if c.StorageRoot == "" {
		t.Error("StorageRoot should have a default")
	}
	if c.GracePeriod != 10*time.Second {
		t.Errorf("GracePeriod default = %s, want 10s", c.GracePeriod)
	}
	if c.DataTimeoutEvery != 5*time.Second {
		t.Errorf("DataTimeoutEvery default = %s, want 5s", c.DataTimeoutEvery)
	}
	if c.LogQueueCapacity != 10000 {
		t.Errorf("LogQueueCapacity default = %d, want 10000", c.LogQueueCapacity)
	}
	if len(c.CAPMTCommand) != 0 {
		t.Error("CAPMTCommand should be empty by default")
	}
}

func TestLoad_capmtCommandSplit(t *testing.T) {
	os.Clearenv()
	os.Setenv("TVCORE_CAPMT_COMMAND", "/usr/bin/capmtd --socket /tmp/capmt.sock")
	c := Load()
	want := []string{"/usr/bin/capmtd", "--socket", "/tmp/capmt.sock"}
	if len(c.CAPMTCommand) != len(want) {
		t.Fatalf("CAPMTCommand = %v, want %v", c.CAPMTCommand, want)
	}
	for i := range want {
		if c.CAPMTCommand[i] != want[i] {
			t.Errorf("CAPMTCommand[%d] = %q, want %q", i, c.CAPMTCommand[i], want[i])
		}
	}
}

func TestLoad_invalidDurationFallsBackToDefault(t *testing.T) {
	os.Clearenv()
	os.Setenv("TVCORE_GRACE_PERIOD", "not-a-duration")
	c := Load()
	if c.GracePeriod != 10*time.Second {
		t.Errorf("GracePeriod = %s, want fallback 10s", c.GracePeriod)
	}
}

func TestLoad_boolParsing(t *testing.T) {
	os.Clearenv()
	os.Setenv("TVCORE_SKIP_COMMERCIALS", "yes")
	c := Load()
	if !c.SkipCommercials {
		t.Error("SkipCommercials should be true for \"yes\"")
	}
}
