package relay

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	info := GetVersion()

	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("Platform = %q, want os/arch", info.Platform)
	}
}

func TestInfo_String(t *testing.T) {
	s := GetVersion().String()

	if !strings.Contains(s, Version) {
		t.Errorf("String() = %q, want it to contain the version %q", s, Version)
	}
	if !strings.HasPrefix(s, "Relay ") {
		t.Errorf("String() = %q, want the Relay prefix", s)
	}
}
