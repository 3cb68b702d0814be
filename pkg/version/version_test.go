package version

import (
	"strings"
	"testing"
)

func TestFull(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "1.2.3"
	if got := Full(); got != "marketplace-scroll 1.2.3" {
		t.Errorf("Full() = %q", got)
	}
}

func TestGoVersion(t *testing.T) {
	if !strings.HasPrefix(GoVersion(), "go") {
		t.Errorf("GoVersion() = %q", GoVersion())
	}
}
