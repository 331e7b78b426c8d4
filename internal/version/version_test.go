package version

import "testing"

func TestString(t *testing.T) {
	Version, Commit, Date = "v1.2.0", "abc123", "2026-10-01"
	t.Cleanup(func() { Version, Commit, Date = "dev", "unknown", "unknown" })

	if got, want := String("scanctl"), "scanctl version v1.2.0 (commit abc123, built 2026-10-01)"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
	if got := UserAgent(); got != "scanguard/v1.2.0" {
		t.Errorf("UserAgent = %q", got)
	}
}
