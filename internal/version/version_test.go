package version

import "testing"

func TestBuildMetadataInitialized(t *testing.T) {
	// All three are ldflags injection points and must never be empty, only
	// "unknown" when built without flags.
	for name, value := range map[string]string{
		"Version":   Version,
		"BuildTime": BuildTime,
		"GitCommit": GitCommit,
	} {
		if value == "" {
			t.Errorf("%s should not be empty", name)
		}
	}
}
