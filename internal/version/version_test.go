package version

import "testing"

func TestString(t *testing.T) {
	defer func(v, c string) { Version, GitCommit = v, c }(Version, GitCommit)

	tests := []struct {
		version, commit, want string
	}{
		{"dev", "unknown", "dev"},
		{"v0.3.0", "", "v0.3.0"},
		{"v0.3.0", "1a2b3c4d5e6f", "v0.3.0 (1a2b3c4)"},
		{"v0.3.0", "abc", "v0.3.0 (abc)"},
	}
	for _, tt := range tests {
		Version, GitCommit = tt.version, tt.commit
		if got := String(); got != tt.want {
			t.Errorf("String() with %q/%q = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}
