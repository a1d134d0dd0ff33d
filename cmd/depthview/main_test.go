package main

import "testing"

func TestPairPaths(t *testing.T) {
	tests := []struct {
		name      string
		session   string
		args      []string
		wantImage string
		wantDepth string
		wantErr   bool
	}{
		{"explicit", "", []string{"a.png", "b.png"}, "a.png", "b.png", false},
		{"session", "shots/cat", nil, "shots/cat-depthmap-image.png", "shots/cat-depthmap-mask.png", false},
		{"session wins over args", "cat", []string{"a.png", "b.png"}, "cat-depthmap-image.png", "cat-depthmap-mask.png", false},
		{"missing depthmap", "", []string{"a.png"}, "", "", true},
		{"too many", "", []string{"a", "b", "c"}, "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, depth, err := pairPaths(tt.session, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pairPaths error = %v, wantErr %v", err, tt.wantErr)
			}
			if img != tt.wantImage || depth != tt.wantDepth {
				t.Errorf("pairPaths = (%q, %q), want (%q, %q)", img, depth, tt.wantImage, tt.wantDepth)
			}
		})
	}
}

func TestRunFailsBeforeOpeningWindow(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	tests := []struct {
		name string
		args []string
	}{
		{"missing depthmap", []string{"only.png"}},
		{"unreadable pair", []string{"missing.png", "missing-depth.png"}},
		{"invalid config", []string{"-reference", "255", "a.png", "b.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := run(tt.args); code != 1 {
				t.Errorf("expected exit code 1, got %d", code)
			}
		})
	}
}
