package ffmpeg

import (
	"slices"
	"strings"
	"testing"
)

func TestBuildEncodeArgs(t *testing.T) {
	args := BuildEncodeArgs(DefaultEncodeParams(25), "/frames/session1_frame1.png", "/tmp/out.h264")
	cmd := strings.Join(args, " ")

	wants := []string{
		"-loglevel level+warning",
		"-y",
		"-i /frames/session1_frame1.png",
		"-frames:v 1",
		"-c:v libx264",
		"-preset ultrafast",
		"-tune zerolatency",
		"-s 1280x720",
		"-r 25",
		"-pix_fmt yuv420p",
		"-f h264 /tmp/out.h264",
	}
	for _, want := range wants {
		if !strings.Contains(cmd, want) {
			t.Errorf("command %q missing %q", cmd, want)
		}
	}
	if args[len(args)-1] != "/tmp/out.h264" {
		t.Errorf("output must be the last argument, got %q", args[len(args)-1])
	}
	if slices.Contains(args, "-profile:v") {
		t.Error("profile should be omitted when unset")
	}
}

func TestBuildEncodeArgs_OptionalFields(t *testing.T) {
	p := EncodeParams{Codec: "libx264", FPS: 30, Profile: "baseline"}
	cmd := strings.Join(BuildEncodeArgs(p, "in.png", "out.h264"), " ")

	if !strings.Contains(cmd, "-profile:v baseline") {
		t.Errorf("missing profile: %q", cmd)
	}
	for _, absent := range []string{"-preset", "-tune", "-s ", "-pix_fmt"} {
		if strings.Contains(cmd, absent) {
			t.Errorf("unexpected %q in %q", absent, cmd)
		}
	}
}

func TestEncodeParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  EncodeParams
		wantErr bool
	}{
		{"defaults", DefaultEncodeParams(25), false},
		{"no codec", EncodeParams{FPS: 25}, true},
		{"zero fps", EncodeParams{Codec: "libx264"}, true},
		{"bad resolution", EncodeParams{Codec: "libx264", FPS: 25, Resolution: "720p"}, true},
		{"no resolution", EncodeParams{Codec: "libx264", FPS: 25}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.params.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildProbeArgs(t *testing.T) {
	args := BuildProbeArgs("in.png")
	if args[len(args)-1] != "in.png" {
		t.Errorf("input must be last, got %v", args)
	}
	if !strings.Contains(strings.Join(args, " "), "-show_entries stream=width,height") {
		t.Errorf("missing show_entries: %v", args)
	}
}
