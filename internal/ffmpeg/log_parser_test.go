package ffmpeg

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLevel string
		wantMsg   string
	}{
		{
			name:      "simple warning",
			input:     "[warning] deprecated pixel format used",
			wantLevel: "warning",
			wantMsg:   "deprecated pixel format used",
		},
		{
			name:      "simple error",
			input:     "[error] session1_frame10.png: No such file or directory",
			wantLevel: "error",
			wantMsg:   "session1_frame10.png: No such file or directory",
		},
		{
			name:      "component prefix with warning",
			input:     "[swscaler @ 0x7f673c439fc0] [warning] deprecated pixel format used, make sure you did set range correctly",
			wantLevel: "warning",
			wantMsg:   "[swscaler @ 0x7f673c439fc0] deprecated pixel format used, make sure you did set range correctly",
		},
		{
			name:      "component prefix with info",
			input:     "[libx264 @ 0x55f4a8c00000] [info] using cpu capabilities: MMX2 SSE2Fast",
			wantLevel: "info",
			wantMsg:   "[libx264 @ 0x55f4a8c00000] using cpu capabilities: MMX2 SSE2Fast",
		},
		{
			name:      "component prefix without level",
			input:     "[libx264 @ 0x55f4a8c00000] frame I:1 Avg QP:20.00",
			wantLevel: "info",
			wantMsg:   "[libx264 @ 0x55f4a8c00000] frame I:1 Avg QP:20.00",
		},
		{
			name:      "verbose maps to debug",
			input:     "[verbose] Parsed protocol 0",
			wantLevel: "debug",
			wantMsg:   "Parsed protocol 0",
		},
		{
			name:      "panic maps to fatal",
			input:     "[panic] assertion failed",
			wantLevel: "fatal",
			wantMsg:   "assertion failed",
		},
		{
			name:      "no prefix",
			input:     "frame=    1 fps=0.0 q=20.0 Lsize=      18kB",
			wantLevel: "info",
			wantMsg:   "frame=    1 fps=0.0 q=20.0 Lsize=      18kB",
		},
		{
			name:      "empty line",
			input:     "",
			wantLevel: "info",
			wantMsg:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLevel, gotMsg := ParseLogLevel(tt.input)
			if gotLevel != tt.wantLevel {
				t.Errorf("ParseLogLevel() level = %q, want %q", gotLevel, tt.wantLevel)
			}
			if gotMsg != tt.wantMsg {
				t.Errorf("ParseLogLevel() msg = %q, want %q", gotMsg, tt.wantMsg)
			}
		})
	}
}
