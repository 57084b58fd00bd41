package ffmpeg

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/framefeed/internal/feed"
	"github.com/smazurov/framefeed/internal/h264"
)

// fakeBinary writes an executable shell script standing in for ffmpeg/ffprobe.
// On -version it prints a banner; otherwise it runs body with $out set to the last argument.
func fakeBinary(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"-version\" ]; then echo \"" + name + " version test\"; exit 0; fi\n" +
		"for a; do out=$a; done\n" +
		body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session1_frame1.png")
	if err := os.WriteFile(path, []byte("\x89PNG"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestEncoder(t *testing.T, ffmpegBody string) *Encoder {
	t.Helper()
	enc, err := NewEncoder(context.Background(), EncoderOptions{
		FFmpegPath:  fakeBinary(t, "ffmpeg", ffmpegBody),
		FFprobePath: fakeBinary(t, "ffprobe", `echo "1280,720"`),
		Params:      DefaultEncodeParams(25),
		WorkDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewEncoder() error = %v", err)
	}
	t.Cleanup(func() { _ = enc.Close() })
	return enc
}

func TestEncoder_Encode(t *testing.T) {
	enc := newTestEncoder(t, `printf '\000\000\000\001\147\102\000\000\000\001\145\210' > "$out"`)

	data, err := enc.Encode(context.Background(), writeInput(t))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := h264.JoinAnnexB([]byte{0x67, 0x42}, []byte{0x65, 0x88})
	if !bytes.Equal(data, want) {
		t.Errorf("Encode() = %x, want %x", data, want)
	}
}

func TestEncoder_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		input    func(t *testing.T) string
		wantCode string
	}{
		{
			name:     "missing input",
			body:     `exit 0`,
			input:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.png") },
			wantCode: feed.ErrCodeTransientRead,
		},
		{
			name:     "non-zero exit",
			body:     `echo "[error] decode failed" >&2; exit 1`,
			input:    writeInput,
			wantCode: feed.ErrCodeEncode,
		},
		{
			name:     "malformed output",
			body:     `printf 'not h264' > "$out"`,
			input:    writeInput,
			wantCode: feed.ErrCodeEncode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := newTestEncoder(t, tt.body)
			_, err := enc.Encode(context.Background(), tt.input(t))
			if !feed.IsCode(err, tt.wantCode) {
				t.Errorf("Encode() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestEncoder_FailureCarriesLastErrorLine(t *testing.T) {
	body := `echo "[info] reading input" >&2; echo "[png @ 0x1] [error] Invalid PNG signature" >&2; echo "[warning] giving up" >&2; exit 1`
	enc := newTestEncoder(t, body)

	_, err := enc.Encode(context.Background(), writeInput(t))
	if !feed.IsCode(err, feed.ErrCodeEncode) {
		t.Fatalf("Encode() error = %v, want code %s", err, feed.ErrCodeEncode)
	}
	if !strings.Contains(err.Error(), "Invalid PNG signature") {
		t.Errorf("error %q does not carry the ffmpeg error line", err)
	}
}

func TestErrorTail(t *testing.T) {
	tests := []struct {
		name  string
		lines [][2]string
		want  string
	}{
		{"no errors", [][2]string{{"stderr", "[info] ok"}, {"stderr", "[warning] slow"}}, ""},
		{"last error wins", [][2]string{{"stderr", "[error] first"}, {"stderr", "[fatal] second"}, {"stderr", "[info] done"}}, "second"},
		{"stdout ignored", [][2]string{{"stdout", "[error] not from ffmpeg log"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tail := &errorTail{}
			for _, l := range tt.lines {
				tail.HandleLine(l[0], l[1])
			}
			if got := tail.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncoder_EmptyOutput(t *testing.T) {
	enc := newTestEncoder(t, `: > "$out"`)
	data, err := enc.Encode(context.Background(), writeInput(t))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Encode() = %d bytes, want empty", len(data))
	}
}

func TestEncoder_NoOutputWritten(t *testing.T) {
	enc := newTestEncoder(t, `exit 0`)
	data, err := enc.Encode(context.Background(), writeInput(t))
	if !feed.IsCode(err, feed.ErrCodeEncode) {
		t.Errorf("Encode() error = %v, want code %s", err, feed.ErrCodeEncode)
	}
	if data != nil {
		t.Errorf("Encode() = %d bytes, want nil", len(data))
	}
}

func TestEncoder_StaleOutputNotReused(t *testing.T) {
	// first call writes a frame, later calls write nothing
	marker := filepath.Join(t.TempDir(), "ran")
	body := `if [ ! -f "` + marker + `" ]; then touch "` + marker + `"; printf '\000\000\001\145' > "$out"; fi`
	enc := newTestEncoder(t, body)
	input := writeInput(t)

	first, err := enc.Encode(context.Background(), input)
	if err != nil || len(first) == 0 {
		t.Fatalf("first Encode() = %d bytes, %v", len(first), err)
	}
	second, err := enc.Encode(context.Background(), input)
	if !feed.IsCode(err, feed.ErrCodeEncode) {
		t.Errorf("second Encode() error = %v, want code %s", err, feed.ErrCodeEncode)
	}
	if len(second) != 0 {
		t.Errorf("second Encode() returned stale output (%d bytes)", len(second))
	}
}

func TestNewEncoder_Unavailable(t *testing.T) {
	good := fakeBinary(t, "ffprobe", "")
	broken := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(broken, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		ffmpeg  string
		ffprobe string
		params  EncodeParams
	}{
		{"missing ffmpeg", "/nonexistent/ffmpeg", good, DefaultEncodeParams(25)},
		{"missing ffprobe", fakeBinary(t, "ffmpeg", ""), "/nonexistent/ffprobe", DefaultEncodeParams(25)},
		{"version fails", broken, good, DefaultEncodeParams(25)},
		{"empty path", "", good, DefaultEncodeParams(25)},
		{"bad params", fakeBinary(t, "ffmpeg", ""), good, EncodeParams{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncoder(context.Background(), EncoderOptions{
				FFmpegPath:  tt.ffmpeg,
				FFprobePath: tt.ffprobe,
				Params:      tt.params,
				WorkDir:     t.TempDir(),
			})
			if !feed.IsCode(err, feed.ErrCodeEncoderUnavailable) {
				t.Errorf("NewEncoder() error = %v, want code %s", err, feed.ErrCodeEncoderUnavailable)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	v, err := Version(context.Background(), fakeBinary(t, "ffmpeg", ""))
	if err != nil {
		t.Fatal(err)
	}
	if v != "ffmpeg version test" {
		t.Errorf("Version() = %q", v)
	}
}

func TestEncoder_Probe(t *testing.T) {
	enc := newTestEncoder(t, "")
	w, h, err := enc.Probe(context.Background(), writeInput(t))
	if err != nil {
		t.Fatal(err)
	}
	if w != 1280 || h != 720 {
		t.Errorf("Probe() = %dx%d, want 1280x720", w, h)
	}
}

func TestEncoder_CloseRemovesWorkDir(t *testing.T) {
	enc := newTestEncoder(t, "")
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(enc.dir); !os.IsNotExist(err) {
		t.Errorf("work dir still exists: %v", err)
	}
}
