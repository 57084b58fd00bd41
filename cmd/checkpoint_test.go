package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/framefeed/internal/checkpoint"
	"github.com/smazurov/framefeed/internal/feed"
	"github.com/smazurov/framefeed/internal/h264"
	"github.com/spf13/cobra"
)

func testSettings(t *testing.T, backend string) Settings {
	t.Helper()
	return Settings{
		CheckpointBackend: backend,
		Feed: feed.Config{
			Dir:            "/frames",
			FilenameFormat: "frame%d.png",
			StartIndex:     1,
			TotalFiles:     600,
			CheckpointPath: filepath.Join(t.TempDir(), "checkpoint"),
		},
	}
}

func runCheckpoint(t *testing.T, s Settings, args ...string) (string, error) {
	t.Helper()
	cmd := CreateCheckpointCmd(func(*cobra.Command) (Settings, error) { return s, nil })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckpointShowWithoutCheckpoint(t *testing.T) {
	s := testSettings(t, checkpoint.BackendFile)

	out, err := runCheckpoint(t, s, "show")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	for _, want := range []string{"stored_index\tnone", "resume_index\t1", "next_file\t/frames/frame1.png"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckpointSetShowReset(t *testing.T) {
	for _, backend := range []string{checkpoint.BackendFile, checkpoint.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			s := testSettings(t, backend)

			if _, err := runCheckpoint(t, s, "set", "599"); err != nil {
				t.Fatalf("set failed: %v", err)
			}

			out, err := runCheckpoint(t, s, "show")
			if err != nil {
				t.Fatalf("show failed: %v", err)
			}
			// 599 is the last file, resume wraps to 0
			if !strings.Contains(out, "stored_index\t599") || !strings.Contains(out, "resume_index\t0") {
				t.Errorf("unexpected show output:\n%s", out)
			}
			if backend == checkpoint.BackendSQLite && !strings.Contains(out, "updated\t") {
				t.Errorf("sqlite backend should report update time:\n%s", out)
			}

			if _, err := runCheckpoint(t, s, "reset"); err != nil {
				t.Fatalf("reset failed: %v", err)
			}
			out, _ = runCheckpoint(t, s, "show")
			if !strings.Contains(out, "stored_index\tnone") {
				t.Errorf("checkpoint should be gone after reset:\n%s", out)
			}
		})
	}
}

func TestCheckpointSetRejectsOutOfRange(t *testing.T) {
	s := testSettings(t, checkpoint.BackendFile)

	for _, arg := range []string{"600", "-1", "abc"} {
		if _, err := runCheckpoint(t, s, "set", "--", arg); err == nil {
			t.Errorf("set %s should fail", arg)
		}
	}
}

func TestCheckpointSetWhileLocked(t *testing.T) {
	s := testSettings(t, checkpoint.BackendFile)

	owner, err := checkpoint.Open(s.CheckpointBackend, s.Feed.CheckpointPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := owner.Lock(); err != nil {
		t.Fatal(err)
	}
	defer owner.Close()

	_, err = runCheckpoint(t, s, "set", "5")
	if !checkpoint.IsCode(err, checkpoint.ErrCodeLocked) {
		t.Fatalf("expected LOCKED error, got %v", err)
	}
}

func TestNALSummary(t *testing.T) {
	payload := h264.JoinAnnexB([]byte{0x67, 0x42}, []byte{0x68, 0xCE}, []byte{0x65, 0x88})
	if got := nalSummary(payload); got != "sps,pps,idr" {
		t.Errorf("nalSummary = %q", got)
	}
	if got := nalSummary(nil); got != "none" {
		t.Errorf("nalSummary(nil) = %q", got)
	}
}
