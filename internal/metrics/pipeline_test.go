package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestSnapshotCounters(t *testing.T) {
	before := Get()

	ObserveEncode(10*time.Millisecond, nil)
	ObserveEncode(10*time.Millisecond, errors.New("boom"))
	IncIndexSkipped()
	IncForwarded()
	IncDropped(DropReasonSink)
	IncDropped(DropReasonSink)
	IncCheckpointErrors()
	IncCleanupErrors()
	SetCheckpointIndex(42)

	after := Get()

	if after.FramesEncoded-before.FramesEncoded != 1 {
		t.Errorf("FramesEncoded delta = %d, want 1", after.FramesEncoded-before.FramesEncoded)
	}
	if after.EncodeFailures-before.EncodeFailures != 1 {
		t.Errorf("EncodeFailures delta = %d, want 1", after.EncodeFailures-before.EncodeFailures)
	}
	if after.IndicesSkipped-before.IndicesSkipped != 1 {
		t.Errorf("IndicesSkipped delta = %d, want 1", after.IndicesSkipped-before.IndicesSkipped)
	}
	if after.FramesForwarded-before.FramesForwarded != 1 {
		t.Errorf("FramesForwarded delta = %d, want 1", after.FramesForwarded-before.FramesForwarded)
	}
	if after.FramesDropped[DropReasonSink]-before.FramesDropped[DropReasonSink] != 2 {
		t.Errorf("sink drops delta = %d, want 2", after.FramesDropped[DropReasonSink]-before.FramesDropped[DropReasonSink])
	}
	if after.CheckpointErrors-before.CheckpointErrors != 1 {
		t.Error("CheckpointErrors not incremented")
	}
	if after.CleanupErrors-before.CleanupErrors != 1 {
		t.Error("CleanupErrors not incremented")
	}
	if after.CheckpointIndex != 42 {
		t.Errorf("CheckpointIndex = %d, want 42", after.CheckpointIndex)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	IncDropped(DropReasonEmpty)

	s := Get()
	s.FramesDropped[DropReasonEmpty] = 999

	if Get().FramesDropped[DropReasonEmpty] == 999 {
		t.Error("snapshot map was modified through returned copy")
	}
}

func TestConcurrentUpdates(t *testing.T) {
	before := Get().FramesForwarded

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				IncForwarded()
			}
		}()
	}
	wg.Wait()

	if got := Get().FramesForwarded - before; got != 1000 {
		t.Errorf("FramesForwarded delta = %d, want 1000", got)
	}
}
