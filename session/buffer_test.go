package session

import "testing"

func TestBufferEpochGuard(t *testing.T) {
	var b Buffer
	if b.Append(1, tone(10)) {
		t.Fatal("closed buffer accepted a frame")
	}
	b.Open(1)
	if !b.Append(1, tone(10)) {
		t.Fatal("open buffer rejected its own epoch")
	}
	if b.Append(2, tone(10)) {
		t.Fatal("frame for a future epoch accepted")
	}
	b.Open(2)
	if b.Append(1, tone(10)) {
		t.Fatal("late frame from previous epoch accepted")
	}
	if b.Len() != 0 {
		t.Fatalf("Open did not clear: len = %d", b.Len())
	}
}

func TestBufferSnapshotIsIndependent(t *testing.T) {
	var b Buffer
	b.Open(1)
	frame := tone(4)
	b.Append(1, frame)
	frame[0] = 9 // caller reuses its slice

	snap := b.Snapshot()
	if snap.Samples != 4 || snap.Epoch != 1 || snap.Frames[0][0] != 0.25 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if b.Append(1, tone(4)) {
		t.Fatal("append accepted after snapshot")
	}

	b.Open(2)
	b.Append(2, tone(8))
	if snap.Samples != 4 || len(snap.Frames) != 1 {
		t.Fatal("snapshot changed after buffer reuse")
	}
	if second := b.Snapshot(); second.Samples != 8 || second.Epoch != 2 {
		t.Fatalf("second snapshot = %+v", second)
	}
	if !(Snapshot{}).Empty() {
		t.Fatal("zero snapshot not empty")
	}
}

func TestSnapshotDuration(t *testing.T) {
	s := Snapshot{Samples: 8000}
	if d := s.Duration(); d.Milliseconds() != 500 {
		t.Errorf("Duration = %v, want 500ms", d)
	}
}
