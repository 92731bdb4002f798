package pipeline

import (
	"testing"
	"time"

	"github.com/dgallion1/bondgen/internal/bond"
	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/dgallion1/bondgen/internal/schedule"
)

func TestContentHashHex(t *testing.T) {
	empty := ContentHashHex(nil)
	if empty != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("unexpected digest of empty input: %s", empty)
	}
	if ContentHashHex([]byte("Maturity Date,CUSIP")) == ContentHashHex([]byte("Maturity Date,CUSIP\n")) {
		t.Error("expected a trailing newline to change the digest")
	}
}

func TestRequestHash(t *testing.T) {
	a := Request{Template: []byte("t"), Maturity: []byte("m"), Cusip: []byte("c")}
	b := a
	if a.Hash() != b.Hash() {
		t.Error("expected identical requests to hash the same")
	}
	b.Numbering.StartingNumber = 10
	if a.Hash() == b.Hash() {
		t.Error("expected starting number to change the hash")
	}
	c := a
	c.Info.IssuerName = "City of Austin"
	if a.Hash() == c.Hash() {
		t.Error("expected issuer name to change the hash")
	}
	swapped := Request{Template: []byte("t"), Maturity: []byte("c"), Cusip: []byte("m")}
	if a.Hash() == swapped.Hash() {
		t.Error("expected swapped schedules to hash differently")
	}
}

func TestNewJob(t *testing.T) {
	req := Request{Template: []byte("t")}
	j1 := NewJob("u1", "d1", req)
	j2 := NewJob("u1", "d1", req)
	if j1.ID == "" || j1.ID == j2.ID {
		t.Errorf("expected distinct non-empty ids, got %q and %q", j1.ID, j2.ID)
	}
	if j1.Status != StatusQueued || j1.DraftID != "d1" {
		t.Errorf("unexpected new job %+v", j1.Snapshot())
	}
	if j1.RequestHash != req.Hash() {
		t.Errorf("expected request hash %q, got %q", req.Hash(), j1.RequestHash)
	}
}

// TestJob_FollowsStages drives a job through the stages of a run the way
// the worker does and checks what a poller would see after each one.
func TestJob_FollowsStages(t *testing.T) {
	job := NewJob("u", "", Request{})
	partial := &Output{
		Maturity: &schedule.MaturitySchedule{Rows: make([]schedule.MaturityEntry, 3)},
	}

	steps := []struct {
		stage  Stage
		out    *Output
		status JobStatus
		rows   [2]int
		bonds  int
	}{
		{StageParseMaturity, partial, StatusParsing, [2]int{3, 0}, 0},
		{StageParseCusip, &Output{
			Maturity: partial.Maturity,
			Cusip:    &schedule.CusipSchedule{Rows: make([]schedule.CusipEntry, 3)},
		}, StatusParsing, [2]int{3, 3}, 0},
		{StageExtractTags, nil, StatusParsing, [2]int{3, 3}, 0},
		{StageFill, &Output{Bonds: make([]bond.Bond, 3)}, StatusFilling, [2]int{3, 3}, 3},
		{StageArchive, nil, StatusPackaging, [2]int{3, 3}, 3},
	}

	for _, st := range steps {
		job.SetStatus(statusFor(st.stage), string(st.stage))
		job.Observe(st.out)

		snap := job.Snapshot()
		if snap.Status != st.status || snap.Phase != string(st.stage) {
			t.Errorf("after %s: expected %s/%s, got %s/%s", st.stage, st.status, st.stage, snap.Status, snap.Phase)
		}
		got := [2]int{snap.Progress.MaturityRows, snap.Progress.CusipRows}
		if got != st.rows || snap.Progress.Bonds != st.bonds {
			t.Errorf("after %s: expected rows %v and %d bonds, got %v and %d", st.stage, st.rows, st.bonds, got, snap.Progress.Bonds)
		}
		if snap.Status.Done() {
			t.Errorf("after %s: job reported done", st.stage)
		}
	}
}

func TestJob_Fail(t *testing.T) {
	job := NewJob("u", "", Request{})
	job.SetStatus(StatusFilling, string(StageFill))
	job.Fail(bonderr.New(bonderr.FillError, "bond BOND-002: broken"))

	snap := job.Snapshot()
	if snap.Status != StatusFailed || !snap.Status.Done() {
		t.Errorf("expected failed, got %q", snap.Status)
	}
	if snap.Phase != string(StageFill) {
		t.Errorf("expected the failing stage to stay visible, got %q", snap.Phase)
	}
	if snap.ErrorCode != bonderr.FillError {
		t.Errorf("expected code %q, got %q", bonderr.FillError, snap.ErrorCode)
	}
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "bond BOND-002: broken" {
		t.Errorf("expected message without code prefix, got %v", snap.Progress.Errors)
	}
}

func TestJob_CompleteKeepsWarningsAndReleasesRequest(t *testing.T) {
	job := NewJob("u", "", Request{Template: []byte("big")})
	job.AddError("archive not saved to draft")
	job.Complete(&Output{ArchiveName: "CityOfAustin_Bonds.zip", Bonds: make([]bond.Bond, 2)})

	if job.Request().Template != nil {
		t.Error("expected request inputs to be released")
	}
	if job.Output() == nil {
		t.Fatal("expected output to be kept")
	}
	snap := job.Snapshot()
	if snap.Status != StatusCompleted || snap.Phase != "done" {
		t.Errorf("expected completed/done, got %s/%s", snap.Status, snap.Phase)
	}
	if snap.ArchiveName != "CityOfAustin_Bonds.zip" || snap.Progress.Bonds != 2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.ErrorCode != "" {
		t.Errorf("expected no error code, got %q", snap.ErrorCode)
	}
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected the warning to survive completion, got %v", snap.Progress.Errors)
	}
}

func TestJob_SnapshotIsDetached(t *testing.T) {
	job := NewJob("u", "", Request{})
	if snap := job.Snapshot(); snap.Progress.Errors == nil {
		t.Error("expected an empty, non-nil error list for a fresh job")
	}

	job.AddError("first")
	snap := job.Snapshot()
	job.AddError("second")
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected the earlier snapshot to keep one error, got %v", snap.Progress.Errors)
	}
	snap.Progress.Errors[0] = "changed"
	if got := job.Snapshot().Progress.Errors[0]; got != "first" {
		t.Errorf("expected job errors to be unaffected by snapshot edits, got %q", got)
	}
}

func TestJobStore_FindActive(t *testing.T) {
	store := NewJobStore(time.Hour)
	req := Request{Template: []byte("t"), Maturity: []byte("m"), Cusip: []byte("c")}

	live := NewJob("u", "", req)
	store.Put(live)
	if got := store.Get(live.ID); got != live {
		t.Fatalf("expected stored job back, got %v", got)
	}
	if store.Get("missing") != nil {
		t.Error("expected nil for an unknown id")
	}

	if got := store.FindActive("u", req.Hash()); got != live {
		t.Errorf("expected queued job to be reused, got %v", got)
	}
	if got := store.FindActive("other", req.Hash()); got != nil {
		t.Errorf("expected no match for another user, got %v", got)
	}

	live.Complete(&Output{})
	if got := store.FindActive("u", req.Hash()); got != live {
		t.Errorf("expected completed job to be reused, got %v", got)
	}

	retry := Request{Template: []byte("t2")}
	failed := NewJob("u", "", retry)
	failed.Fail(bonderr.New(bonderr.ParsingError, "bad csv"))
	store.Put(failed)
	if got := store.FindActive("u", retry.Hash()); got != nil {
		t.Errorf("expected failed job to be ignored, got %v", got)
	}
}

func TestJobStore_Cleanup(t *testing.T) {
	store := NewJobStore(time.Hour)

	stale := NewJob("u", "", Request{})
	stale.Complete(&Output{})
	stale.UpdatedAt = time.Now().Add(-2 * time.Hour)
	fresh := NewJob("u", "", Request{})
	store.Put(stale)
	store.Put(fresh)

	store.Cleanup()

	if store.Get(stale.ID) != nil {
		t.Error("expected the stale job to be evicted")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected the fresh job to survive")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 job left, got %d", store.Len())
	}
}
