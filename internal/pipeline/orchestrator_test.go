package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/dgallion1/bondgen/internal/config"
	"github.com/dgallion1/bondgen/internal/draftstore"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	return config.Config{
		WorkerCount:     2,
		MaxQueueSize:    4,
		JobTTL:          time.Hour,
		GenerateTimeout: time.Minute,
	}
}

func waitDone(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		snap := job.Snapshot()
		if snap.Status.Done() {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", job.ID)
	return JobSnapshot{}
}

func TestOrchestrator_CompletesAndPersists(t *testing.T) {
	store := draftstore.NewMemory()
	o := NewOrchestrator(testConfig(), store, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job, err := o.Submit(NewJob("u1", "d1", testRequest(t)))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	snap := waitDone(t, job)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Bonds != 3 {
		t.Errorf("expected 3 bonds, got %d", snap.Progress.Bonds)
	}
	if o.GetJob(job.ID) != job {
		t.Error("expected job to be retrievable by id")
	}

	saved, err := store.Get(context.Background(), draftstore.Key{UserID: "u1", DraftID: "d1", Kind: draftstore.KindArchive})
	if err != nil {
		t.Fatalf("expected archive in draft store, got %v", err)
	}
	if saved.Name != "CityOfAustin_Bonds.zip" {
		t.Errorf("expected archive name, got %q", saved.Name)
	}
	if string(saved.Data) != string(job.Output().Archive) {
		t.Error("expected stored archive to match job output")
	}
	if s := o.Stats().Snapshot(); s.Completed != 1 || s.Bonds != 3 {
		t.Errorf("expected one completed run of 3 bonds, got %+v", s)
	}
}

func TestOrchestrator_IdenticalSubmitReturnsExistingJob(t *testing.T) {
	o := NewOrchestrator(testConfig(), nil, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	req := testRequest(t)
	first, err := o.Submit(NewJob("u1", "", req))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := o.Submit(NewJob("u1", "", req))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first != second {
		t.Errorf("expected the existing job %s, got %s", first.ID, second.ID)
	}
	waitDone(t, first)
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, nil, discardLogger())

	if _, err := o.Submit(NewJob("u1", "", testRequest(t))); err != nil {
		t.Fatalf("expected first submit to succeed, got %v", err)
	}
	job, err := o.Submit(NewJob("u2", "", testRequest(t)))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.ErrorCode != bonderr.InternalError {
		t.Errorf("expected rejected job failed with INTERNAL_ERROR, got %q %q", snap.Status, snap.ErrorCode)
	}
	if len(snap.Progress.Errors) != 1 || !strings.Contains(snap.Progress.Errors[0], "queue is full") {
		t.Errorf("expected the reason on the job, got %v", snap.Progress.Errors)
	}
	if o.FindActive("u2", job.RequestHash) != nil {
		t.Error("expected the rejected job not to block a retry")
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
	o.Stop()
}

func TestOrchestrator_StopFailsQueuedJobs(t *testing.T) {
	// No workers are started, so the job stays queued until Stop.
	o := NewOrchestrator(testConfig(), nil, discardLogger())
	job, err := o.Submit(NewJob("u1", "", testRequest(t)))
	if err != nil {
		t.Fatalf("expected submit to succeed, got %v", err)
	}

	o.Stop()
	o.Stop()

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.ErrorCode != bonderr.InternalError {
		t.Fatalf("expected queued job failed with INTERNAL_ERROR, got %q %q", snap.Status, snap.ErrorCode)
	}
	if _, err := o.Submit(NewJob("u2", "", testRequest(t))); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after Stop, got %v", err)
	}
}

func TestWorker_RecordsFailure(t *testing.T) {
	stats := NewRunStats(time.Hour)
	w := NewWorker(nil, stats, discardLogger(), time.Minute)

	req := testRequest(t)
	req.Template = []byte("not a zip")
	job := NewJob("u1", "", req)
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", snap.Status)
	}
	if snap.ErrorCode != bonderr.InvalidTemplate {
		t.Errorf("expected %s, got %s", bonderr.InvalidTemplate, snap.ErrorCode)
	}
	if snap.Progress.MaturityRows != 3 || snap.Progress.CusipRows != 3 {
		t.Errorf("expected row counts observed before failure, got %+v", snap.Progress)
	}
	if s := stats.Snapshot(); s.Runs != 1 || s.Failures[bonderr.InvalidTemplate] != 1 {
		t.Errorf("expected one INVALID_TEMPLATE failure, got %+v", s)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[Stage]JobStatus{
		StageParseMaturity: StatusParsing,
		StageAssemble:      StatusParsing,
		StageFill:          StatusFilling,
		StageArchive:       StatusPackaging,
	}
	for stage, want := range tests {
		if got := statusFor(stage); got != want {
			t.Errorf("statusFor(%s): expected %q, got %q", stage, want, got)
		}
	}
}
