package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/dgallion1/bondgen/internal/draftstore"
)

// Worker processes generation jobs one at a time.
type Worker struct {
	store   draftstore.Store
	stats   *RunStats
	log     *slog.Logger
	timeout time.Duration
}

// NewWorker returns a worker. store may be nil, in which case archives
// are kept in memory only.
func NewWorker(store draftstore.Store, stats *RunStats, log *slog.Logger, timeout time.Duration) *Worker {
	return &Worker{
		store:   store,
		stats:   stats,
		log:     log,
		timeout: timeout,
	}
}

// statusFor maps a pipeline stage to the job status shown to clients.
func statusFor(s Stage) JobStatus {
	switch s {
	case StageFill:
		return StatusFilling
	case StageArchive:
		return StatusPackaging
	}
	return StatusParsing
}

// Process runs one generation job to completion.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "user_id", job.UserID, "draft_id", job.DraftID)

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := Run(ctx, job.Request(), func(stage Stage, partial *Output) {
		job.Observe(partial)
		job.SetStatus(statusFor(stage), string(stage))
		log.Debug("stage started", "stage", stage)
	})
	elapsed := time.Since(start)
	if w.stats != nil {
		sample := RunSample{Duration: elapsed}
		if err != nil {
			sample.Code = bonderr.CodeOf(err)
		} else {
			sample.Bonds = len(out.Bonds)
		}
		w.stats.Record(sample)
	}

	if err != nil {
		log.Error("generation failed", "code", bonderr.CodeOf(err), "error", err, "duration_ms", elapsed.Milliseconds())
		job.Fail(err)
		return
	}
	log.Info("generation complete",
		"bonds", len(out.Bonds),
		"archive_bytes", len(out.Archive),
		"duration_ms", elapsed.Milliseconds(),
	)

	if w.store != nil && job.DraftID != "" {
		key := draftstore.Key{UserID: job.UserID, DraftID: job.DraftID, Kind: draftstore.KindArchive}
		err := w.store.Put(ctx, key, draftstore.File{Name: out.ArchiveName, Data: out.Archive})
		if err != nil {
			log.Warn("archive persist failed", "error", err)
			job.AddError(fmt.Sprintf("archive not saved to draft: %s", err))
		}
	}

	job.Complete(out)
}
