package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/google/uuid"
)

// JobStatus represents the state of a generation job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusFilling   JobStatus = "filling"
	StatusPackaging JobStatus = "packaging"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Done reports whether the status is final.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks one asynchronous certificate run.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	UserID  string `json:"user_id"`
	DraftID string `json:"draft_id,omitempty"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	RequestHash string    `json:"request_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	request   Request
	output    *Output
	errorCode bonderr.Code
	errors    []string
}

// Progress tracks the counts known so far.
type Progress struct {
	MaturityRows int      `json:"maturity_rows"`
	CusipRows    int      `json:"cusip_rows"`
	Bonds        int      `json:"bonds"`
	Errors       []string `json:"errors"`
}

// NewJob returns a queued job for req.
func NewJob(userID, draftID string, req Request) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		UserID:      userID,
		DraftID:     draftID,
		Status:      StatusQueued,
		Phase:       "queued",
		RequestHash: req.Hash(),
		CreatedAt:   now,
		UpdatedAt:   now,
		request:     req,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// FindActive returns a job of userID with the same request hash that has
// not failed, or nil.
func (s *JobStore) FindActive(userID, hash string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.UserID != userID || job.RequestHash != hash {
			continue
		}
		job.mu.Lock()
		failed := job.Status == StatusFailed
		job.mu.Unlock()
		if !failed {
			return job
		}
	}
	return nil
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records a non-fatal problem.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Observe copies the counts of a partial output into the progress.
func (j *Job) Observe(out *Output) {
	if out == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if out.Maturity != nil {
		j.Progress.MaturityRows = len(out.Maturity.Rows)
	}
	if out.Cusip != nil {
		j.Progress.CusipRows = len(out.Cusip.Rows)
	}
	j.Progress.Bonds = len(out.Bonds)
	j.UpdatedAt = time.Now()
}

// Fail marks the job failed with the code and message of err.
func (j *Job) Fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errorCode = bonderr.CodeOf(err)
	j.errors = append(j.errors, bonderr.Message(err))
	j.Progress.Errors = j.errors
	j.Status = StatusFailed
	j.UpdatedAt = time.Now()
}

// Complete stores the output and marks the job completed. The request
// inputs are released.
func (j *Job) Complete(out *Output) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.output = out
	j.request = Request{}
	j.Progress.Bonds = len(out.Bonds)
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Request returns the inputs of the job.
func (j *Job) Request() Request {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.request
}

// Output returns the result of a completed job, or nil.
func (j *Job) Output() *Output {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.output
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string       `json:"job_id"`
	UserID      string       `json:"user_id"`
	DraftID     string       `json:"draft_id,omitempty"`
	Status      JobStatus    `json:"status"`
	Phase       string       `json:"phase"`
	ErrorCode   bonderr.Code `json:"error_code,omitempty"`
	ArchiveName string       `json:"archive_name,omitempty"`
	Progress    Progress     `json:"progress"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	snap := JobSnapshot{
		ID:        j.ID,
		UserID:    j.UserID,
		DraftID:   j.DraftID,
		Status:    j.Status,
		Phase:     j.Phase,
		ErrorCode: j.errorCode,
		Progress: Progress{
			MaturityRows: j.Progress.MaturityRows,
			CusipRows:    j.Progress.CusipRows,
			Bonds:        j.Progress.Bonds,
			Errors:       errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.output != nil {
		snap.ArchiveName = j.output.ArchiveName
	}
	return snap
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
