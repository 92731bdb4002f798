package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/bondgen/internal/bond"
	"github.com/dgallion1/bondgen/internal/draftstore"
	"github.com/dgallion1/bondgen/internal/pipeline"
	"github.com/dgallion1/bondgen/internal/quota"
	"github.com/dgallion1/bondgen/internal/template"
	"github.com/go-chi/chi/v5"
)

// runOptions is the "options" form field of preview and generate.
type runOptions struct {
	template.Supplementary
	DatedDate string         `json:"dated_date,omitempty"`
	Numbering bond.Numbering `json:"numbering"`
}

// runInputs are the request parts common to preview and generate.
type runInputs struct {
	userID  string
	draftID string
	req     pipeline.Request
}

var runFiles = []struct {
	field string
	kind  draftstore.Kind
}{
	{"template", draftstore.KindTemplate},
	{"maturity", draftstore.KindMaturity},
	{"cusip", draftstore.KindCusip},
}

// readRunInputs reads user_id, draft_id, options and the three input
// files. Files missing from the form are loaded from the draft; uploaded
// files are saved to it. It writes the error response itself.
func (s *Server) readRunInputs(w http.ResponseWriter, r *http.Request) (runInputs, bool) {
	if err := s.parseForm(w, r, len(runFiles)); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return runInputs{}, false
	}
	defer r.MultipartForm.RemoveAll()

	in := runInputs{userID: r.FormValue("user_id"), draftID: r.FormValue("draft_id")}
	if in.userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return runInputs{}, false
	}
	if in.draftID != "" {
		key := draftstore.Key{UserID: in.userID, DraftID: in.draftID, Kind: draftstore.KindTemplate}
		if err := key.Validate(); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return runInputs{}, false
		}
	}

	var opts runOptions
	if raw := r.FormValue("options"); raw != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			jsonError(w, "invalid options: "+err.Error(), http.StatusBadRequest)
			return runInputs{}, false
		}
	}

	files := make(map[draftstore.Kind]upload, len(runFiles))
	for _, f := range runFiles {
		up, err := s.readUpload(r, f.field)
		switch {
		case err == nil:
			s.saveDraftFile(r, in, f.kind, up)
		case errors.Is(err, errNoFile):
			up, err = s.loadDraftFile(r, in, f.kind)
			if err != nil {
				jsonError(w, fmt.Sprintf("%s: %s", f.field, err), http.StatusBadRequest)
				return runInputs{}, false
			}
		default:
			jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
			return runInputs{}, false
		}
		files[f.kind] = up
	}

	in.req = pipeline.Request{
		Template:     files[draftstore.KindTemplate].Data,
		TemplateName: files[draftstore.KindTemplate].Name,
		Maturity:     files[draftstore.KindMaturity].Data,
		MaturityName: files[draftstore.KindMaturity].Name,
		Cusip:        files[draftstore.KindCusip].Data,
		CusipName:    files[draftstore.KindCusip].Name,
		Numbering:    opts.Numbering,
		DatedDate:    opts.DatedDate,
		Info:         opts.Supplementary,
	}
	return in, true
}

func (s *Server) saveDraftFile(r *http.Request, in runInputs, kind draftstore.Kind, up upload) {
	if s.store == nil || in.draftID == "" {
		return
	}
	key := draftstore.Key{UserID: in.userID, DraftID: in.draftID, Kind: kind}
	if err := s.store.Put(r.Context(), key, draftstore.File{Name: up.Name, Data: up.Data}); err != nil {
		s.log.Warn("draft save failed", "user_id", in.userID, "draft_id", in.draftID, "kind", kind, "error", err)
	}
}

func (s *Server) loadDraftFile(r *http.Request, in runInputs, kind draftstore.Kind) (upload, error) {
	if s.store == nil || in.draftID == "" {
		return upload{}, errors.New("file is required")
	}
	f, err := s.store.Get(r.Context(), draftstore.Key{UserID: in.userID, DraftID: in.draftID, Kind: kind})
	if errors.Is(err, draftstore.ErrNotFound) {
		return upload{}, fmt.Errorf("file is required (draft %s has none)", in.draftID)
	}
	if err != nil {
		return upload{}, fmt.Errorf("load from draft: %w", err)
	}
	return upload{Name: f.Name, Data: f.Data}, nil
}

// allow applies the user's quota and writes 429 when it is spent.
func (s *Server) allow(w http.ResponseWriter, userID string, kind quota.Kind) (int, bool) {
	remaining, ok := s.limiter.Allow(userID, kind)
	if !ok {
		s.log.Info("quota exceeded", "user_id", userID, "kind", kind)
		jsonError(w, fmt.Sprintf("%s limit reached, try again later", kind), http.StatusTooManyRequests)
		return 0, false
	}
	return remaining, true
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readRunInputs(w, r)
	if !ok {
		return
	}
	remaining, ok := s.allow(w, in.userID, quota.Preview)
	if !ok {
		return
	}

	res, err := pipeline.Preview(r.Context(), in.req)
	if err != nil {
		s.log.Info("preview failed", "user_id", in.userID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"preview":         res,
		"quota_remaining": remaining,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readRunInputs(w, r)
	if !ok {
		return
	}

	// A resubmit of identical inputs gets the live job back and costs nothing.
	if existing := s.orchestrator.FindActive(in.userID, in.req.Hash()); existing != nil {
		s.log.Info("identical generation reused", "job_id", existing.ID, "user_id", in.userID)
		writeAccepted(w, existing.Snapshot(), nil)
		return
	}

	remaining, ok := s.allow(w, in.userID, quota.Generation)
	if !ok {
		return
	}

	submitted := pipeline.NewJob(in.userID, in.draftID, in.req)
	job, err := s.orchestrator.Submit(submitted)
	if err != nil {
		s.limiter.Release(in.userID, quota.Generation)
		s.log.Warn("generation not queued", "user_id", in.userID, "error", err)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if job != submitted {
		// Another request with the same inputs got in first.
		s.limiter.Release(in.userID, quota.Generation)
		writeAccepted(w, job.Snapshot(), nil)
		return
	}
	writeAccepted(w, job.Snapshot(), &remaining)
}

// writeAccepted answers 202 with the job links. quota_remaining is only
// reported when this request was charged.
func writeAccepted(w http.ResponseWriter, snap pipeline.JobSnapshot, remaining *int) {
	body := map[string]any{
		"job_id":       snap.ID,
		"draft_id":     snap.DraftID,
		"status":       snap.Status,
		"poll_url":     fmt.Sprintf("/api/generate/%s/status", snap.ID),
		"download_url": fmt.Sprintf("/api/generate/%s/download", snap.ID),
	}
	if remaining != nil {
		body["quota_remaining"] = *remaining
	}
	writeJSON(w, http.StatusAccepted, body)
}

func (s *Server) handleGenerateStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	out := job.Output()
	if out == nil {
		snap := job.Snapshot()
		jsonError(w, fmt.Sprintf("job is %s", snap.Status), http.StatusConflict)
		return
	}
	attachment(w, out.ArchiveName, "application/zip", out.Archive)
}
