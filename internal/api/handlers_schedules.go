package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/bondgen/internal/schedule"
	"github.com/dgallion1/bondgen/internal/sheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// singleUpload parses a one-file form and returns the "file" field.
func (s *Server) singleUpload(w http.ResponseWriter, r *http.Request) (upload, bool) {
	if err := s.parseForm(w, r, 1); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return upload{}, false
	}
	defer r.MultipartForm.RemoveAll()

	up, err := s.readUpload(r, "file")
	if err == errNoFile {
		jsonError(w, "file is required", http.StatusBadRequest)
		return upload{}, false
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return upload{}, false
	}
	return up, true
}

func (s *Server) handleMaturitySchedule(w http.ResponseWriter, r *http.Request) {
	up, ok := s.singleUpload(w, r)
	if !ok {
		return
	}
	sched, err := schedule.ParseMaturity(up.Data, up.Name)
	if err != nil {
		s.log.Info("maturity schedule rejected", "filename", up.Name, "error", err)
		writeError(w, err)
		return
	}
	s.log.Info("maturity schedule parsed", "filename", up.Name,
		"total", sched.Summary.Total, "valid", sched.Summary.Valid, "errors", sched.Summary.Errors)
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleCusipSchedule(w http.ResponseWriter, r *http.Request) {
	up, ok := s.singleUpload(w, r)
	if !ok {
		return
	}
	sched, err := schedule.ParseCusip(up.Data, up.Name)
	if err != nil {
		s.log.Info("cusip schedule rejected", "filename", up.Name, "error", err)
		writeError(w, err)
		return
	}
	s.log.Info("cusip schedule parsed", "filename", up.Name,
		"total", sched.Summary.Total, "valid", sched.Summary.Valid, "errors", sched.Summary.Errors)
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleRevalidateMaturity(w http.ResponseWriter, r *http.Request) {
	var edit schedule.MaturityEdit
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&edit); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, schedule.RevalidateMaturity(edit))
}

func (s *Server) handleRevalidateCusip(w http.ResponseWriter, r *http.Request) {
	var edit schedule.CusipEdit
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&edit); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, schedule.RevalidateCusip(edit))
}

func (s *Server) handleConvertCSV(w http.ResponseWriter, r *http.Request) {
	up, ok := s.singleUpload(w, r)
	if !ok {
		return
	}
	out, err := sheet.ConvertCSV(up.Data)
	if err != nil {
		writeError(w, err)
		return
	}
	name := strings.TrimSuffix(up.Name, filepath.Ext(up.Name)) + ".xlsx"
	attachment(w, name, xlsxContentType, out)
}
