package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/bondgen/internal/draftstore"
	"github.com/go-chi/chi/v5"
)

// draftKey builds and validates the key of a draft file request. It
// writes the error response itself.
func (s *Server) draftKey(w http.ResponseWriter, r *http.Request, userID string) (draftstore.Key, bool) {
	if s.store == nil {
		jsonError(w, "draft storage is not configured", http.StatusServiceUnavailable)
		return draftstore.Key{}, false
	}
	if userID == "" {
		jsonError(w, "user_id is required", http.StatusBadRequest)
		return draftstore.Key{}, false
	}
	key := draftstore.Key{
		UserID:  userID,
		DraftID: chi.URLParam(r, "draftID"),
		Kind:    draftstore.Kind(chi.URLParam(r, "kind")),
	}
	if err := key.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return draftstore.Key{}, false
	}
	if key.Kind == draftstore.KindArchive && r.Method == http.MethodPut {
		jsonError(w, "archives are written by generation only", http.StatusBadRequest)
		return draftstore.Key{}, false
	}
	return key, true
}

func (s *Server) handlePutDraftFile(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r, 1); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	key, ok := s.draftKey(w, r, r.FormValue("user_id"))
	if !ok {
		return
	}
	up, err := s.readUpload(r, "file")
	if errors.Is(err, errNoFile) {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	if err := s.store.Put(r.Context(), key, draftstore.File{Name: up.Name, Data: up.Data}); err != nil {
		s.log.Error("draft put failed", "key", key.Path(), "error", err)
		jsonError(w, "failed to store file", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"draft_id": key.DraftID,
		"kind":     key.Kind,
		"filename": up.Name,
		"size":     len(up.Data),
	})
}

func (s *Server) handleGetDraftFile(w http.ResponseWriter, r *http.Request) {
	key, ok := s.draftKey(w, r, r.URL.Query().Get("user_id"))
	if !ok {
		return
	}
	f, err := s.store.Get(r.Context(), key)
	if errors.Is(err, draftstore.ErrNotFound) {
		jsonError(w, "draft file not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("draft get failed", "key", key.Path(), "error", err)
		jsonError(w, "failed to load file", http.StatusBadGateway)
		return
	}
	name := f.Name
	if name == "" {
		name = string(key.Kind)
	}
	attachment(w, name, "application/octet-stream", f.Data)
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		jsonError(w, "draft storage is not configured", http.StatusServiceUnavailable)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		jsonError(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}
	draftID := chi.URLParam(r, "draftID")
	if err := s.store.Delete(r.Context(), userID, draftID); err != nil {
		s.log.Error("draft delete failed", "user_id", userID, "draft_id", draftID, "error", err)
		jsonError(w, "failed to delete draft: "+err.Error(), http.StatusBadGateway)
		return
	}
	s.log.Info("draft deleted", "user_id", userID, "draft_id", draftID)
	w.WriteHeader(http.StatusNoContent)
}
