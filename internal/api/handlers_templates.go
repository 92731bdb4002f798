package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/dgallion1/bondgen/internal/template"
	"github.com/dgallion1/bondgen/internal/words"
	"golang.org/x/sync/singleflight"
)

// tagCache memoizes tag maps by template hash. Concurrent requests for
// the same template share one extraction.
type tagCache struct {
	group singleflight.Group
	mu    sync.Mutex
	maps  map[string]*template.TagMap
	order []string
	limit int
}

func newTagCache(limit int) *tagCache {
	return &tagCache{maps: make(map[string]*template.TagMap), limit: limit}
}

// Get returns the tag map of doc and whether it came from the cache.
func (c *tagCache) Get(doc []byte) (*template.TagMap, bool, error) {
	hash := template.Hash(doc)
	c.mu.Lock()
	m, ok := c.maps[hash]
	c.mu.Unlock()
	if ok {
		return m, true, nil
	}

	v, err, shared := c.group.Do(hash, func() (any, error) {
		m, err := template.ExtractTags(doc)
		if err != nil {
			return nil, err
		}
		c.put(hash, m)
		return m, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*template.TagMap), shared, nil
}

func (c *tagCache) put(hash string, m *template.TagMap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.maps[hash]; ok {
		return
	}
	if len(c.order) >= c.limit {
		delete(c.maps, c.order[0])
		c.order = c.order[1:]
	}
	c.maps[hash] = m
	c.order = append(c.order, hash)
}

func (s *Server) handleTemplateTags(w http.ResponseWriter, r *http.Request) {
	up, ok := s.singleUpload(w, r)
	if !ok {
		return
	}
	if _, err := template.FormatFor(up.Name); err != nil {
		writeError(w, err)
		return
	}
	m, cached, err := s.tags.Get(up.Data)
	if err != nil {
		s.log.Info("template rejected", "filename", up.Name, "error", err)
		writeError(w, err)
		return
	}
	s.log.Info("template tags extracted", "filename", up.Name, "template_id", m.TemplateID, "tags", len(m.Tags), "cached", cached)
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount json.Number `json:"amount"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil || body.Amount == "" {
		jsonError(w, `body must be {"amount": <number>}`, http.StatusBadRequest)
		return
	}

	var text string
	var err error
	if n, convErr := body.Amount.Int64(); convErr == nil {
		text, err = words.Dollars(n)
	} else {
		f, convErr := body.Amount.Float64()
		if convErr != nil {
			jsonError(w, "amount is not a number", http.StatusBadRequest)
			return
		}
		text, err = words.DollarsFromFloat(f)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"amount": body.Amount, "words": text})
}
