package draftstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PathstoreStore keeps drafts in a pathstore HTTP KV service. Payloads
// are base64 encoded inside the node value.
type PathstoreStore struct {
	baseURL    string
	apiKey     string
	prefix     string
	httpClient *http.Client
	backoff    func(int) time.Duration
}

func NewPathstoreStore(baseURL, apiKey string) *PathstoreStore {
	return &PathstoreStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		prefix:  "bondgen",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		backoff: retryDelay,
	}
}

// nodeRequest is the body for PUT /kv/{key}.
type nodeRequest struct {
	Value     nodeValue `json:"value"`
	Source    string    `json:"source,omitempty"`
	ExpiresAt string    `json:"expires_at,omitempty"`
}

type nodeValue struct {
	Name string `json:"name"`
	Data string `json:"data"`
	Size int    `json:"size"`
}

// nodeResponse is the response from GET /kv/{key}.
type nodeResponse struct {
	Key   string    `json:"key_path"`
	Value nodeValue `json:"value"`
}

func (s *PathstoreStore) url(path string) string {
	return s.baseURL + "/kv/" + s.prefix + "/" + path
}

func (s *PathstoreStore) Put(ctx context.Context, key Key, f File) error {
	if err := key.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(nodeRequest{
		Value: nodeValue{
			Name: f.Name,
			Data: base64.StdEncoding.EncodeToString(f.Data),
			Size: len(f.Data),
		},
		Source: "bondgen:" + key.DraftID,
	})
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	return withRetry(ctx, s.backoff, func() error {
		resp, err := s.do(ctx, http.MethodPut, s.url(key.Path()), body)
		if err != nil {
			return fmt.Errorf("put draft file: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return statusError("put", key.Path(), resp)
		}
		return nil
	})
}

func (s *PathstoreStore) Get(ctx context.Context, key Key) (File, error) {
	if err := key.Validate(); err != nil {
		return File{}, err
	}
	var node nodeResponse
	err := withRetry(ctx, s.backoff, func() error {
		resp, err := s.do(ctx, http.MethodGet, s.url(key.Path()), nil)
		if err != nil {
			return fmt.Errorf("get draft file: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		if resp.StatusCode != http.StatusOK {
			return statusError("get", key.Path(), resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
			return fmt.Errorf("decode node: %w", err)
		}
		return nil
	})
	if err != nil {
		return File{}, err
	}
	data, err := base64.StdEncoding.DecodeString(node.Value.Data)
	if err != nil {
		return File{}, fmt.Errorf("decode payload %s: %w", key.Path(), err)
	}
	return File{Name: node.Value.Name, Data: data}, nil
}

func (s *PathstoreStore) Delete(ctx context.Context, userID, draftID string) error {
	probe := Key{UserID: userID, DraftID: draftID, Kind: KindTemplate}
	if err := probe.Validate(); err != nil {
		return err
	}
	path := fmt.Sprintf("drafts/%s/%s", userID, draftID)
	return withRetry(ctx, s.backoff, func() error {
		resp, err := s.do(ctx, http.MethodDelete, s.url(path)+"?children=true", nil)
		if err != nil {
			return fmt.Errorf("delete draft: %w", err)
		}
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
			return nil
		}
		return statusError("delete", path, resp)
	})
}

func (s *PathstoreStore) do(ctx context.Context, method, u string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return s.httpClient.Do(req)
}

// statusError turns a non-success response into an error.
func statusError(op, path string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &TransientError{Op: op, Path: path, Status: resp.StatusCode, Body: string(respBody)}
	}
	return fmt.Errorf("%s %s: status %d: %s", op, path, resp.StatusCode, string(respBody))
}

// Close releases idle connections.
func (s *PathstoreStore) Close() {
	s.httpClient.CloseIdleConnections()
}
