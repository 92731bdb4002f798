// Package draftstore persists the files of a certificate draft so a
// generation can be started again later without re-uploading.
package draftstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Kind names one file of a draft.
type Kind string

const (
	KindTemplate Kind = "template"
	KindMaturity Kind = "maturity"
	KindCusip    Kind = "cusip"
	KindArchive  Kind = "archive"
)

// Kinds lists every kind, in upload order.
var Kinds = []Kind{KindTemplate, KindMaturity, KindCusip, KindArchive}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown draft file kind %q", s)
}

// ErrNotFound is returned by Get when nothing is stored under the key.
var ErrNotFound = errors.New("draft file not found")

// Key addresses one stored file.
type Key struct {
	UserID  string
	DraftID string
	Kind    Kind
}

var segment = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Validate rejects keys whose parts cannot be used as path segments.
func (k Key) Validate() error {
	if !segment.MatchString(k.UserID) {
		return fmt.Errorf("invalid user id %q", k.UserID)
	}
	if !segment.MatchString(k.DraftID) {
		return fmt.Errorf("invalid draft id %q", k.DraftID)
	}
	if _, err := ParseKind(string(k.Kind)); err != nil {
		return err
	}
	return nil
}

// Path returns the key as drafts/<user>/<draft>/<kind>.
func (k Key) Path() string {
	return fmt.Sprintf("drafts/%s/%s/%s", k.UserID, k.DraftID, k.Kind)
}

// File is a stored payload with its original name.
type File struct {
	Name string
	Data []byte
}

// Store persists draft files.
type Store interface {
	Put(ctx context.Context, key Key, f File) error
	Get(ctx context.Context, key Key) (File, error)
	// Delete removes every file of the draft.
	Delete(ctx context.Context, userID, draftID string) error
}
