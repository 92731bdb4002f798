package template

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/bondgen/internal/bonderr"
)

// Format opens a document package.
type Format interface {
	Open(data []byte) (Container, error)
}

// Container exposes the one markup part that holds the document text.
type Container interface {
	// Content returns the markup of the text part.
	Content() []byte
	// Repack returns a new package with the text part replaced.
	Repack(content []byte) ([]byte, error)
}

// SupportedExtensions lists template file extensions.
var SupportedExtensions = map[string]bool{
	".docx": true,
	".dotx": true,
	".docm": true,
}

// FormatFor returns the container format for a template filename.
func FormatFor(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if SupportedExtensions[ext] {
		return OOXML{}, nil
	}
	return nil, bonderr.New(bonderr.InvalidTemplate, "unsupported template type %q; upload a .docx file", ext)
}

// DocumentPart is the main text part of a WordprocessingML package.
const DocumentPart = "word/document.xml"

// OOXML reads and writes .docx packages.
type OOXML struct{}

type ooxmlContainer struct {
	reader  *zip.Reader
	content []byte
}

func (OOXML) Open(data []byte) (Container, error) {
	if len(data) == 0 {
		return nil, bonderr.New(bonderr.InvalidTemplate, "template file is empty")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, bonderr.Wrap(bonderr.InvalidTemplate, err, "template is not a valid .docx package")
	}
	for _, f := range zr.File {
		if f.Name != DocumentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, bonderr.Wrap(bonderr.InvalidTemplate, err, "open %s", DocumentPart)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, bonderr.Wrap(bonderr.InvalidTemplate, err, "read %s", DocumentPart)
		}
		return &ooxmlContainer{reader: zr, content: content}, nil
	}
	return nil, bonderr.New(bonderr.InvalidTemplate, "template is missing %s; the file may be corrupted", DocumentPart)
}

func (c *ooxmlContainer) Content() []byte { return c.content }

// Repack copies every other part byte for byte so the output depends
// only on the template and the new content.
func (c *ooxmlContainer) Repack(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range c.reader.File {
		if f.Name != DocumentPart {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: DocumentPart, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", DocumentPart, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("write %s: %w", DocumentPart, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close package: %w", err)
	}
	return buf.Bytes(), nil
}
