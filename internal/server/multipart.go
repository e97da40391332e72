package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"drive-upload-relay/internal/upload"
)

// errNoFile signals that the request carried no usable file part.
var errNoFile = errors.New("no file in request")

// multipartForm is the decoded result of spooling a multipart request:
// the file parts written to disk plus any plain form values (e.g. the
// destination folder).
type multipartForm struct {
	Files  []upload.TemporaryFile
	Values map[string]string
}

// discard removes every spooled temp file. Used when the request is
// rejected before ownership passes to the orchestrator.
func (f *multipartForm) discard() {
	for _, tf := range f.Files {
		if err := os.Remove(tf.Path); err != nil && !os.IsNotExist(err) {
			log.Printf("service=http msg=%q path=%q err=%v", "temp_discard_failed", tf.Path, err)
		}
	}
	f.Files = nil
}

// spoolMultipart streams the request body, writing each part named
// field to its own temp file. Parts beyond maxFiles fail the request
// rather than being silently dropped. Empty files are rejected; the
// provider has nothing to store for them.
func (cfg Config) spoolMultipart(r *http.Request, field string, maxFiles int) (*multipartForm, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("bad multipart body: %w", err)
	}

	form := &multipartForm{Values: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			form.discard()
			return nil, fmt.Errorf("bad multipart body: %w", err)
		}

		if part.FileName() == "" {
			// Plain form value.
			val, err := io.ReadAll(io.LimitReader(part, 4096))
			_ = part.Close()
			if err != nil {
				form.discard()
				return nil, fmt.Errorf("bad form value: %w", err)
			}
			form.Values[part.FormName()] = strings.TrimSpace(string(val))
			continue
		}

		if part.FormName() != field {
			_ = part.Close()
			continue
		}
		if len(form.Files) >= maxFiles {
			_ = part.Close()
			form.discard()
			return nil, fmt.Errorf("too many files: limit is %d", maxFiles)
		}

		tf, err := cfg.spoolPart(part)
		_ = part.Close()
		if err != nil {
			form.discard()
			return nil, err
		}
		form.Files = append(form.Files, tf)
	}

	if len(form.Files) == 0 {
		return nil, errNoFile
	}
	return form, nil
}

// spoolPart writes one file part to a fresh temp file.
func (cfg Config) spoolPart(part *multipart.Part) (upload.TemporaryFile, error) {
	tmp, err := os.CreateTemp(cfg.TempDir, "relay-upload-*")
	if err != nil {
		return upload.TemporaryFile{}, fmt.Errorf("create temp file: %w", err)
	}

	size, err := io.Copy(tmp, part)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return upload.TemporaryFile{}, fmt.Errorf("spool upload: %w", err)
	}
	if size == 0 {
		_ = os.Remove(tmp.Name())
		return upload.TemporaryFile{}, fmt.Errorf("empty file %q", part.FileName())
	}

	mimeType := part.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return upload.TemporaryFile{
		Path:     tmp.Name(),
		Name:     filepath.Base(part.FileName()),
		MIMEType: mimeType,
		Size:     size,
	}, nil
}
