// Package documents stores uploaded KYC files.
package documents

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Vashist1110/AVS-Bank/shared/apperr"
	"github.com/Vashist1110/AVS-Bank/shared/utils"
	"github.com/spf13/afero"
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

var ErrDocumentNotFound = apperr.New(apperr.KindNotFound, "document not found")

// Store writes documents under a single directory. Stored names are
// generated, so a caller-supplied filename only contributes its extension.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{fs: fs, dir: dir}, nil
}

// NewOSStore stores documents on the local disk.
func NewOSStore(dir string) (*Store, error) {
	return NewStore(afero.NewOsFs(), dir)
}

// Save writes data and returns the stored name. label is part of the name
// (pancard, photo, signature).
func (s *Store) Save(label, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", apperr.New(apperr.KindValidation, "%s must be a JPG, PNG or PDF file", label)
	}
	if len(data) == 0 {
		return "", apperr.New(apperr.KindValidation, "%s is empty", label)
	}

	name := utils.GenerateID(label) + ext
	if err := afero.WriteFile(s.fs, path.Join(s.dir, name), data, 0o640); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", label, err)
	}
	return name, nil
}

// Open returns the stored document and its content type.
func (s *Store) Open(name string) (io.ReadCloser, string, error) {
	if !validName(name) {
		return nil, "", ErrDocumentNotFound
	}
	f, err := s.fs.Open(path.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, "", ErrDocumentNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open document: %w", err)
	}
	return f, allowedExtensions[strings.ToLower(filepath.Ext(name))], nil
}

// Remove deletes stored documents, ignoring names that no longer exist.
func (s *Store) Remove(names ...string) error {
	for _, name := range names {
		if !validName(name) {
			continue
		}
		if err := s.fs.Remove(path.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove document: %w", err)
		}
	}
	return nil
}

func validName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return false
	}
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
