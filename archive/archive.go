// Package archive persists scraped article records as one JSON file each.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/pevans/newsgrab/article"
)

// Archive is a directory of article records
type Archive struct {
	storageDir string
}

// ReadError describes a failure to read a single record file.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// ListResult contains the records found, plus any per-file errors that
// occurred while reading them.
type ListResult struct {
	Records []article.Record
	Errors  []ReadError
}

// New creates an archive rooted at storageDir, creating the directory if
// needed.
func New(storageDir string) (*Archive, error) {
	// 0700: owner-only access
	if err := os.MkdirAll(storageDir, 0o700); err != nil {
		return nil, eris.Wrap(err, "archive: create storage directory")
	}
	return &Archive{storageDir: storageDir}, nil
}

// Dir returns the storage directory.
func (a *Archive) Dir() string {
	return a.storageDir
}

func (a *Archive) path(id uuid.UUID) string {
	return filepath.Join(a.storageDir, id.String()+".json")
}

// Save writes rec, replacing any earlier record with the same ID.
func (a *Archive) Save(rec article.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return eris.Wrap(err, "archive: marshal record")
	}

	// 0600: owner-only read/write
	if err := os.WriteFile(a.path(rec.ID()), data, 0o600); err != nil {
		return eris.Wrap(err, "archive: write record")
	}
	return nil
}

// SaveAll writes every record, stopping at the first failure.
func (a *Archive) SaveAll(recs []article.Record) error {
	for _, rec := range recs {
		if err := a.Save(rec); err != nil {
			return err
		}
	}
	return nil
}

// List returns every record in the archive. Corrupted files are collected in
// the result's Errors rather than failing the whole listing; a non-nil error
// means the directory itself could not be read.
func (a *Archive) List() (*ListResult, error) {
	entries, err := os.ReadDir(a.storageDir)
	if err != nil {
		return nil, eris.Wrap(err, "archive: read storage directory")
	}

	result := &ListResult{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(a.storageDir, entry.Name()))
		if err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: entry.Name(), Err: err})
			continue
		}

		var rec article.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: entry.Name(), Err: err})
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

// Get returns the record with id, or nil if there is none.
func (a *Archive) Get(id uuid.UUID) (*article.Record, error) {
	data, err := os.ReadFile(a.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "archive: read record")
	}

	var rec article.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrap(err, "archive: decode record")
	}
	return &rec, nil
}

// Delete removes the record with id.
func (a *Archive) Delete(id uuid.UUID) error {
	if err := os.Remove(a.path(id)); err != nil {
		return eris.Wrap(err, "archive: delete record")
	}
	return nil
}
