// Package export serializes registry records into a flat metadata table and
// a bundled archive of their media. Both builders are pure functions of the
// input record set.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"io"
	"time"

	"github.com/muzzleid/muzzle-go/internal/errors"
	"github.com/muzzleid/muzzle-go/internal/registry"
)

// MetadataHeader is the column layout of the metadata table.
var MetadataHeader = []string{"12_digit_id", "cattle_name", "created_at", "image_filename"}

// archiveEpoch is the fixed modification time stamped on every archive
// entry so that identical inputs produce identical archives.
var archiveEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// WriteMetadataCSV writes one row per media item. Empty input yields a
// header-only table; records with zero media contribute no rows.
func WriteMetadataCSV(w io.Writer, subjects []registry.Subject) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(MetadataHeader); err != nil {
		return writeError(err, "header")
	}
	for i := range subjects {
		subject := &subjects[i]
		created := subject.CreatedAt.UTC().Format(time.RFC3339)
		for _, item := range subject.Media {
			row := []string{subject.SubjectID, subject.Name, created, item.Filename}
			if err := cw.Write(row); err != nil {
				return writeError(err, subject.SubjectID)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return writeError(err, "flush")
	}
	return nil
}

// BuildMetadataCSV returns the metadata table as bytes.
func BuildMetadataCSV(subjects []registry.Subject) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteMetadataCSV(&buf, subjects); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteArchive writes a ZIP archive with one entry per media item at
// {subject_id}/{filename}, payloads decoded from the stored transport
// encoding back to raw bytes. Entry order and timestamps are deterministic.
func WriteArchive(w io.Writer, subjects []registry.Subject) error {
	zw := zip.NewWriter(w)
	for i := range subjects {
		subject := &subjects[i]
		for _, item := range subject.Media {
			raw, err := registry.DecodeMedia(item.Image)
			if err != nil {
				return errors.Newf("decoding media %s/%s: %w", subject.SubjectID, item.Filename, err).
					Component("export").
					Category(errors.CategoryExport).
					Context("subject_id", subject.SubjectID).
					Context("filename", item.Filename).
					Build()
			}
			header := &zip.FileHeader{
				Name:     subject.SubjectID + "/" + item.Filename,
				Method:   zip.Deflate,
				Modified: archiveEpoch,
			}
			entry, err := zw.CreateHeader(header)
			if err != nil {
				return writeError(err, subject.SubjectID)
			}
			if _, err := entry.Write(raw); err != nil {
				return writeError(err, subject.SubjectID)
			}
		}
	}
	if err := zw.Close(); err != nil {
		return writeError(err, "close")
	}
	return nil
}

// BuildArchive returns the media archive as bytes.
func BuildArchive(subjects []registry.Subject) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteArchive(&buf, subjects); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeError(err error, key string) error {
	return errors.Newf("writing export: %w", err).
		Component("export").
		Category(errors.CategoryExport).
		Context("key", key).
		Build()
}
