// model.go defines the registry data model
package registry

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/muzzleid/muzzle-go/internal/conf"
	"github.com/muzzleid/muzzle-go/internal/errors"
)

// Subject represents one registered catalog entry keyed by its unique
// 12-digit identifier. SubjectID is immutable once created.
type Subject struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	SubjectID string    `gorm:"uniqueIndex:idx_subjects_subject_id;size:12;not null" json:"subject_id"`
	Name      string    `gorm:"not null" json:"name"`
	Label     string    `gorm:"index:idx_subjects_label" json:"label,omitempty"`
	CreatedAt time.Time `gorm:"index:idx_subjects_created_at" json:"created_at"`

	Media []MediaItem `gorm:"foreignKey:SubjectRef;constraint:OnDelete:CASCADE" json:"media"`
}

// MediaItem is one normalized image plus its thumbnail attached to a
// Subject. Image and Thumbnail carry base64 encoded JPEG payloads so the
// bytes survive every serialization boundary unchanged.
type MediaItem struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	SubjectRef uint   `gorm:"index;not null;uniqueIndex:idx_media_subject_seq" json:"-"`
	Seq        int    `gorm:"not null;uniqueIndex:idx_media_subject_seq" json:"seq"`
	Filename   string `gorm:"not null" json:"filename"`
	Image      string `gorm:"type:text" json:"image,omitempty"`
	Thumbnail  string `gorm:"type:text" json:"thumbnail,omitempty"`
}

// SearchFilters narrows a registry search. Zero valued filters impose no
// constraint; IDPrefix and NameContains combine with logical AND.
type SearchFilters struct {
	IDPrefix     string // anchored-left partial match on SubjectID
	NameContains string // case-insensitive substring match on Name
	Limit        int    // result bound; DefaultSearchLimit when zero
}

const (
	// DefaultSearchLimit bounds a search when the caller does not.
	DefaultSearchLimit = 50
	// MaxSearchLimit is the hard cap on any single search.
	MaxSearchLimit = 500
)

// ValidateSubjectID rejects anything that is not exactly 12 ASCII digits.
func ValidateSubjectID(id string) error {
	if len(id) != conf.SubjectIDLength {
		return errors.Newf("subject id must be exactly %d digits, got %d characters", conf.SubjectIDLength, len(id)).
			Component("registry").
			Category(errors.CategoryValidation).
			Context("subject_id_length", len(id)).
			Build()
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return errors.Newf("subject id must contain only ASCII digits").
				Component("registry").
				Category(errors.CategoryValidation).
				Build()
		}
	}
	return nil
}

// MediaFilename derives the deterministic stored filename for the seq-th
// image of a subject: {id}_{seq}{ext}. The extension comes from the original
// upload, defaulting to .jpg.
func MediaFilename(subjectID string, seq int, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s_%d%s", subjectID, seq, ext)
}

// EncodeMedia converts raw image bytes into the transport encoding.
func EncodeMedia(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeMedia converts a transport encoded payload back into raw bytes.
// Round-trip decode reproduces the exact stored bytes.
func DecodeMedia(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Newf("decoding stored media: %w", err).
			Component("registry").
			Category(errors.CategoryValidation).
			Build()
	}
	return raw, nil
}
