// interfaces.go defines the interface for registry store operations
package registry

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/muzzleid/muzzle-go/internal/conf"
	"github.com/muzzleid/muzzle-go/internal/errors"
)

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error
	// Insert durably persists a subject with all its media in one
	// transaction. A SubjectID collision fails with a conflict error and
	// leaves the store unchanged.
	Insert(ctx context.Context, subject *Subject) error
	// Get returns the subject with the given SubjectID, media in insertion
	// order, or a not-found error.
	Get(ctx context.Context, subjectID string) (*Subject, error)
	// Search returns subjects matching the filters, newest first.
	Search(ctx context.Context, filters SearchFilters) ([]Subject, error)
	// ByLabel returns up to limit subjects filed under label, newest first.
	ByLabel(ctx context.Context, label string, limit int) ([]Subject, error)
	// All returns every subject with media, newest first.
	All(ctx context.Context) ([]Subject, error)
}

// DataStore implements Interface on top of a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a store for the configured backend.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// Insert stores a subject and its media items as a single transaction.
// Uniqueness of SubjectID is enforced by the unique index atomically with
// the insert, so concurrent inserts of the same id resolve to exactly one
// success.
func (ds *DataStore) Insert(ctx context.Context, subject *Subject) error {
	if ds.DB == nil {
		return errors.Newf("registry database is not initialized").
			Component("registry").
			Category(errors.CategoryDatabase).
			Build()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}

	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		media := subject.Media
		subject.Media = nil
		if err := tx.Create(subject).Error; err != nil {
			return err
		}
		for i := range media {
			media[i].SubjectRef = subject.ID
			if err := tx.Create(&media[i]).Error; err != nil {
				return err
			}
		}
		subject.Media = media
		return nil
	})
	if err != nil {
		return translateError(err, "insert", subject.SubjectID)
	}

	getLogger().Info("subject registered",
		"subject_id", subject.SubjectID,
		"label", subject.Label,
		"media_count", len(subject.Media))
	return nil
}

// Get retrieves one subject by its 12-digit identifier.
func (ds *DataStore) Get(ctx context.Context, subjectID string) (*Subject, error) {
	var subject Subject
	err := ds.DB.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("subject_id = ?", subjectID).
		First(&subject).Error
	if err != nil {
		return nil, translateError(err, "get", subjectID)
	}
	return &subject, nil
}

// Search returns subjects matching the filters ordered newest first. Both
// filters are optional and combine with AND.
func (ds *DataStore) Search(ctx context.Context, filters SearchFilters) ([]Subject, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	query := ds.DB.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Model(&Subject{})

	if filters.IDPrefix != "" {
		query = query.Where(`subject_id LIKE ? ESCAPE '\'`, escapeLike(filters.IDPrefix)+"%")
	}
	if filters.NameContains != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(filters.NameContains))+"%")
	}

	var subjects []Subject
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&subjects).Error
	if err != nil {
		return nil, translateError(err, "search", "")
	}
	return subjects, nil
}

// ByLabel returns subjects filed under an exact label, newest first.
func (ds *DataStore) ByLabel(ctx context.Context, label string, limit int) ([]Subject, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	var subjects []Subject
	err := ds.DB.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("label = ?", label).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&subjects).Error
	if err != nil {
		return nil, translateError(err, "by-label", label)
	}
	return subjects, nil
}

// All returns every subject with media, newest first. Used by the exporters.
func (ds *DataStore) All(ctx context.Context) ([]Subject, error) {
	var subjects []Subject
	err := ds.DB.WithContext(ctx).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Order("created_at DESC, id DESC").
		Find(&subjects).Error
	if err != nil {
		return nil, translateError(err, "all", "")
	}
	return subjects, nil
}

// escapeLike neutralizes LIKE wildcards in user supplied filter text.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// performAutoMigration creates or updates the registry tables.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Subject{}, &MediaItem{}); err != nil {
		return errors.Newf("failed to auto-migrate %s database: %w", dbType, err).
			Component("registry").
			Category(errors.CategoryDatabase).
			Build()
	}
	if debug {
		getLogger().Debug("database initialized", "type", dbType, "connection", connectionInfo)
	}
	return nil
}
