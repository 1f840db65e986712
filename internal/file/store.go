package file

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/davnau/medialens/internal/database"
)

// ErrFileNotFound indicates the requested file key has no record. Unlike
// extraction failures, this is terminal and surfaced to the caller.
var ErrFileNotFound = errors.New("file does not exist")

type (
	// Record is a single shared file as the platform knows it. The
	// extraction pipeline only ever reads these; writes come from the
	// surrounding file-sharing service.
	Record struct {
		ID         uuid.UUID `db:"id"`
		FileKey    string    `db:"file_key"`
		FileName   string    `db:"file_name"`
		SizeBytes  int64     `db:"size_bytes"`
		MimeType   string    `db:"mime_type"`
		StorageRef string    `db:"storage_ref"`
		CreatedAt  time.Time `db:"created_at"`
		UpdatedAt  time.Time `db:"updated_at"`
	}

	Store struct{}
)

func NewStore() *Store {
	return &Store{}
}

func selectRecordBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select("id", "file_key", "file_name", "size_bytes", "mime_type", "storage_ref", "created_at", "updated_at").
		From("files").
		PlaceholderFormat(squirrel.Dollar)
}

// GetByKey finds the file record for the provided sharing key, returning
// ErrFileNotFound when no such record exists.
func (store *Store) GetByKey(db database.Queryable, fileKey string) (*Record, error) {
	query, args, err := selectRecordBuilder().Where(squirrel.Eq{"file_key": fileKey}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct file lookup query: %w", err)
	}

	var record Record
	if err := db.Get(&record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return &record, nil
}

// Save upserts a file record keyed on its sharing key.
func (store *Store) Save(db database.Queryable, record *Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	_, err := db.Exec(`
		INSERT INTO files(id, file_key, file_name, size_bytes, mime_type, storage_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, current_timestamp, current_timestamp)
		ON CONFLICT (file_key) DO UPDATE
			SET file_name = EXCLUDED.file_name,
			    size_bytes = EXCLUDED.size_bytes,
			    mime_type = EXCLUDED.mime_type,
			    storage_ref = EXCLUDED.storage_ref,
			    updated_at = current_timestamp
	`, record.ID, record.FileKey, record.FileName, record.SizeBytes, record.MimeType, record.StorageRef)
	if err != nil {
		return fmt.Errorf("failed to upsert file record: %w", err)
	}

	return nil
}
