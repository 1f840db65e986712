package file

import (
	"github.com/jmoiron/sqlx"

	"github.com/davnau/medialens/internal/database"
)

// Service exposes file record management to the transport layer. The
// sharing platform registers (or re-registers) a file here before any
// metadata request for its key can succeed.
type Service struct {
	db    database.Manager
	store *Store
}

func NewService(db database.Manager, store *Store) *Service {
	return &Service{db: db, store: store}
}

// Register upserts the record keyed on its sharing key.
func (service *Service) Register(record *Record) error {
	return service.db.WrapTx(func(tx *sqlx.Tx) error {
		return service.store.Save(tx, record)
	})
}

// Lookup finds the record for a sharing key, returning ErrFileNotFound
// when no such record exists.
func (service *Service) Lookup(fileKey string) (*Record, error) {
	return service.store.GetByKey(service.db.GetSqlxDb(), fileKey)
}
