// Package storage persists the ledger artifacts in a prefixed key-value
// store and doubles as the queue the asynchronous computation protocol runs
// on. The following prefixes are used:
//   - 'm/'  for mint records
//   - 'a/'  for token account records
//   - 'v/'  for vault records
//   - 'j/'  for queued computation jobs
//   - 'jr/' for computation job reservations
//   - 'jc/' for consumed (verified or rejected) computation jobs
//   - 'o/'  for organizations
//   - 'p/'  for payrolls
//   - 'pm/' for payroll members
//   - 'pl/' for the plaintext-analog ledger entities
//
// Entity records under 'm/', 'a/' and 'v/' use fixed-size binary layouts:
// the byte offsets of their encrypted scalar fields are a stable contract
// relied on by the asynchronous request builder.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	mintPrefix           = []byte("m/")
	accountPrefix        = []byte("a/")
	vaultPrefix          = []byte("v/")
	jobPrefix            = []byte("j/")
	jobReservationPrefix = []byte("jr/")
	jobConsumedPrefix    = []byte("jc/")
	orgPrefix            = []byte("o/")
	payrollPrefix        = []byte("p/")
	memberPrefix         = []byte("pm/")
	plainPrefix          = []byte("pl/")
)

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("artifact not found")
	// ErrNoMoreElements is returned by queue getters when every element is
	// consumed or reserved.
	ErrNoMoreElements = errors.New("no more elements")
	// ErrJobExists is returned when queueing a job whose id is already live
	// or consumed within the cluster scope.
	ErrJobExists = errors.New("computation job id already used")
)

const (
	// maxKeySize is the number of bytes kept from the sha256 hash of an
	// artifact when deriving its storage key.
	maxKeySize = 12
)

// Storage wraps the database with typed accessors for every artifact kind.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance on top of the given database.
func New(database db.Database) *Storage {
	return &Storage{db: database}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	s.db.Close()
}

// setArtifact stores raw bytes under prefix/key.
func (s *Storage) setArtifact(prefix, key, data []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact retrieves raw bytes stored under prefix/key. Returns
// ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte) ([]byte, error) {
	rTx := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rTx.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return data, nil
}

// deleteArtifact removes the bytes stored under prefix/key.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return wTx.Commit()
}

// hasArtifact reports whether prefix/key exists.
func (s *Storage) hasArtifact(prefix, key []byte) bool {
	_, err := s.getArtifact(prefix, key)
	return err == nil
}
