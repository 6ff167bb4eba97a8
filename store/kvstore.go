package store

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
	tmdb "github.com/tendermint/tm-db"
	goleveldb "github.com/tendermint/tm-db/goleveldb"
	memdb "github.com/tendermint/tm-db/memdb"
)

// DBName is the fixed database name the DOS persists the header-hash
// namespace under, per the external key-value layout.
const DBName = "header_hash_lmdb"

var roundCounterKey = []byte("__persisted_round__")

// KVStore is the store.Store adapter over a tendermint/tm-db backend.
// Grounded on the teacher's store.KVStore: same mutex-guarded
// single-writer discipline, same tmdb.Batch usage for atomic commits.
// The persisted round counter rides in the same batch as the round's
// puts, so "puts survive and the counter advances" is a single
// WriteSync call rather than two.
type KVStore struct {
	db     tmdb.DB
	logger log.Logger

	writeMtx sync.Mutex
}

// NewKVStore wraps an already-open tm-db backend under the DOS
// contract.
func NewKVStore(db tmdb.DB, logger log.Logger) *KVStore {
	return &KVStore{db: db, logger: logger}
}

// NewMemStore opens an in-memory backend, for tests and for replicas
// that don't need restart durability.
func NewMemStore(logger log.Logger) *KVStore {
	return NewKVStore(memdb.NewDB(), logger)
}

// OpenGoLevelDB opens (creating if absent) an on-disk goleveldb-backed
// DOS under dir, namespaced as DBName. Mirrors the teacher's
// store.NewKVStore wiring.
func OpenGoLevelDB(dir string, logger log.Logger) (*KVStore, error) {
	db, err := goleveldb.NewDB(DBName, dir)
	if err != nil {
		return nil, errors.Wrap(err, "opening goleveldb")
	}
	return NewKVStore(db, logger), nil
}

func (s *KVStore) BeginRead() RTx {
	return &rTx{db: s.db}
}

func (s *KVStore) BeginWrite() WTx {
	s.writeMtx.Lock()
	return &wTx{store: s, batch: s.db.NewBatch()}
}

// Commit atomically publishes every Put staged on wtx and advances the
// persisted round counter to newRound.
func (s *KVStore) Commit(wtx WTx, newRound uint64) error {
	w, ok := wtx.(*wTx)
	if !ok || w.store != s {
		return errors.New("commit: transaction not owned by this store")
	}
	if w.done {
		return errors.New("commit: transaction already closed")
	}
	defer s.writeMtx.Unlock()
	w.done = true
	defer w.batch.Close()

	var roundBz [8]byte
	binary.BigEndian.PutUint64(roundBz[:], newRound)
	if err := w.batch.Set(roundCounterKey, roundBz[:]); err != nil {
		return errors.Wrap(err, "durability")
	}
	if err := w.batch.WriteSync(); err != nil {
		return errors.Wrap(err, "durability")
	}
	return nil
}

// PersistedRound reads the durable round counter. Before the first
// commit it is 1: no keys are persisted yet.
func (s *KVStore) PersistedRound() uint64 {
	bz, err := s.db.Get(roundCounterKey)
	if err != nil || bz == nil {
		return 1
	}
	return binary.BigEndian.Uint64(bz)
}

// Sync is a no-op beyond what Commit already guarantees: every commit
// in this adapter goes through WriteSync.
func (s *KVStore) Sync() error {
	return nil
}

func (s *KVStore) Close() error {
	return s.db.Close()
}

type rTx struct {
	db tmdb.DB
}

func (r *rTx) Iterate() Iterator {
	it, err := r.db.Iterator(nil, nil)
	if err != nil {
		return &errIterator{err: err}
	}
	return &dbIterator{it: it}
}

func (r *rTx) Close() error { return nil }

type wTx struct {
	store *KVStore
	batch tmdb.Batch
	done  bool
}

func (w *wTx) Put(key, value []byte) error {
	if w.done {
		return errors.New("put on closed transaction")
	}
	return w.batch.Set(key, value)
}

func (w *wTx) Discard() {
	if w.done {
		return
	}
	w.done = true
	w.batch.Close()
	w.store.writeMtx.Unlock()
}

type dbIterator struct {
	it tmdb.Iterator
}

func (d *dbIterator) Valid() bool   { return d.it.Valid() }
func (d *dbIterator) Next()         { d.it.Next() }
func (d *dbIterator) Key() []byte   { return d.it.Key() }
func (d *dbIterator) Value() []byte { return d.it.Value() }
func (d *dbIterator) Error() error  { return d.it.Error() }
func (d *dbIterator) Close() error  { return d.it.Close() }

type errIterator struct{ err error }

func (e *errIterator) Valid() bool   { return false }
func (e *errIterator) Next()         {}
func (e *errIterator) Key() []byte   { return nil }
func (e *errIterator) Value() []byte { return nil }
func (e *errIterator) Error() error  { return e.err }
func (e *errIterator) Close() error  { return nil }
