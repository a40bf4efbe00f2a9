// Package badgerstore is a persistent [dirstore.Store] backed by BadgerDB.
//
// Each operation runs in a single Badger transaction. Writes that race on the
// same subtree are detected by Badger's conflict tracking and retried, so a
// cascading delete can never leave a concurrently created child behind.
// Reads run in one read-only transaction and therefore return a consistent
// snapshot of the whole subtree.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/internal/util"
	badger "github.com/dgraph-io/badger/v4"
)

const (
	// DefaultSequenceBandwidth is how many ids are leased from disk at a time.
	DefaultSequenceBandwidth = 128
	// DefaultMaxRetries bounds retries of a transaction that hit a conflict.
	DefaultMaxRetries = 64

	retryBackoff = 100 * time.Microsecond
)

// Config configures [Open].
type Config struct {
	// Dir is where Badger keeps its files. Ignored when InMemory is set.
	Dir string
	// InMemory runs Badger without touching disk (tests, ephemeral runs).
	InMemory bool
	// MaxDepth is the deepest directory Create accepts; 0 disables the check.
	MaxDepth uint32
	// SequenceBandwidth defaults to DefaultSequenceBandwidth.
	SequenceBandwidth uint64
	// MaxRetries defaults to DefaultMaxRetries.
	MaxRetries int
}

// storedDir is the persisted form of one directory. Children are kept in a
// separate index so creates never rewrite the parent's record.
type storedDir struct {
	Name     string                `json:"name"`
	ParentID *dirstore.DirectoryID `json:"parent_id,omitempty"`
	Depth    uint32                `json:"depth"`
}

func (d *storedDir) toDirectory(id dirstore.DirectoryID) *dirstore.Directory {
	return &dirstore.Directory{
		ID:       id,
		Name:     d.Name,
		ParentID: d.ParentID,
		Depth:    d.Depth,
		Children: []*dirstore.Directory{},
	}
}

// Store implements [dirstore.Store] on top of a Badger database.
type Store struct {
	db        *badger.DB
	maxDepth  uint32
	bandwidth uint64
	retries   int

	seqMu sync.Mutex
	seqs  map[dirstore.OwnerID]*badger.Sequence
}

var _ dirstore.Store = (*Store)(nil)

// Open opens (or creates) the database described by cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := util.GetLogger("badgerstore")

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, errors.New("badgerstore: Dir is required unless InMemory is set")
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", cfg.Dir, err)
	}

	s := &Store{
		db:        db,
		maxDepth:  cfg.MaxDepth,
		bandwidth: cfg.SequenceBandwidth,
		retries:   cfg.MaxRetries,
		seqs:      make(map[dirstore.OwnerID]*badger.Sequence),
	}
	if s.bandwidth == 0 {
		s.bandwidth = DefaultSequenceBandwidth
	}
	if s.retries <= 0 {
		s.retries = DefaultMaxRetries
	}
	logger.Info().Str("dir", cfg.Dir).Bool("inMemory", cfg.InMemory).Msg("Opened badger store")
	return s, nil
}

// Close releases leased ids and closes the database.
func (s *Store) Close() error {
	s.seqMu.Lock()
	var errs []error
	for owner, seq := range s.seqs {
		if err := seq.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release sequence for owner %d: %w", owner, err))
		}
	}
	s.seqs = map[dirstore.OwnerID]*badger.Sequence{}
	s.seqMu.Unlock()

	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// nextID draws the owner's next identifier from its persistent sequence.
func (s *Store) nextID(owner dirstore.OwnerID) (dirstore.DirectoryID, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	seq, ok := s.seqs[owner]
	if !ok {
		var err error
		seq, err = s.db.GetSequence(keySeq(owner), s.bandwidth)
		if err != nil {
			return 0, fmt.Errorf("open id sequence for owner %d: %w", owner, err)
		}
		s.seqs[owner] = seq
	}
	id, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next id for owner %d: %w", owner, err)
	}
	return dirstore.DirectoryID(id), nil
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) || attempt >= s.retries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * retryBackoff):
		}
	}
}

func (s *Store) Create(ctx context.Context, owner dirstore.OwnerID, name string, parent *dirstore.DirectoryID) (*dirstore.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := s.nextID(owner)
	if err != nil {
		return nil, err
	}

	var rec storedDir
	err = s.update(ctx, func(txn *badger.Txn) error {
		rec = storedDir{Name: name}
		if parent != nil {
			p, err := getDir(txn, owner, *parent)
			if err != nil {
				return err
			}
			if s.maxDepth > 0 && p.Depth+1 > s.maxDepth {
				return dirstore.DepthLimitExceeded(s.maxDepth)
			}
			pid := *parent
			rec.ParentID = &pid
			rec.Depth = p.Depth + 1
		}

		if _, err := txn.Get(keyDir(owner, id)); err == nil {
			logger := util.GetLogger("badgerstore.Create")
			logger.Error().
				Uint64("owner", uint64(owner)).
				Uint64("id", uint64(id)).
				Msg("Directory id collision (sequence is broken)")
			panic(fmt.Sprintf("badgerstore: directory id collision on %d for owner %d", id, owner))
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		val, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		if err := txn.Set(keyDir(owner, id), val); err != nil {
			return err
		}
		if parent != nil {
			if err := txn.Set(keyChild(owner, *parent, id), []byte{}); err != nil {
				return err
			}
			if err := txn.Set(keyGen(owner, *parent), appendID(nil, id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("create", err)
	}
	return rec.toDirectory(id), nil
}

// Get reads the directory and its subtree in one read-only transaction using
// an explicit work stack.
func (s *Store) Get(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID) (*dirstore.Directory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var root *dirstore.Directory
	err := s.db.View(func(txn *badger.Txn) error {
		rec, err := getDir(txn, owner, id)
		if err != nil {
			return err
		}
		root = rec.toDirectory(id)

		stack := []*dirstore.Directory{root}
		for len(stack) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			kids, err := listChildren(txn, owner, cur.ID)
			if err != nil {
				return err
			}
			for _, kid := range kids {
				childRec, err := getDir(txn, owner, kid)
				if errors.Is(err, dirstore.ErrDirectoryNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				child := childRec.toDirectory(kid)
				cur.Children = append(cur.Children, child)
				stack = append(stack, child)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("get", err)
	}
	return root, nil
}

func (s *Store) Rename(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID, name string) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		rec, err := getDir(txn, owner, id)
		if err != nil {
			return err
		}
		rec.Name = name
		val, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(keyDir(owner, id), val)
	})
	return wrapErr("rename", err)
}

// Delete removes id and all of its descendants in a single transaction, then
// drops id from its parent's children index.
func (s *Store) Delete(ctx context.Context, owner dirstore.OwnerID, id dirstore.DirectoryID) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		target, err := getDir(txn, owner, id)
		if err != nil {
			return err
		}

		pending := []dirstore.DirectoryID{id}
		for len(pending) > 0 {
			cur := pending[len(pending)-1]
			pending = pending[:len(pending)-1]

			// read the generation marker so a racing create under cur conflicts
			if _, err := txn.Get(keyGen(owner, cur)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			kids, err := listChildren(txn, owner, cur)
			if err != nil {
				return err
			}
			for _, kid := range kids {
				if err := txn.Delete(keyChild(owner, cur, kid)); err != nil {
					return err
				}
			}
			pending = append(pending, kids...)

			for _, key := range [][]byte{keyDir(owner, cur), keyGen(owner, cur)} {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
		}

		if target.ParentID != nil {
			return txn.Delete(keyChild(owner, *target.ParentID, id))
		}
		return nil
	})
	return wrapErr("delete", err)
}

// getDir loads one directory record. A missing key maps to NotFound.
func getDir(txn *badger.Txn, owner dirstore.OwnerID, id dirstore.DirectoryID) (*storedDir, error) {
	item, err := txn.Get(keyDir(owner, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, dirstore.NotFound(id)
	}
	if err != nil {
		return nil, err
	}
	var rec storedDir
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decode directory %d: %w", id, err)
	}
	return &rec, nil
}

// listChildren returns the ids in parent's children index in ascending order.
func listChildren(txn *badger.Txn, owner dirstore.OwnerID, parent dirstore.DirectoryID) ([]dirstore.DirectoryID, error) {
	prefix := keyChildPrefix(owner, parent)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []dirstore.DirectoryID
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		ids = append(ids, childFromKey(it.Item().Key()))
	}
	return ids, nil
}

// wrapErr passes domain and context errors through untouched and annotates
// backend failures.
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dirstore.ErrDirectoryNotFound),
		errors.Is(err, dirstore.ErrDepthLimitExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, badger.ErrTxnTooBig):
		return fmt.Errorf("badgerstore %s: subtree too large for one transaction: %w", op, err)
	default:
		return fmt.Errorf("badgerstore %s: %w", op, err)
	}
}

// badgerLogger routes Badger's internal logging to zerolog. Badger reports
// routine compaction and replay progress at info, which lands at debug here.
type badgerLogger struct {
	logger util.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Trace().Msgf(strings.TrimSpace(format), args...)
}
