package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore persists checkpoints in a bbolt file, one bucket per stream.
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

// BoltOption customises a BoltStore.
type BoltOption func(*boltConfig)

type boltConfig struct {
	timeout time.Duration
	logger  *slog.Logger
}

// WithOpenTimeout bounds how long Open waits for the file lock.
func WithOpenTimeout(timeout time.Duration) BoltOption {
	return func(cfg *boltConfig) {
		cfg.timeout = timeout
	}
}

func WithBoltLogger(logger *slog.Logger) BoltOption {
	return func(cfg *boltConfig) {
		cfg.logger = logger
	}
}

// OpenBoltStore opens (creating if needed) the database at path.
func OpenBoltStore(path string, opts ...BoltOption) (*BoltStore, error) {
	cfg := boltConfig{timeout: time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: cfg.timeout})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open %q: %w", path, err)
	}
	return &BoltStore{
		db:     db,
		logger: cfg.logger.With(slog.String("component", "checkpoint.bolt"), slog.String("path", path)),
	}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Load(ctx context.Context, ref Ref) (Checkpoint, bool, error) {
	if _, err := ref.Identifier(); err != nil {
		return Checkpoint{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, false, err
	}

	var (
		cp    Checkpoint
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		cp, found, err = read(tx, ref)
		return err
	})
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("checkpoint: load %s/%s: %w", ref.Stream, ref.Consumer, err)
	}
	return cp, found, nil
}

func (s *BoltStore) Save(ctx context.Context, cp Checkpoint) (Checkpoint, error) {
	ref := cp.Ref()
	if _, err := ref.Identifier(); err != nil {
		return Checkpoint{}, err
	}
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}

	var saved Checkpoint
	err := s.db.Update(func(tx *bolt.Tx) error {
		previous, found, err := read(tx, ref)
		if err != nil {
			return err
		}
		saved, err = prepare(cp, previous, found)
		if err != nil {
			return err
		}
		js, err := json.Marshal(&saved)
		if err != nil {
			return err
		}
		b, err := tx.CreateBucketIfNotExists([]byte(ref.Stream))
		if err != nil {
			return err
		}
		return b.Put([]byte(ref.Consumer), js)
	})
	if err != nil {
		return Checkpoint{}, fmt.Errorf("checkpoint: save %s/%s: %w", ref.Stream, ref.Consumer, err)
	}
	s.logger.Debug("checkpoint saved",
		slog.String("stream", saved.Stream),
		slog.String("consumer", saved.Consumer),
		slog.Uint64("seq", saved.Seq),
	)
	return clone(saved), nil
}

// Consumers lists the consumers holding a checkpoint on stream.
func (s *BoltStore) Consumers(stream string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(stream))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			out = append(out, string(k))
		}
		return nil
	})
	return out, err
}

func read(tx *bolt.Tx, ref Ref) (Checkpoint, bool, error) {
	b := tx.Bucket([]byte(ref.Stream))
	if b == nil {
		return Checkpoint{}, false, nil
	}
	bs := b.Get([]byte(ref.Consumer))
	if bs == nil {
		return Checkpoint{}, false, nil
	}
	var cp Checkpoint
	if err := json.Unmarshal(bs, &cp); err != nil {
		return Checkpoint{}, false, err
	}
	return cp, true, nil
}
