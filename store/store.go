// Package store persists bit vectors in a blobstore.BlobStore.
//
// Vectors are encoded with the frame container by default, which detects
// corruption and carries the writer's byte order. FormatRaw stores the bare
// encoding produced by bitvec.Serialize.
//
//	vectors := store.New(blobstore.NewLocalStore("/var/lib/masks"),
//	    store.WithLogger(store.NewTextLogger(slog.LevelInfo)),
//	)
//	if err := vectors.Save(ctx, "tombstones", bv); err != nil {
//	    return err
//	}
//	bv, err := vectors.Load(ctx, "tombstones")
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/bitvec"
	"github.com/hupe1980/bitvec/blobstore"
	"github.com/hupe1980/bitvec/frame"
	"github.com/hupe1980/bitvec/resource"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned when a named vector does not exist.
var ErrNotFound = blobstore.ErrNotFound

// Store saves and loads bit vectors by name.
// It is safe for concurrent use if the underlying BlobStore is.
type Store struct {
	blobs blobstore.BlobStore
	opts  options
}

// New creates a Store on top of blobs.
func New(blobs blobstore.BlobStore, opts ...Option) *Store {
	return &Store{
		blobs: blobs,
		opts:  applyOptions(opts),
	}
}

// Format returns the encoding the store writes and expects.
func (s *Store) Format() Format {
	return s.opts.format
}

func (s *Store) encode(bv *bitvec.BitVector) ([]byte, error) {
	switch s.opts.format {
	case FormatFramed:
		return frame.Encode(bv)
	case FormatRaw:
		return bitvec.Serialize(bv)
	default:
		return nil, fmt.Errorf("store: unknown format %d", s.opts.format)
	}
}

func (s *Store) decode(data []byte) (*bitvec.BitVector, error) {
	opt := bitvec.WithController(s.opts.rc)
	switch s.opts.format {
	case FormatFramed:
		return frame.Decode(data, opt)
	case FormatRaw:
		return bitvec.Deserialize(data, opt)
	default:
		return nil, fmt.Errorf("store: unknown format %d", s.opts.format)
	}
}

// Save writes bv under name, replacing any previous vector.
func (s *Store) Save(ctx context.Context, name string, bv *bitvec.BitVector) (err error) {
	start := time.Now()
	size := 0
	defer func() {
		s.opts.metrics.RecordSave(size, time.Since(start), err)
		s.opts.logger.LogSave(ctx, name, bv.Len(), size, err)
	}()

	data, err := s.encode(bv)
	if err != nil {
		return err
	}
	size = len(data)
	if err = s.opts.rc.AcquireIO(ctx, size); err != nil {
		return err
	}
	if err = s.blobs.Put(ctx, name, data); err != nil {
		return fmt.Errorf("store: put %q: %w", name, err)
	}
	return nil
}

// SaveNew writes bv under a freshly generated name and returns it.
func (s *Store) SaveNew(ctx context.Context, bv *bitvec.BitVector) (string, error) {
	name := uuid.NewString()
	if err := s.Save(ctx, name, bv); err != nil {
		return "", err
	}
	return name, nil
}

// Load reads the vector stored under name. The caller owns the result and
// should Release it when a memory budget is in use.
func (s *Store) Load(ctx context.Context, name string) (bv *bitvec.BitVector, err error) {
	start := time.Now()
	size := 0
	defer func() {
		s.opts.metrics.RecordLoad(size, time.Since(start), err)
		s.opts.logger.LogLoad(ctx, name, bv.Len(), err)
	}()

	b, err := s.blobs.Open(ctx, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("store: %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("store: open %q: %w", name, err)
	}
	defer func() { _ = b.Close() }()

	if err = s.opts.rc.AcquireIO(ctx, int(b.Size())); err != nil {
		return nil, err
	}
	data, err := blobstore.ReadAll(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("store: read %q: %w", name, err)
	}
	size = len(data)

	bv, err = s.decode(data)
	if err != nil {
		return nil, fmt.Errorf("store: decode %q: %w", name, err)
	}
	return bv, nil
}

// Delete removes the vector stored under name. Deleting a missing name is
// not an error.
func (s *Store) Delete(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() {
		s.opts.metrics.RecordDelete(time.Since(start), err)
		s.opts.logger.LogDelete(ctx, name, err)
	}()

	if err = s.blobs.Delete(ctx, name); err != nil {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	return nil
}

// List returns the stored names that start with prefix, in sorted order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	names, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return names, nil
}

// Import reads one raw encoding from r and saves it under name.
// Reads from r wait on the controller's IO limiter.
func (s *Store) Import(ctx context.Context, name string, r io.Reader) error {
	var bv bitvec.BitVector
	if _, err := bv.ReadFrom(resource.NewRateLimitedReader(ctx, r, s.opts.rc)); err != nil {
		return fmt.Errorf("store: import %q: %w", name, err)
	}
	defer bv.Release()
	return s.Save(ctx, name, &bv)
}

// Export loads the vector stored under name and writes its raw encoding to w.
// Writes to w wait on the controller's IO limiter.
func (s *Store) Export(ctx context.Context, name string, w io.Writer) (int64, error) {
	bv, err := s.Load(ctx, name)
	if err != nil {
		return 0, err
	}
	defer bv.Release()
	n, err := bv.WriteTo(resource.NewRateLimitedWriter(ctx, w, s.opts.rc))
	if err != nil {
		return n, fmt.Errorf("store: export %q: %w", name, err)
	}
	return n, nil
}

// SaveBatch saves every vector in batch concurrently. Each save also holds
// one of the controller's worker slots, bounding concurrency across batches.
// The first error cancels the remaining work; vectors already written stay
// written.
func (s *Store) SaveBatch(ctx context.Context, batch map[string]*bitvec.BitVector) (err error) {
	start := time.Now()
	defer func() {
		s.opts.metrics.RecordBatch(len(batch), time.Since(start), err)
		s.opts.logger.LogBatch(ctx, "save", len(batch), err)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.concurrency)
	for _, name := range slices.Sorted(maps.Keys(batch)) {
		bv := batch[name]
		g.Go(func() error {
			if err := s.opts.rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer s.opts.rc.ReleaseWorker()
			return s.Save(gctx, name, bv)
		})
	}
	return g.Wait()
}

// LoadBatch loads the named vectors concurrently. On error every vector
// loaded so far is released and nil is returned.
func (s *Store) LoadBatch(ctx context.Context, names []string) (_ map[string]*bitvec.BitVector, err error) {
	start := time.Now()
	defer func() {
		s.opts.metrics.RecordBatch(len(names), time.Since(start), err)
		s.opts.logger.LogBatch(ctx, "load", len(names), err)
	}()

	var (
		mu  sync.Mutex
		out = make(map[string]*bitvec.BitVector, len(names))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.concurrency)
	for _, name := range names {
		g.Go(func() error {
			if err := s.opts.rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer s.opts.rc.ReleaseWorker()
			bv, err := s.Load(gctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if prev, ok := out[name]; ok {
				prev.Release()
			}
			out[name] = bv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, bv := range out {
			bv.Release()
		}
		return nil, err
	}
	return out, nil
}
