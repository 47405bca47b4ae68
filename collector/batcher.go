package collector

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/pevans/gridiron/record"
	"github.com/pevans/gridiron/store"
)

// DefaultBatchSize is the flush threshold when none is configured.
const DefaultBatchSize = 100

// Batcher buffers accepted records and flushes them to the store. The
// checkpoint only moves after the records before it are saved.
type Batcher struct {
	store  store.Store
	size   int
	logger *log.Logger

	buffer  []record.Record
	lastKey string
	flushes int
	saved   int
}

// NewBatcher creates a batcher that flushes every size records.
func NewBatcher(s store.Store, size int, logger *log.Logger) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Batcher{
		store:  s,
		size:   size,
		logger: logger,
		buffer: make([]record.Record, 0, size),
	}
}

// Accept buffers rec, whose raw key is key, and flushes when the buffer is
// full.
func (b *Batcher) Accept(rec record.Record, key string) error {
	b.buffer = append(b.buffer, rec)
	b.lastKey = key

	if len(b.buffer) >= b.size {
		return b.flush()
	}
	return nil
}

// Finalize flushes whatever is buffered.
func (b *Batcher) Finalize() error {
	if len(b.buffer) == 0 {
		return nil
	}
	return b.flush()
}

// Pending returns the number of buffered records.
func (b *Batcher) Pending() int {
	return len(b.buffer)
}

// Flushes returns the number of successful flushes.
func (b *Batcher) Flushes() int {
	return b.flushes
}

// Saved returns the number of records flushed.
func (b *Batcher) Saved() int {
	return b.saved
}

func (b *Batcher) flush() error {
	// On failure the buffer is kept and the checkpoint stays put
	if err := b.store.AppendAndSave(b.buffer); err != nil {
		b.logger.Error("flush failed", "records", len(b.buffer), "err", err)
		return err
	}

	n := len(b.buffer)
	b.buffer = make([]record.Record, 0, b.size)
	b.flushes++
	b.saved += n

	if err := b.store.SaveCheckpoint(b.lastKey); err != nil {
		b.logger.Error("checkpoint save failed", "checkpoint", b.lastKey, "err", err)
		return err
	}

	b.logger.Info("flushed batch", "records", n, "checkpoint", b.lastKey)
	return nil
}
