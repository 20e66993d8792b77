package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

// MemoryBackend is a process-local Backend. Records are kept serialized so
// two ClientStores sharing one MemoryBackend behave like two bot processes
// sharing a file.
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string]json.RawMessage
	logger  *zap.SugaredLogger

	// FailWrites makes Write return this error (tests).
	FailWrites error
	// DropWrites silently discards writes, simulating a lost flush (tests).
	DropWrites bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: map[string]json.RawMessage{},
		logger:  zap.NewNop().Sugar(),
	}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Ping(ctx context.Context) error { return nil }

func (b *MemoryBackend) Get(ctx context.Context, phone string) (*entity.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, ok := b.records[phone]
	if !ok {
		return nil, ErrNotFound
	}
	return decodeRecord(phone, data)
}

func (b *MemoryBackend) ListAll(ctx context.Context) (map[string]*entity.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := make(map[string]json.RawMessage, len(b.records))
	for k, v := range b.records {
		snapshot[k] = v
	}
	return decodeRecords(snapshot, b.logger), nil
}

func (b *MemoryBackend) Write(ctx context.Context, upserts map[string]*entity.Client, removals []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailWrites != nil {
		return b.FailWrites
	}
	if b.DropWrites {
		return nil
	}
	for _, phone := range removals {
		delete(b.records, phone)
	}
	for phone, c := range upserts {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("erro ao serializar cliente %s: %w", phone, err)
		}
		b.records[phone] = data
	}
	return nil
}

// PutRaw stores a raw document, bypassing the store (tests, legacy fixtures).
func (b *MemoryBackend) PutRaw(phone string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[phone] = json.RawMessage(data)
}

// Len returns the number of durable records.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}
