package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/infra/metrics"
	"github.com/xavierca1/aqar-matcher/internal/normalize"
)

// ClientPatch carries the fields an Update touches; nil means unchanged.
type ClientPatch struct {
	Name          *string
	Role          *entity.Role
	State         *entity.ConversationState
	IsProtected   *bool
	ManuallyAdded *bool
	LastMessageAt *time.Time
}

// ClientStore is the process-side repository of client records. It keeps an
// in-memory view, flushes on every mutation (read-merge-write through the
// Backend) and remembers keys deleted by this process so a sibling's stale
// copy is never resurrected. The deletion set lives only as long as the
// process.
type ClientStore struct {
	backend Backend
	logger  *zap.SugaredLogger
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*entity.Client
	dirty   map[string]bool
	deleted map[string]bool
}

func NewClientStore(backend Backend, logger *zap.SugaredLogger) *ClientStore {
	return &ClientStore{
		backend: backend,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		clients: map[string]*entity.Client{},
		dirty:   map[string]bool{},
		deleted: map[string]bool{},
	}
}

// WithClock replaces the time source (tests).
func (s *ClientStore) WithClock(now func() time.Time) *ClientStore {
	s.now = now
	return s
}

func (s *ClientStore) BackendName() string { return s.backend.Name() }

func (s *ClientStore) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }

// Load pulls the durable state into memory.
func (s *ClientStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(ctx); err != nil {
		return err
	}
	s.logger.Infow("[STORE] clientes carregados", "backend", s.backend.Name(), "count", len(s.clients))
	return nil
}

// Close flushes pending deltas and releases the backend.
func (s *ClientStore) Close(ctx context.Context) error {
	s.mu.Lock()
	err := s.flushLocked(ctx)
	s.mu.Unlock()

	if c, ok := s.backend.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// GetOrCreate returns the record for phone, absorbing a sibling's copy from
// the backend or creating a fresh record (flushed immediately).
func (s *ClientStore) GetOrCreate(ctx context.Context, phone string) (*entity.Client, error) {
	key, err := normalize.Phone(phone)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found, ok, err := s.lookupLocked(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok {
		return found.Clone(), nil
	}

	c := s.createLocked(key)
	if err := s.flushLocked(ctx); err != nil {
		return c.Clone(), err
	}
	return c.Clone(), nil
}

// Get returns the record or entity.ErrClientNotFound. A durable record that
// does not decode is excluded like in ListAll.
func (s *ClientStore) Get(ctx context.Context, phone string) (*entity.Client, error) {
	key, err := normalize.Phone(phone)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok, err := s.lookupLocked(ctx, key)
	if errors.Is(err, ErrMalformedRecord) {
		return nil, entity.ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, entity.ErrClientNotFound
	}
	return c.Clone(), nil
}

// Update applies patch, creating the record when absent.
func (s *ClientStore) Update(ctx context.Context, phone string, patch ClientPatch) (*entity.Client, error) {
	return s.mutate(ctx, phone, true, func(c *entity.Client) error {
		if patch.Name != nil {
			c.Name = *patch.Name
		}
		if patch.Role != nil {
			c.Role = *patch.Role
		}
		if patch.State != nil {
			c.State = *patch.State
		}
		if patch.IsProtected != nil {
			c.IsProtected = *patch.IsProtected
		}
		if patch.ManuallyAdded != nil {
			c.ManuallyAdded = *patch.ManuallyAdded
		}
		if patch.LastMessageAt != nil {
			t := *patch.LastMessageAt
			c.LastMessageAt = &t
		}
		return nil
	})
}

// Mutate runs fn on an existing record and flushes. fn returning an error
// leaves the record untouched.
func (s *ClientStore) Mutate(ctx context.Context, phone string, fn func(c *entity.Client) error) (*entity.Client, error) {
	return s.mutate(ctx, phone, false, fn)
}

// Upsert is Mutate that creates the record when absent.
func (s *ClientStore) Upsert(ctx context.Context, phone string, fn func(c *entity.Client) error) (*entity.Client, error) {
	return s.mutate(ctx, phone, true, fn)
}

func (s *ClientStore) mutate(ctx context.Context, phone string, create bool, fn func(c *entity.Client) error) (*entity.Client, error) {
	key, err := normalize.Phone(phone)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok, err := s.lookupLocked(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		if !create {
			return nil, entity.ErrClientNotFound
		}
		current = entity.NewClient(key, s.now())
	}

	// fn trabalha numa cópia: erro não deixa estado pela metade
	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.Phone = key
	working.Touch(s.now())

	s.clients[key] = working
	s.dirty[key] = true
	delete(s.deleted, key)

	if err := s.flushLocked(ctx); err != nil {
		return working.Clone(), err
	}
	return working.Clone(), nil
}

// Delete removes the record. The key joins the deletion set so later flushes
// keep removing it from the durable base.
func (s *ClientStore) Delete(ctx context.Context, phone string) (bool, error) {
	key, err := normalize.Phone(phone)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.lookupLocked(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	delete(s.clients, key)
	delete(s.dirty, key)
	s.deleted[key] = true

	if err := s.flushLocked(ctx); err != nil {
		return true, err
	}
	s.logger.Infow("[STORE] cliente removido", "phone", key)
	return true, nil
}

// ListAll returns every record, absorbing sibling writes first. Sorted by phone.
func (s *ClientStore) ListAll(ctx context.Context) ([]*entity.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(ctx); err != nil {
		return nil, err
	}

	out := make([]*entity.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Phone < out[j].Phone })
	return out, nil
}

// ListActiveRequests returns one entry per (client, request) pair for
// completed searchers whose client-level and request-level status are active.
func (s *ClientStore) ListActiveRequests(ctx context.Context) ([]entity.ActiveRequest, error) {
	clients, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var out []entity.ActiveRequest
	for _, c := range clients {
		if !c.IsEligibleSearcher() {
			continue
		}
		for _, r := range c.Requests {
			if !r.IsActive() {
				continue
			}
			out = append(out, entity.ActiveRequest{
				Phone:   c.Phone,
				Request: r.Clone(),
				Client:  c,
			})
		}
	}
	return out, nil
}

// Flush retries any pending deltas.
func (s *ClientStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// lookupLocked finds key in memory, falling back to the backend. Deleted keys
// are never absorbed. Only ErrNotFound means absent: any other backend error,
// including a record that does not decode, is returned so callers never
// create over a durable record they could not read.
func (s *ClientStore) lookupLocked(ctx context.Context, key string) (*entity.Client, bool, error) {
	if c, ok := s.clients[key]; ok {
		return c, true, nil
	}
	if s.deleted[key] {
		return nil, false, nil
	}

	c, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		s.logger.Warnw("[STORE] falha ao consultar backend", "phone", key, "error", err)
		return nil, false, fmt.Errorf("erro ao consultar cliente %s: %w", key, err)
	}
	s.clients[key] = c
	return c, true, nil
}

func (s *ClientStore) createLocked(key string) *entity.Client {
	c := entity.NewClient(key, s.now())
	s.clients[key] = c
	s.dirty[key] = true
	delete(s.deleted, key)
	s.logger.Infow("[STORE] novo cliente", "phone", key)
	return c
}

// refreshLocked unions the durable state into memory: records this process
// has not touched take the durable value, dirty ones keep the in-memory value,
// deleted ones are skipped.
func (s *ClientStore) refreshLocked(ctx context.Context) error {
	base, err := s.backend.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("erro ao ler store: %w", err)
	}
	for key, c := range base {
		if s.deleted[key] || s.dirty[key] {
			continue
		}
		s.clients[key] = c
	}
	return nil
}

// flushLocked persists dirty records and the deletion set, then verifies the
// write. On failure memory stays authoritative and keys stay dirty.
func (s *ClientStore) flushLocked(ctx context.Context) error {
	if len(s.dirty) == 0 && len(s.deleted) == 0 {
		return nil
	}

	upserts := make(map[string]*entity.Client, len(s.dirty))
	for key := range s.dirty {
		if c, ok := s.clients[key]; ok {
			upserts[key] = c.Clone()
		}
	}
	removals := make([]string, 0, len(s.deleted))
	for key := range s.deleted {
		removals = append(removals, key)
	}
	sort.Strings(removals)

	if err := s.backend.Write(ctx, upserts, removals); err != nil {
		metrics.RecordFlush("error")
		s.logger.Errorw("[STORE] falha ao gravar", "backend", s.backend.Name(), "dirty", len(upserts), "error", err)
		return fmt.Errorf("erro ao gravar store: %w", err)
	}

	if err := s.verifyLocked(ctx, upserts, removals); err != nil {
		metrics.RecordFlush("mismatch")
		s.logger.Errorw("[STORE] verificação pós-escrita falhou", "backend", s.backend.Name(), "error", err)
		return err
	}

	for key := range upserts {
		delete(s.dirty, key)
	}
	metrics.RecordFlush("ok")
	return nil
}

func (s *ClientStore) verifyLocked(ctx context.Context, upserts map[string]*entity.Client, removals []string) error {
	for key, want := range upserts {
		got, err := s.backend.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("%w: %s ausente após escrita (%v)", ErrVerifyMismatch, key, err)
		}
		// um irmão pode ter gravado depois de nós; só versões mais antigas são erro
		if got.UpdatedAt.Before(want.UpdatedAt) {
			return fmt.Errorf("%w: %s com versão antiga", ErrVerifyMismatch, key)
		}
	}
	for _, key := range removals {
		if _, err := s.backend.Get(ctx, key); err == nil {
			return fmt.Errorf("%w: %s ainda presente após remoção", ErrVerifyMismatch, key)
		}
	}
	return nil
}
