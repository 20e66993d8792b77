package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

// FileBackend keeps every client in one JSON document keyed by phone. Several
// bot processes may share the file; there is no lock, so each Write re-reads
// the document right before replacing it.
type FileBackend struct {
	path   string
	logger *zap.SugaredLogger
	mu     sync.Mutex
}

func NewFileBackend(path string, logger *zap.SugaredLogger) *FileBackend {
	return &FileBackend{path: path, logger: logger}
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) Ping(ctx context.Context) error {
	dir := filepath.Dir(b.path)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("diretório do store inacessível: %w", err)
	}
	return nil
}

func (b *FileBackend) Get(ctx context.Context, phone string) (*entity.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	raw := b.readRaw()
	data, ok := raw[phone]
	if !ok {
		return nil, ErrNotFound
	}
	return decodeRecord(phone, data)
}

func (b *FileBackend) ListAll(ctx context.Context) (map[string]*entity.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return decodeRecords(b.readRaw(), b.logger), nil
}

func (b *FileBackend) Write(ctx context.Context, upserts map[string]*entity.Client, removals []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// base = estado atual do disco (outros bots podem ter escrito)
	base := b.readRaw()
	for _, phone := range removals {
		delete(base, phone)
	}
	for phone, c := range upserts {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("erro ao serializar cliente %s: %w", phone, err)
		}
		base[phone] = data
	}
	return b.writeRaw(base)
}

// readRaw never fails: a missing, unreadable or corrupt document is treated
// as an empty store and re-initialized on disk. Undecodable records are kept
// raw so they are written back untouched.
func (b *FileBackend) readRaw() map[string]json.RawMessage {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			b.logger.Errorw("[STORE] falha ao ler arquivo, reinicializando", "path", b.path, "error", err)
		}
		b.initialize()
		return map[string]json.RawMessage{}
	}

	raw := map[string]json.RawMessage{}
	if len(data) == 0 {
		b.initialize()
		return raw
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		b.logger.Errorw("[STORE] arquivo corrompido, reinicializando", "path", b.path, "error", err)
		b.initialize()
		return map[string]json.RawMessage{}
	}
	return raw
}

func (b *FileBackend) initialize() {
	if err := b.writeRaw(map[string]json.RawMessage{}); err != nil {
		b.logger.Errorw("[STORE] falha na escrita de inicialização", "path", b.path, "error", err)
	}
}

// writeRaw replaces the document atomically (temp file + rename).
func (b *FileBackend) writeRaw(raw map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("erro ao serializar store: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("erro ao criar diretório do store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("erro ao criar arquivo temporário: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("erro ao gravar store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("erro ao sincronizar store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("erro ao fechar store: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("erro ao substituir store: %w", err)
	}
	return nil
}
