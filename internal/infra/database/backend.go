package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrVerifyMismatch = errors.New("store verification mismatch after write")
	// ErrMalformedRecord marks a durable record that exists but does not decode.
	ErrMalformedRecord = errors.New("malformed client record")
)

// Backend is the durable medium behind ClientStore. Write applies upserts and
// removals against the *current* durable state (re-read inside Write), so
// records written by sibling processes survive.
type Backend interface {
	Name() string
	Get(ctx context.Context, phone string) (*entity.Client, error)
	ListAll(ctx context.Context) (map[string]*entity.Client, error)
	Write(ctx context.Context, upserts map[string]*entity.Client, removals []string) error
	Ping(ctx context.Context) error
}

// decodeRecords decodes every raw record, skipping (and logging) malformed ones
// so a single bad record never hides the rest of the store.
func decodeRecords(raw map[string]json.RawMessage, logger *zap.SugaredLogger) map[string]*entity.Client {
	out := make(map[string]*entity.Client, len(raw))
	for phone, data := range raw {
		c, err := decodeRecord(phone, data)
		if err != nil {
			logger.Warnw("[STORE] registro ignorado: formato inválido", "phone", phone, "error", err)
			continue
		}
		out[phone] = c
	}
	return out
}

func decodeRecord(phone string, data []byte) (*entity.Client, error) {
	var c entity.Client
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, phone, err)
	}
	if c.Phone == "" {
		c.Phone = phone
	}
	return &c, nil
}
