package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLBackend stores one row per client (phone → JSON document). Each Write
// runs in a single transaction, so a flush is never half-applied.
type SQLBackend struct {
	DB     *sql.DB
	driver string
	logger *zap.SugaredLogger
}

func NewSQLBackend(db *sql.DB, driver string, logger *zap.SugaredLogger) *SQLBackend {
	return &SQLBackend{DB: db, driver: driver, logger: logger}
}

func (b *SQLBackend) Name() string { return b.driver }

func (b *SQLBackend) Ping(ctx context.Context) error {
	return b.DB.PingContext(ctx)
}

func (b *SQLBackend) Close() error {
	return b.DB.Close()
}

// EnsureSchema creates the clients table when missing.
func (b *SQLBackend) EnsureSchema(ctx context.Context) error {
	dataType := "TEXT"
	if b.driver == DriverPostgres {
		dataType = "JSONB"
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS clients (
			phone      TEXT PRIMARY KEY,
			data       %s NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`, dataType)

	if _, err := b.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("erro ao criar tabela clients: %w", err)
	}
	return nil
}

func (b *SQLBackend) Get(ctx context.Context, phone string) (*entity.Client, error) {
	var data []byte
	err := b.DB.QueryRowContext(ctx, `SELECT data FROM clients WHERE phone = $1`, phone).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("erro ao buscar cliente: %w", err)
	}
	return decodeRecord(phone, data)
}

func (b *SQLBackend) ListAll(ctx context.Context) (map[string]*entity.Client, error) {
	rows, err := b.DB.QueryContext(ctx, `SELECT phone, data FROM clients`)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar clientes: %w", err)
	}
	defer rows.Close()

	raw := map[string]json.RawMessage{}
	for rows.Next() {
		var phone string
		var data []byte
		if err := rows.Scan(&phone, &data); err != nil {
			return nil, fmt.Errorf("erro ao escanear cliente: %w", err)
		}
		raw[phone] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar clientes: %w", err)
	}
	return decodeRecords(raw, b.logger), nil
}

func (b *SQLBackend) Write(ctx context.Context, upserts map[string]*entity.Client, removals []string) error {
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("erro ao abrir transação: %w", err)
	}
	defer tx.Rollback()

	if err := b.deleteMany(ctx, tx, removals); err != nil {
		return err
	}

	upsert := `
		INSERT INTO clients (phone, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	for phone, c := range upserts {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("erro ao serializar cliente %s: %w", phone, err)
		}
		updatedAt := c.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, upsert, phone, string(data), updatedAt); err != nil {
			return b.wrapErr("upsert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return b.wrapErr("commit", err)
	}
	return nil
}

func (b *SQLBackend) deleteMany(ctx context.Context, tx *sql.Tx, phones []string) error {
	if len(phones) == 0 {
		return nil
	}
	if b.driver == DriverPostgres {
		if _, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE phone = ANY($1)`, pq.Array(phones)); err != nil {
			return b.wrapErr("delete", err)
		}
		return nil
	}
	for _, phone := range phones {
		if _, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE phone = $1`, phone); err != nil {
			return b.wrapErr("delete", err)
		}
	}
	return nil
}

func (b *SQLBackend) wrapErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		b.logger.Errorw("[STORE] erro do postgres", "op", op, "code", string(pqErr.Code), "error", pqErr.Message)
		return fmt.Errorf("postgres %s (%s): %w", op, pqErr.Code, err)
	}
	return fmt.Errorf("sql %s: %w", op, err)
}
