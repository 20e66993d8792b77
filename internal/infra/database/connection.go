package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"  // Driver do Postgres
	_ "modernc.org/sqlite" // SQLite embutido (sem cgo)
)

// NewDBConnection abre a conexão e testa o Ping
func NewDBConnection(driver, connString string) (*sql.DB, error) {
	// 1. Abre a conexão (mas não conecta de verdade ainda, só valida a string)
	db, err := sql.Open(driver, connString)
	if err != nil {
		return nil, err
	}

	// 2. Configura o Pool
	if driver == DriverSQLite {
		// um único writer evita SQLITE_BUSY entre goroutines do mesmo processo
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	// 3. O Ping: A prova de fogo
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("banco %s não respondeu: %w", driver, err)
	}

	return db, nil
}
