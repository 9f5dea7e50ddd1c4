package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gestordeclinica/backend/internal/migrate"
	"github.com/gestordeclinica/backend/internal/repo"
	"github.com/gestordeclinica/backend/migrations"
)

// sqliteSchema espelha migrations/ no dialeto do sqlite (sem extensões, TIME e DATE como texto).
var sqliteSchema = []string{
	`CREATE TABLE professionals (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		specialty TEXT,
		registration TEXT,
		email TEXT,
		phone TEXT,
		color TEXT,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL,
		professional_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE patients (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		birth_date TEXT,
		cpf TEXT,
		email TEXT,
		phone TEXT,
		address TEXT,
		notes TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`,
	`CREATE UNIQUE INDEX patients_cpf_uq ON patients (cpf) WHERE deleted_at IS NULL AND cpf IS NOT NULL;`,
	`CREATE TABLE appointments (
		id TEXT PRIMARY KEY,
		series_id TEXT,
		patient_id TEXT NOT NULL,
		professional_id TEXT NOT NULL,
		appointment_date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		duration INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		specialty TEXT,
		notes TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE financial_transactions (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		category TEXT,
		description TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		paid_date TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_method TEXT,
		patient_id TEXT,
		appointment_id TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`,
	`CREATE TABLE audit_events (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		actor_type TEXT NOT NULL,
		actor_id TEXT,
		resource_type TEXT,
		resource_id TEXT,
		patient_id TEXT,
		request_id TEXT,
		ip TEXT,
		metadata TEXT,
		created_at DATETIME
	);`,
}

// OpenSQLite abre um banco em memória com o schema da aplicação. Cada teste recebe o seu.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), repo.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite db: %v", err)
	}
	// :memory: é por conexão; uma só conexão mantém o mesmo banco.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	for _, stmt := range sqliteSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// OpenDB abre conexão GORM a partir de DATABASE_URL. Se não houver, retorna nil.
func OpenDB(ctx context.Context) (*gorm.DB, string) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, ""
	}
	db, err := gorm.Open(postgres.Open(url), repo.GormConfig())
	if err != nil {
		return nil, url
	}
	if _, err := db.DB(); err != nil {
		return nil, url
	}
	return db, url
}

// OpenPool abre o pgxpool de DATABASE_URL para testes de integração do EHR.
func OpenPool(ctx context.Context) *pgxpool.Pool {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil
	}
	return pool
}

func MustMigrate(ctx context.Context, db *gorm.DB) error {
	_, err := migrate.Run(ctx, db, migrations.FS, nil)
	return err
}
