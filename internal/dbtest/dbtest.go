// Package dbtest opens in-memory sqlite databases carrying the production schema.
package dbtest

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS categorias (
		id BIGINT PRIMARY KEY,
		nome TEXT NOT NULL,
		slug TEXT NOT NULL,
		icone TEXT,
		cor TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_categorias_slug ON categorias(slug)`,
	`CREATE TABLE IF NOT EXISTS donations (
		id BIGINT PRIMARY KEY,
		titulo TEXT NOT NULL,
		descricao TEXT,
		categoria_id BIGINT NOT NULL,
		quantidade INTEGER NOT NULL CHECK (quantidade > 0),
		unidade TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('registered', 'claimed', 'accepted', 'delivered', 'cancelled')),
		tipo_entrega TEXT NOT NULL,
		endereco_coleta TEXT,
		endereco_entrega TEXT,
		localizacao TEXT,
		observacoes TEXT,
		observacoes_entrega TEXT,
		doador_id TEXT NOT NULL,
		beneficiario_id TEXT,
		responsavel_staff_id TEXT,
		tipo_beneficiario TEXT,
		pessoas_impactadas INTEGER CHECK (pessoas_impactadas IS NULL OR pessoas_impactadas > 0),
		localidade_entrega TEXT,
		observacoes_impacto TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		data_reserva TIMESTAMP,
		data_aceita TIMESTAMP,
		data_entrega TIMESTAMP,
		data_cancelamento TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS ix_donations_status ON donations(status)`,
	`CREATE TABLE IF NOT EXISTS admin_actions (
		id BIGINT PRIMARY KEY,
		admin_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		action_type TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		description TEXT,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS donation_events (
		id TEXT PRIMARY KEY,
		donation_id BIGINT NOT NULL,
		event_type TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		payload TEXT,
		audit_entry_id BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		audited_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS ix_donation_events_pending ON donation_events(audited_at, created_at)`,
}

// Open returns a database private to the calling test. All statements share
// one connection so transactions serialize the way row locks would.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}
