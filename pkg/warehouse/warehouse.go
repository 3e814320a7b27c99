// Package warehouse provisions the Snowflake objects the pipeline writes
// into: the landing tables, the streaming pipes, and the dynamic tables
// that aggregate the raw events downstream.
package warehouse

import (
	"context"
	"database/sql"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/alpinedata/chairlift/pkg/config"
	"github.com/alpinedata/chairlift/pkg/errors"
	"github.com/alpinedata/chairlift/pkg/ingest"
	"github.com/alpinedata/chairlift/pkg/logger"
)

// Setup runs the DDL that creates every warehouse object. Objects are
// created with IF NOT EXISTS (dynamic tables with OR REPLACE) so reruns
// are safe.
type Setup struct {
	cfg config.SnowflakeConfig
	log *zap.Logger
}

// NewSetup returns a Setup for the configured account.
func NewSetup(cfg config.SnowflakeConfig) *Setup {
	return &Setup{
		cfg: cfg,
		log: logger.Get().With(zap.String("component", "warehouse_setup")),
	}
}

// dsn builds a key-pair-authenticated connection string.
func (s *Setup) dsn() (string, error) {
	key, err := ingest.ParsePrivateKey(s.cfg.PrivateKey)
	if err != nil {
		return "", err
	}
	dsn, err := sf.DSN(&sf.Config{
		Account:       s.cfg.Account,
		User:          s.cfg.User,
		Authenticator: sf.AuthTypeJwt,
		PrivateKey:    key,
		Warehouse:     s.cfg.Warehouse,
		Role:          s.cfg.Role,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "failed to build connection string")
	}
	return dsn, nil
}

// EnsureObjects executes the full statement set. With dryRun set the
// statements are logged and nothing is executed.
func (s *Setup) EnsureObjects(ctx context.Context, dryRun bool) error {
	statements := Statements(s.cfg)

	if dryRun {
		for _, stmt := range statements {
			s.log.Info("dry run", zap.String("object", stmt.Name), zap.String("sql", stmt.SQL))
		}
		return nil
	}

	dsn, err := s.dsn()
	if err != nil {
		return err
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to open connection")
	}
	defer db.Close()
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to reach the account")
	}

	for _, stmt := range statements {
		s.log.Info("creating object", zap.String("object", stmt.Name))
		if _, err := db.ExecContext(ctx, stmt.SQL); err != nil {
			return errors.Wrap(err, errors.ErrorTypeStorage, "DDL failed").
				WithDetail("object", stmt.Name)
		}
	}
	s.log.Info("warehouse objects ready", zap.Int("statements", len(statements)))
	return nil
}
