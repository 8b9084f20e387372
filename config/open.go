package config

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/folkelib/elm"
	"github.com/folkelib/elm/dialect"
	sqldialect "github.com/folkelib/elm/dialect/sql"
	"github.com/folkelib/elm/schema"
)

// Open opens and pings the configured database and returns a connection
// over it. The naming strategy and the descriptor are applied to a new
// registry; entities are samples of the types the descriptor names.
// A nil logger discards logs.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger, entities ...any) (*elm.Conn, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	reg, err := cfg.Registry(entities...)
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	drv, err := sqldialect.Open(cfg.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", cfg.DriverName(), err)
	}
	db := drv.DB()
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("config: ping %s: %w", cfg.DriverName(), err)
	}

	var d dialect.Driver = drv
	if cfg.SlowQuery > 0 {
		d = sqldialect.NewStatsDriver(d,
			sqldialect.WithSlowThreshold(cfg.SlowQuery),
			sqldialect.WithSlowQueryLog(logger),
		)
	}
	if cfg.Debug {
		d = sqldialect.NewDebugDriver(d,
			sqldialect.DebugWithLogger(logger),
			sqldialect.DebugWithLevel(slog.LevelDebug),
		)
	}
	conn, err := elm.Open(d, elm.WithRegistry(reg), elm.WithLogger(logger))
	if err != nil {
		_ = drv.Close()
		return nil, err
	}
	logger.InfoContext(ctx, "database opened", "dialect", d.Dialect(), "driver", cfg.DriverName())
	return conn, nil
}

// Registry returns a schema registry with the configured naming strategy
// and descriptor.
func (c *Config) Registry(entities ...any) (*schema.Registry, error) {
	naming, ok := schema.NamingOf(c.Naming)
	if !ok {
		return nil, fmt.Errorf("config: unknown naming %q", c.Naming)
	}
	reg := schema.NewRegistry(schema.WithNaming(naming))
	if c.Descriptor == "" {
		return reg, nil
	}
	desc, err := schema.LoadDescriptor(c.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := desc.Apply(reg, entities...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return reg, nil
}
