package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/arbwatch/pmspread/pkg/types"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreWindowEvent stores a closed spread window in PostgreSQL.
func (p *PostgresStorage) StoreWindowEvent(ctx context.Context, ev *types.WindowCloseEvent) error {
	query := `
		INSERT INTO spread_windows (
			id, market_id, opened_at, closed_at, duration_ms,
			yes_ask, no_ask, spread, spread_category,
			open_duration_class, close_reason, opportunity_class,
			tick_count, trade_event_fired, volume_change_ticks, price_shifted
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		ev.ID,
		ev.MarketID,
		time.Unix(0, ev.OpenedAtNS),
		time.Unix(0, ev.ClosedAtNS),
		ev.DurationMS,
		ev.YesAsk,
		ev.NoAsk,
		ev.Spread,
		string(ev.SpreadCategory),
		string(ev.OpenDurationClass),
		string(ev.CloseReason),
		int(ev.OpportunityClass),
		ev.Observables.TickCount,
		ev.Observables.TradeEventFired,
		ev.Observables.VolumeChangeTicks,
		ev.Observables.PriceShifted,
	)

	if err != nil {
		return fmt.Errorf("insert window event: %w", err)
	}

	p.logger.Debug("window-event-stored",
		zap.String("window-id", ev.ID),
		zap.String("market-id", ev.MarketID),
		zap.Int("opportunity-class", int(ev.OpportunityClass)))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
