package metrics

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBStatsCollector periodically exports connection pool statistics.
type DBStatsCollector struct {
	pgxPool *pgxpool.Pool
	sqlDB   *sql.DB
	logger  *slog.Logger
	stopCh  chan struct{}
}

// NewDBStatsCollector creates a collector over the pgx pool and the sqlx
// connection used by the scan-event repository. Either may be nil.
func NewDBStatsCollector(pgxPool *pgxpool.Pool, sqlDB *sql.DB, logger *slog.Logger) *DBStatsCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBStatsCollector{
		pgxPool: pgxPool,
		sqlDB:   sqlDB,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting database statistics at regular intervals
func (c *DBStatsCollector) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()

	c.logger.Info("Database stats collector started", "interval", interval)
}

// Stop stops the database stats collector
func (c *DBStatsCollector) Stop() {
	close(c.stopCh)
	c.logger.Info("Database stats collector stopped")
}

// collect gathers pool statistics and updates the gauges
func (c *DBStatsCollector) collect() {
	if c.pgxPool != nil {
		stat := c.pgxPool.Stat()
		DBConnectionsOpen.Set(float64(stat.TotalConns()))
		DBConnectionsInUse.Set(float64(stat.AcquiredConns()))
		DBConnectionsIdle.Set(float64(stat.IdleConns()))
		DBConnectionsMaxOpen.Set(float64(stat.MaxConns()))
	} else if c.sqlDB != nil {
		stats := c.sqlDB.Stats()
		DBConnectionsOpen.Set(float64(stats.OpenConnections))
		DBConnectionsInUse.Set(float64(stats.InUse))
		DBConnectionsIdle.Set(float64(stats.Idle))
		DBConnectionsMaxOpen.Set(float64(stats.MaxOpenConnections))
	}
}
