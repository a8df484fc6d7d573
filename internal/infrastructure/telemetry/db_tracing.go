package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wholesale/orderflow/internal/infrastructure/config"
)

// RegisterDBTracing adds otelgorm spans to every query when enabled.
// Query variables are stripped unless full SQL logging is configured.
func RegisterDBTracing(db *gorm.DB, cfg config.TelemetryConfig, dbName string, logger *zap.Logger) error {
	if !cfg.DBTraceEnabled {
		logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(dbName)}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("failed to register otelgorm: %w", err)
	}

	logger.Info("Database tracing enabled",
		zap.String("db_name", dbName),
		zap.Bool("log_full_sql", cfg.DBLogFullSQL),
	)
	return nil
}
