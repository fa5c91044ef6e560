package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/meridian/internal/config"
	"github.com/aristath/meridian/internal/database"
)

// InitializeDatabase opens the store and applies the schema
func InitializeDatabase(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// Orders and fills live next to bars, so the whole store gets the ledger profile
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileLedger,
		Name:    "meridian",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
	}
	container.DB = db

	log.Info().Str("path", db.Path()).Msg("Database initialized and schema applied")

	return container, nil
}
