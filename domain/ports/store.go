package ports

import "github.com/aj-geddes/revitpy-sub005/domain/entities"

// ModelStore persists host model snapshots.
type ModelStore interface {
	// Load reads the stored snapshot. A missing store yields an empty snapshot.
	Load() (entities.ModelSnapshot, error)

	// Save writes the snapshot.
	Save(snapshot entities.ModelSnapshot) error
}

// ConfigParser parses configuration bytes over the defaults.
type ConfigParser interface {
	Parse(data []byte) (*entities.Config, error)
}

// ConfigValidator validates a configuration.
type ConfigValidator interface {
	Validate(cfg *entities.Config) error
}
