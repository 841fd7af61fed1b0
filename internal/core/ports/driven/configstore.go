package driven

import "github.com/custodia-labs/aska-cli/internal/core/domain"

// ConfigStore loads and persists pipeline settings.
type ConfigStore interface {
	// Load returns the stored settings, falling back to defaults for
	// anything unset.
	Load() (domain.PipelineSettings, error)

	// Save persists the settings.
	Save(settings domain.PipelineSettings) error
}
