// Package runners provides the built-in runners the shipped binary
// carries: Watchdog (endpoint health digest) and Harvest (posting
// volume digest). Both register themselves against the default
// registry at init with zero configuration; the CLI re-registers them
// once the config file is loaded, replacing the unconfigured entries.
package runners

import (
	"github.com/pithecene-io/crier/archive"
	"github.com/pithecene-io/crier/registry"
)

// Config carries the collaborators built-in runners bind at
// registration time, ahead of the per-execution dependencies.
type Config struct {
	// Endpoints are the URLs Watchdog checks. Empty leaves Watchdog
	// with nothing to report.
	Endpoints []string
	// Archive is the dataset Harvest reads. Nil leaves Harvest silent.
	Archive archive.Reader
	// LookbackDays is how far back Harvest reports. 0 means
	// DefaultLookbackDays.
	LookbackDays int
}

// Register adds the built-in runners to reg, bound to cfg. Registering
// on top of earlier entries replaces them.
func Register(reg *registry.Registry, cfg Config) {
	reg.MustRegister(NewWatchdog(cfg.Endpoints))
	reg.MustRegister(NewHarvest(cfg.Archive, cfg.LookbackDays))
}

func init() {
	Register(registry.Default, Config{})
}
