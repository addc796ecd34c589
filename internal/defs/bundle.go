// Package defs composes the four configuration catalogs into one explicit
// bundle value constructed at startup and passed into whatever needs it.
// There are no package-level registries: single point of truth without
// hidden global mutable state.
package defs

import (
	"log"
	"os"
	"path/filepath"

	"colonyforge.ai/internal/defs/actions"
	"colonyforge.ai/internal/defs/chains"
	"colonyforge.ai/internal/defs/priority"
	"colonyforge.ai/internal/defs/validate"
	"colonyforge.ai/internal/defs/work"
)

// Standard document names under a config directory.
const (
	ActionsDoc  = "actions.json"
	ChainsDoc   = "chains.json"
	PriorityDoc = "priority.yaml"
)

// Bundle is the loaded, validated configuration consumed by task generation
// and scoring. Populate it once via Load (or the individual catalog loaders
// in tests), validate, then treat it as read-only; unsynchronized concurrent
// reads are safe after that point. Reloading after startup must be
// externally synchronized against in-flight readers.
type Bundle struct {
	Actions  *actions.Catalog
	Chains   *chains.Catalog
	Work     *work.Catalog
	Priority *priority.Config
}

func NewBundle(logger *log.Logger) *Bundle {
	return &Bundle{
		Actions:  actions.NewCatalog(logger),
		Chains:   chains.NewCatalog(logger),
		Work:     work.NewCatalog(logger),
		Priority: priority.NewConfig(),
	}
}

// Load reads the standard documents from configDir in dependency order,
// leaves first: actions, chains, work types, priority tuning. Work type
// documents are discovered recursively (worktypes.json, *.worktypes.json).
// A missing priority document is not an error; the defaults apply.
func Load(configDir string, logger *log.Logger) (*Bundle, error) {
	if logger == nil {
		logger = log.Default()
	}
	b := NewBundle(logger)

	if n, err := b.Actions.LoadFile(filepath.Join(configDir, ActionsDoc)); err != nil {
		return nil, err
	} else {
		logger.Printf("loaded %d action types", n)
	}
	if n, err := b.Chains.LoadFile(filepath.Join(configDir, ChainsDoc)); err != nil {
		return nil, err
	} else {
		logger.Printf("loaded %d task chains", n)
	}
	if n, err := b.Work.LoadDir(configDir); err != nil {
		return nil, err
	} else {
		logger.Printf("loaded %d work types in %d categories", n, b.Work.CategoryCount())
	}

	prioPath := filepath.Join(configDir, PriorityDoc)
	if err := b.Priority.Load(prioPath); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		logger.Printf("priority tuning not found (%s); using defaults", prioPath)
	}

	b.RefreshCategoryOrder()
	return b, nil
}

// RefreshCategoryOrder pushes the work catalog's category tiers into the
// priority config. Call after any load that may have changed the category
// set.
func (b *Bundle) RefreshCategoryOrder() {
	tiers := make(map[string]float64, b.Work.CategoryCount())
	for _, cat := range b.Work.CategoriesByTier() {
		tiers[cat.DefName] = cat.Tier
	}
	b.Priority.RebuildCategoryOrder(tiers)
}

// Validator builds a cross-reference validator over this bundle.
func (b *Bundle) Validator(logger *log.Logger) *validate.Validator {
	return validate.New(logger, b.Actions, b.Chains, b.Work, b.Priority)
}

// Digests returns the per-catalog content digests, keyed by document kind.
func (b *Bundle) Digests() map[string]string {
	return map[string]string{
		"actions":   b.Actions.Digest(),
		"chains":    b.Chains.Digest(),
		"worktypes": b.Work.Digest(),
	}
}

// Clear empties every catalog and restores the priority defaults.
func (b *Bundle) Clear() {
	b.Actions.Clear()
	b.Chains.Clear()
	b.Work.Clear()
	b.Priority.Clear()
}
