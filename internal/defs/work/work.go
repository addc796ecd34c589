// Package work holds the two-level catalog of work categories and work
// types. Categories are priority tiers (lower tier = higher priority); work
// types declare the capability they react to, optional skill and chain
// references, and an applicability filter. Configuration for one category
// may legitimately be split across several documents; later documents append
// work types into the existing category.
package work

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"colonyforge.ai/internal/defs/schema"
)

// Filter narrows which entities a work type applies to. A nil field means no
// constraint on that axis, which is distinct from an explicit false.
type Filter struct {
	EntityGroup        *string `json:"entity_group,omitempty"`
	LooseItem          *bool   `json:"loose_item,omitempty"`
	Indoor             *bool   `json:"indoor,omitempty"`
	NeededByRecipe     *bool   `json:"needed_by_recipe,omitempty"`
	NeededByBlueprint  *bool   `json:"needed_by_blueprint,omitempty"`
	StationType        *string `json:"station_type,omitempty"`
	HasPlacementTarget *bool   `json:"has_placement_target,omitempty"`
}

// Def is a single work type. Category is the owning category's def_name,
// injected at load time.
type Def struct {
	DefName           string  `json:"def_name"`
	Label             string  `json:"label,omitempty"`
	Description       string  `json:"description,omitempty"`
	TriggerCapability string  `json:"trigger_capability"`
	TargetCapability  string  `json:"target_capability,omitempty"`
	SkillRequired     string  `json:"skill_required,omitempty"`
	MinSkillLevel     float64 `json:"min_skill_level,omitempty"`
	TaskChain         string  `json:"task_chain,omitempty"`
	Filter            Filter  `json:"filter,omitempty"`
	Category          string  `json:"-"`
}

// CategoryDef is a priority tier owning an ordered list of work types.
// Insertion order of WorkTypeDefNames is preserved for display; priority
// ordering uses Tier.
type CategoryDef struct {
	DefName          string   `json:"def_name"`
	Label            string   `json:"label,omitempty"`
	Description      string   `json:"description,omitempty"`
	Tier             float64  `json:"tier"`
	CanDisable       bool     `json:"can_disable,omitempty"`
	WorkTypeDefNames []string `json:"-"`
}

type categoryEntry struct {
	CategoryDef
	WorkTypes []Def `json:"work_types"`
}

type document struct {
	WorkCategories []categoryEntry `json:"work_categories"`
}

// Catalog holds the loaded categories and work types plus a derived
// capability index. Read-only after the load phase; safe for unsynchronized
// concurrent reads.
type Catalog struct {
	logger       *log.Logger
	categories   map[string]*CategoryDef
	catNames     []string // insertion order
	workTypes    map[string]*Def
	wtNames      []string // insertion order
	byCapability map[string][]*Def
	digest       string
}

func NewCatalog(logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default()
	}
	return &Catalog{
		logger:       logger,
		categories:   map[string]*CategoryDef{},
		workTypes:    map[string]*Def{},
		byCapability: map[string][]*Def{},
	}
}

// LoadFile loads a work type document and returns the number of newly stored
// work types.
func (c *Catalog) LoadFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	n, err := c.LoadBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return n, nil
}

// LoadDir recursively loads every work type document under dir. Documents
// are recognized by name: worktypes.json or *.worktypes.json. Files are
// loaded in sorted path order so that the resulting catalog is independent
// of directory iteration order.
func (c *Catalog) LoadDir(dir string) (int, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isWorkTypeDoc(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	sort.Strings(files)

	total := 0
	for _, p := range files {
		n, err := c.LoadFile(p)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func isWorkTypeDoc(name string) bool {
	return name == "worktypes.json" || strings.HasSuffix(name, ".worktypes.json")
}

func (c *Catalog) LoadBytes(raw []byte) (int, error) {
	if err := schema.Validate(schema.KindWorkCategories, raw); err != nil {
		return 0, err
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, err
	}
	loaded := 0
	for _, entry := range doc.WorkCategories {
		if entry.DefName == "" {
			c.logger.Printf("work category without def_name skipped")
			continue
		}
		cat, ok := c.categories[entry.DefName]
		if !ok {
			cd := entry.CategoryDef
			if cd.Label == "" {
				cd.Label = cd.DefName
			}
			cat = &cd
			c.categories[cd.DefName] = cat
			c.catNames = append(c.catNames, cd.DefName)
		}
		for _, in := range entry.WorkTypes {
			if in.DefName == "" {
				c.logger.Printf("category %q: work type without def_name skipped", cat.DefName)
				continue
			}
			if _, dup := c.workTypes[in.DefName]; dup {
				c.logger.Printf("duplicate work type %q rejected, first registration wins", in.DefName)
				continue
			}
			wt := in
			wt.Category = cat.DefName
			if wt.Label == "" {
				wt.Label = wt.DefName
			}
			c.workTypes[wt.DefName] = &wt
			c.wtNames = append(c.wtNames, wt.DefName)
			cat.WorkTypeDefNames = append(cat.WorkTypeDefNames, wt.DefName)
			loaded++
		}
	}
	c.rebuildCapabilityIndex()
	c.digest = chainDigest(c.digest, raw)
	return loaded, nil
}

// rebuildCapabilityIndex rebuilds the trigger-capability index from scratch
// over the full work type set. Loading happens only at startup or reload,
// never per tick, so the full rebuild is fine. Names are walked in sorted
// order so the index does not depend on document load order.
func (c *Catalog) rebuildCapabilityIndex() {
	names := append([]string(nil), c.wtNames...)
	sort.Strings(names)
	c.byCapability = map[string][]*Def{}
	for _, name := range names {
		wt := c.workTypes[name]
		if wt.TriggerCapability == "" {
			continue
		}
		c.byCapability[wt.TriggerCapability] = append(c.byCapability[wt.TriggerCapability], wt)
	}
}

func (c *Catalog) Category(defName string) (*CategoryDef, bool) {
	d, ok := c.categories[defName]
	return d, ok
}

func (c *Catalog) HasCategory(defName string) bool {
	_, ok := c.categories[defName]
	return ok
}

// CategoriesByTier returns every category sorted ascending by tier. Ties
// keep insertion order.
func (c *Catalog) CategoriesByTier() []*CategoryDef {
	out := make([]*CategoryDef, 0, len(c.catNames))
	for _, name := range c.catNames {
		out = append(out, c.categories[name])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}

// CategoryNames returns the category def names in insertion order.
func (c *Catalog) CategoryNames() []string {
	return append([]string(nil), c.catNames...)
}

func (c *Catalog) WorkType(defName string) (*Def, bool) {
	d, ok := c.workTypes[defName]
	return d, ok
}

func (c *Catalog) HasWorkType(defName string) bool {
	_, ok := c.workTypes[defName]
	return ok
}

// InCategory returns the work types owned by a category, in insertion order.
func (c *Catalog) InCategory(categoryName string) []*Def {
	cat, ok := c.categories[categoryName]
	if !ok {
		return nil
	}
	out := make([]*Def, 0, len(cat.WorkTypeDefNames))
	for _, name := range cat.WorkTypeDefNames {
		if wt, ok := c.workTypes[name]; ok {
			out = append(out, wt)
		}
	}
	return out
}

// ForCapability returns the work types whose trigger capability matches.
// This is the hot runtime query; callers must treat the slice as read-only.
func (c *Catalog) ForCapability(capability string) []*Def {
	return c.byCapability[capability]
}

// WorkTypeNames returns the work type def names in insertion order.
func (c *Catalog) WorkTypeNames() []string {
	return append([]string(nil), c.wtNames...)
}

func (c *Catalog) CategoryCount() int { return len(c.categories) }

func (c *Catalog) WorkTypeCount() int { return len(c.workTypes) }

func (c *Catalog) Digest() string { return c.digest }

func (c *Catalog) Clear() {
	c.categories = map[string]*CategoryDef{}
	c.catNames = nil
	c.workTypes = map[string]*Def{}
	c.wtNames = nil
	c.byCapability = map[string][]*Def{}
	c.digest = ""
}

func chainDigest(prev string, raw []byte) string {
	sum := sha256.Sum256(append([]byte(prev), raw...))
	return hex.EncodeToString(sum[:])
}
