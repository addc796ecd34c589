// Package chains holds the catalog of task chains: ordered multi-step
// sequences of actions such as pickup -> haul -> deposit. Step action
// references are plain def names; resolution against the action catalog is
// the validator's job.
package chains

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"colonyforge.ai/internal/defs/schema"
)

// Step is one action slot inside a chain. Order values are unique within a
// chain but need not be contiguous.
type Step struct {
	Order            uint8  `json:"order"`
	ActionDefName    string `json:"action"`
	Target           string `json:"target,omitempty"`
	Optional         bool   `json:"optional,omitempty"`
	RequiresPrevious bool   `json:"requires_previous,omitempty"`
}

// Def is a task chain. Steps are stored sorted ascending by Order.
type Def struct {
	DefName     string `json:"def_name"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Steps       []Step `json:"steps"`
}

// Step returns the step with exactly the given order.
func (d *Def) Step(order uint8) (Step, bool) {
	for _, s := range d.Steps {
		if s.Order == order {
			return s, true
		}
	}
	return Step{}, false
}

// NextStep advances by exact match on order+1, never by slice index. Chains
// authored with gaps in their numbering stop at the gap; chains_test locks
// this in.
func (d *Def) NextStep(order uint8) (Step, bool) {
	return d.Step(order + 1)
}

type document struct {
	TaskChains []Def `json:"task_chains"`
}

// Catalog holds every loaded chain keyed by def_name. Read-only after the
// load phase; safe for unsynchronized concurrent reads.
type Catalog struct {
	logger *log.Logger
	defs   map[string]*Def
	names  []string // insertion order
	digest string
}

func NewCatalog(logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default()
	}
	return &Catalog{logger: logger, defs: map[string]*Def{}}
}

// LoadFile loads a task chain document and returns the number of newly
// stored chains.
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

func (c *Catalog) LoadBytes(raw []byte) (int, error) {
	if err := schema.Validate(schema.KindTaskChains, raw); err != nil {
		return 0, err
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, err
	}
	loaded := 0
	for _, in := range doc.TaskChains {
		if in.DefName == "" {
			c.logger.Printf("task chain without def_name skipped")
			continue
		}
		if _, dup := c.defs[in.DefName]; dup {
			c.logger.Printf("duplicate task chain %q skipped, first registration wins", in.DefName)
			continue
		}
		def := &Def{
			DefName:     in.DefName,
			Label:       in.Label,
			Description: in.Description,
		}
		if def.Label == "" {
			def.Label = def.DefName
		}
		seen := map[uint8]bool{}
		for _, s := range in.Steps {
			if s.ActionDefName == "" {
				c.logger.Printf("chain %q: step %d has no action, dropped", in.DefName, s.Order)
				continue
			}
			if seen[s.Order] {
				c.logger.Printf("chain %q: duplicate step order %d, dropped", in.DefName, s.Order)
				continue
			}
			seen[s.Order] = true
			def.Steps = append(def.Steps, s)
		}
		if len(def.Steps) == 0 {
			// A chain with no valid steps is meaningless; reject it so the
			// validator never sees it as a trivially valid empty chain.
			c.logger.Printf("chain %q has no valid steps, rejected", in.DefName)
			continue
		}
		sort.Slice(def.Steps, func(i, j int) bool { return def.Steps[i].Order < def.Steps[j].Order })
		c.defs[def.DefName] = def
		c.names = append(c.names, def.DefName)
		loaded++
	}
	c.digest = chainDigest(c.digest, raw)
	return loaded, nil
}

func (c *Catalog) Get(defName string) (*Def, bool) {
	d, ok := c.defs[defName]
	return d, ok
}

func (c *Catalog) Has(defName string) bool {
	_, ok := c.defs[defName]
	return ok
}

// Names returns the chain def names in insertion order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// JoinedNames renders every known chain name for diagnostics.
func (c *Catalog) JoinedNames() string {
	return strings.Join(c.names, ", ")
}

// All exposes the full chain map. Callers must treat it as read-only.
func (c *Catalog) All() map[string]*Def { return c.defs }

func (c *Catalog) Count() int { return len(c.defs) }

func (c *Catalog) Digest() string { return c.digest }

func (c *Catalog) Clear() {
	c.defs = map[string]*Def{}
	c.names = nil
	c.digest = ""
}

func chainDigest(prev string, raw []byte) string {
	sum := sha256.Sum256(append([]byte(prev), raw...))
	return hex.EncodeToString(sum[:])
}
