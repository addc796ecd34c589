// Package actions holds the catalog of atomic, indivisible actions an agent
// can perform (eat, pick up, deposit). Loading is best effort per entry:
// malformed entries are logged and skipped, never abort the document.
// Cross-reference checks live in internal/defs/validate.
package actions

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"colonyforge.ai/internal/defs/schema"
)

// Def is a single atomic action. Identity is DefName.
type Def struct {
	DefName     string `json:"def_name"`
	Description string `json:"description,omitempty"`
	NeedsHands  bool   `json:"needs_hands,omitempty"`
}

type document struct {
	ActionTypes []Def `json:"action_types"`
}

// Catalog holds every loaded action def keyed by def_name. After the load
// phase the catalog is read-only and safe for unsynchronized concurrent
// reads; Load and Clear must not race with readers.
type Catalog struct {
	logger *log.Logger
	defs   map[string]Def
	names  []string // insertion order
	digest string
}

func NewCatalog(logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.Default()
	}
	return &Catalog{logger: logger, defs: map[string]Def{}}
}

// LoadFile loads an action type document and returns the number of newly
// stored defs.
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
	if err := schema.Validate(schema.KindActionTypes, raw); err != nil {
		return 0, err
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, err
	}
	loaded := 0
	for _, d := range doc.ActionTypes {
		if d.DefName == "" {
			c.logger.Printf("action type without def_name skipped")
			continue
		}
		if _, dup := c.defs[d.DefName]; dup {
			c.logger.Printf("duplicate action type %q skipped, first registration wins", d.DefName)
			continue
		}
		c.defs[d.DefName] = d
		c.names = append(c.names, d.DefName)
		loaded++
	}
	c.digest = chainDigest(c.digest, raw)
	return loaded, nil
}

func (c *Catalog) Get(defName string) (Def, bool) {
	d, ok := c.defs[defName]
	return d, ok
}

func (c *Catalog) Has(defName string) bool {
	_, ok := c.defs[defName]
	return ok
}

// NeedsHands reports whether the named action requires free hands. Unknown
// names return false: this sits on the per-tick hands-check path, where a
// lookup miss must degrade to a safe default instead of an error.
func (c *Catalog) NeedsHands(defName string) bool {
	return c.defs[defName].NeedsHands
}

// Names returns the def names in insertion order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// JoinedNames renders every known name for diagnostics.
func (c *Catalog) JoinedNames() string {
	return strings.Join(c.names, ", ")
}

func (c *Catalog) Count() int { return len(c.defs) }

func (c *Catalog) Digest() string { return c.digest }

func (c *Catalog) Clear() {
	c.defs = map[string]Def{}
	c.names = nil
	c.digest = ""
}

func chainDigest(prev string, raw []byte) string {
	sum := sha256.Sum256(append([]byte(prev), raw...))
	return hex.EncodeToString(sum[:])
}
