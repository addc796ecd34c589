// Package validate is the single authoritative pass that turns dangling
// cross-catalog references into surfaced diagnostics. Loaders stay lenient
// per entry; this pass is where a missing key becomes fatal to startup.
// The validator itself only reports: callers treat a false All() as "do not
// start the simulation".
package validate

import (
	"fmt"
	"log"
	"strings"

	"colonyforge.ai/internal/defs/actions"
	"colonyforge.ai/internal/defs/chains"
	"colonyforge.ai/internal/defs/priority"
	"colonyforge.ai/internal/defs/work"
)

// Error sources, one per catalog stage.
const (
	SourceActionTypes    = "ActionTypes"
	SourceTaskChains     = "TaskChains"
	SourceWorkTypes      = "WorkTypes"
	SourcePriorityConfig = "PriorityConfig"
)

// Error is a single collected validation failure. Context carries a
// diagnostic aid such as the list of valid names.
type Error struct {
	Source  string `json:"source"`
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

// Validator checks every cross-reference between the four loaded catalogs.
// Stages are independently callable and append to a shared error list; All
// clears the list, runs every stage regardless of earlier failures, and logs
// whatever was collected.
type Validator struct {
	logger  *log.Logger
	actions *actions.Catalog
	chains  *chains.Catalog
	work    *work.Catalog
	prio    *priority.Config
	errs    []Error
}

func New(logger *log.Logger, a *actions.Catalog, ch *chains.Catalog, w *work.Catalog, p *priority.Config) *Validator {
	if logger == nil {
		logger = log.Default()
	}
	return &Validator{logger: logger, actions: a, chains: ch, work: w, prio: p}
}

// ActionTypes checks that at least one action type is loaded; with zero
// actions nothing can ever execute.
func (v *Validator) ActionTypes() bool {
	before := len(v.errs)
	if v.actions.Count() == 0 {
		v.errs = append(v.errs, Error{
			Source:  SourceActionTypes,
			Message: "no action types loaded",
			Context: "at least one action type is required",
		})
	}
	return len(v.errs) == before
}

// TaskChains checks that every step of every chain references a known
// action.
func (v *Validator) TaskChains() bool {
	before := len(v.errs)
	for _, name := range v.chains.Names() {
		def, ok := v.chains.Get(name)
		if !ok {
			continue
		}
		for _, s := range def.Steps {
			if v.actions.Has(s.ActionDefName) {
				continue
			}
			v.errs = append(v.errs, Error{
				Source:  SourceTaskChains,
				Message: fmt.Sprintf("chain %q step %d references unknown action %q", name, s.Order, s.ActionDefName),
				Context: "known actions: " + v.actions.JoinedNames(),
			})
		}
	}
	return len(v.errs) == before
}

// WorkTypes checks that every work type with a task chain set references a
// known chain. A work type with an empty trigger capability can never
// generate tasks but is not invalid configuration; it gets a logged warning
// that does not affect the result.
func (v *Validator) WorkTypes() bool {
	before := len(v.errs)
	for _, name := range v.work.WorkTypeNames() {
		wt, ok := v.work.WorkType(name)
		if !ok {
			continue
		}
		if wt.TriggerCapability == "" {
			v.logger.Printf("warning: work type %q has no trigger capability and will never generate tasks", name)
		}
		if wt.TaskChain == "" {
			continue
		}
		if v.chains.Has(wt.TaskChain) {
			continue
		}
		v.errs = append(v.errs, Error{
			Source:  SourceWorkTypes,
			Message: fmt.Sprintf("work type %q references unknown task chain %q", name, wt.TaskChain),
			Context: "known chains: " + v.chains.JoinedNames(),
		})
	}
	return len(v.errs) == before
}

// PriorityConfig checks that every name in the category order exists in the
// work catalog.
func (v *Validator) PriorityConfig() bool {
	before := len(v.errs)
	for _, name := range v.prio.CategoryOrder() {
		if v.work.HasCategory(name) {
			continue
		}
		v.errs = append(v.errs, Error{
			Source:  SourcePriorityConfig,
			Message: fmt.Sprintf("category order references unknown category %q", name),
			Context: "known categories: " + strings.Join(v.work.CategoryNames(), ", "),
		})
	}
	return len(v.errs) == before
}

// All clears any previously collected errors, runs every stage in dependency
// order (a failing stage never skips the next), logs each collected error,
// and returns true iff none were collected.
func (v *Validator) All() bool {
	v.errs = v.errs[:0]
	v.ActionTypes()
	v.TaskChains()
	v.WorkTypes()
	v.PriorityConfig()
	for _, e := range v.errs {
		v.logger.Printf("validation error [%s]: %s (%s)", e.Source, e.Message, e.Context)
	}
	return len(v.errs) == 0
}

// Errors returns a copy of the collected errors in collection order.
func (v *Validator) Errors() []Error {
	return append([]Error(nil), v.errs...)
}

func (v *Validator) ErrorCount() int { return len(v.errs) }
