// Package schema validates raw catalog documents against embedded JSON
// Schemas before they reach the per-catalog decoders. The schemas check
// document shape only (root element, field types); per-entry rules such as
// required def_names stay with the loaders so that one bad entry never
// rejects a whole document.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	KindActionTypes    = "action_types"
	KindTaskChains     = "task_chains"
	KindWorkCategories = "work_categories"
)

//go:embed actiontypes.schema.json
var actionTypesSchema string

//go:embed taskchains.schema.json
var taskChainsSchema string

//go:embed worktypes.schema.json
var workTypesSchema string

var compiled = map[string]*jsonschema.Schema{
	KindActionTypes:    mustCompile("actiontypes.schema.json", actionTypesSchema),
	KindTaskChains:     mustCompile("taskchains.schema.json", taskChainsSchema),
	KindWorkCategories: mustCompile("worktypes.schema.json", workTypesSchema),
}

func mustCompile(name, src string) *jsonschema.Schema {
	s, err := jsonschema.CompileString(name, src)
	if err != nil {
		panic(fmt.Sprintf("compile %s: %v", name, err))
	}
	return s
}

// Validate checks a raw document against the schema for the given kind.
func Validate(kind string, raw []byte) error {
	s, ok := compiled[kind]
	if !ok {
		return fmt.Errorf("unknown document kind %q", kind)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%s document: %w", kind, err)
	}
	return nil
}
