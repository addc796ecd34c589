// defcheck loads the configuration documents, runs the cross-reference
// validator, and exits non-zero when validation fails. It is the standalone
// form of the startup gate: a false validation result means "do not start
// the simulation".
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"colonyforge.ai/internal/defs"
)

func main() {
	var (
		configDir = flag.String("configs", "./configs", "config directory")
		quiet     = flag.Bool("quiet", false, "suppress per-error output, exit code only")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[defcheck] ", log.LstdFlags)
	if *quiet {
		logger.SetOutput(os.Stderr)
	}

	bundle, err := defs.Load(*configDir, logger)
	if err != nil {
		logger.Fatalf("load defs: %v", err)
	}

	v := bundle.Validator(logger)
	if !v.All() {
		if !*quiet {
			for _, e := range v.Errors() {
				fmt.Fprintf(os.Stderr, "%s: %s\n  %s\n", e.Source, e.Message, e.Context)
			}
		}
		fmt.Fprintf(os.Stderr, "defs invalid: %d errors\n", v.ErrorCount())
		os.Exit(1)
	}

	fmt.Printf("defs ok: %d actions, %d chains, %d categories, %d work types\n",
		bundle.Actions.Count(), bundle.Chains.Count(),
		bundle.Work.CategoryCount(), bundle.Work.WorkTypeCount())
}
