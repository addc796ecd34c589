package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"colonyforge.ai/internal/defs"
	"colonyforge.ai/internal/defs/validate"
	"colonyforge.ai/internal/persistence/defindex"
	"colonyforge.ai/internal/persistence/report"
	"colonyforge.ai/internal/transport/ws"
	"colonyforge.ai/internal/watch"
)

// runtime holds the live bundle plus the last validation outcome. Readers
// and the reload path share it under the mutex; the bundle itself is
// immutable once published.
type runtime struct {
	mu         sync.RWMutex
	bundle     *defs.Bundle
	validation ws.ValidationInfo
	loadedAt   time.Time
}

func (rt *runtime) state() ws.StateMsg {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	cats := map[string]ws.CatalogInfo{
		"actions":   {Digest: rt.bundle.Actions.Digest(), Count: rt.bundle.Actions.Count()},
		"chains":    {Digest: rt.bundle.Chains.Digest(), Count: rt.bundle.Chains.Count()},
		"worktypes": {Digest: rt.bundle.Work.Digest(), Count: rt.bundle.Work.WorkTypeCount()},
	}
	return ws.StateMsg{
		Type:       "DEFS_STATE",
		At:         rt.loadedAt.UTC().Format(time.RFC3339),
		Catalogs:   cats,
		Validation: rt.validation,
	}
}

func main() {
	var (
		addr      = flag.String("addr", ":8085", "http listen address")
		configDir = flag.String("configs", "./configs", "config directory")
		dataDir   = flag.String("data", "./data", "runtime data directory")
		disableDB = flag.Bool("disable_db", false, "disable the sqlite defs index")
		watchCfg  = flag.Bool("watch", true, "reload when config documents change")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[defsrv] ", log.LstdFlags|log.Lmicroseconds)

	bundle, err := defs.Load(*configDir, logger)
	if err != nil {
		logger.Fatalf("load defs: %v", err)
	}
	v := bundle.Validator(logger)
	ok := v.All()
	if !ok {
		// Dangling references discovered mid-simulation corrupt agent
		// behavior far more expensively than refusing to start.
		logger.Fatalf("defs validation failed with %d errors", v.ErrorCount())
	}

	var idx *defindex.SQLiteIndex
	if !*disableDB {
		idx, err = defindex.Open(filepath.Join(*dataDir, "defs", "index.db"))
		if err != nil {
			logger.Fatalf("open defs index: %v", err)
		}
		defer idx.Close()
	}

	rep := report.NewReporter(filepath.Join(*dataDir, "defs"))
	defer rep.Close()

	rt := &runtime{
		bundle:     bundle,
		validation: ws.ValidationInfo{OK: true, ErrorCount: 0},
		loadedAt:   time.Now(),
	}
	record(logger, idx, rep, bundle, v, true)

	ctx, cancel := signalContext()
	defer cancel()

	wsSrv := ws.NewServer(logger, rt.state)

	if *watchCfg {
		reload := func() {
			fresh, err := defs.Load(*configDir, logger)
			if err != nil {
				logger.Printf("reload: %v", err)
				return
			}
			fv := fresh.Validator(logger)
			fok := fv.All()
			record(logger, idx, rep, fresh, fv, fok)

			rt.mu.Lock()
			if fok {
				rt.bundle = fresh
				rt.loadedAt = time.Now()
			}
			rt.validation = ws.ValidationInfo{OK: fok, ErrorCount: fv.ErrorCount()}
			rt.mu.Unlock()

			if fok {
				logger.Printf("reloaded defs: %d actions, %d chains, %d work types",
					fresh.Actions.Count(), fresh.Chains.Count(), fresh.Work.WorkTypeCount())
			} else {
				logger.Printf("reload rejected: %d validation errors, keeping previous defs", fv.ErrorCount())
			}
			wsSrv.Broadcast()
		}
		w, err := watch.New(*configDir, 500*time.Millisecond, logger, reload)
		if err != nil {
			logger.Fatalf("watch configs: %v", err)
		}
		defer w.Close()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/defs/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func record(logger *log.Logger, idx *defindex.SQLiteIndex, rep *report.Reporter, b *defs.Bundle, v *validate.Validator, ok bool) {
	if idx != nil {
		if err := idx.UpsertCatalogs(b); err != nil {
			logger.Printf("index catalogs: %v", err)
		}
		if _, err := idx.RecordValidation(ok, v.Errors()); err != nil {
			logger.Printf("index validation: %v", err)
		}
	}
	for name, digest := range b.Digests() {
		count := 0
		switch name {
		case "actions":
			count = b.Actions.Count()
		case "chains":
			count = b.Chains.Count()
		case "worktypes":
			count = b.Work.WorkTypeCount()
		}
		if err := rep.WriteLoad(name, count, digest); err != nil {
			logger.Printf("report load: %v", err)
		}
	}
	errs := make([]report.ErrorEntry, 0, v.ErrorCount())
	for _, e := range v.Errors() {
		errs = append(errs, report.ErrorEntry{Source: e.Source, Message: e.Message, Context: e.Context})
	}
	if err := rep.WriteValidation(ok, errs); err != nil {
		logger.Printf("report validation: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
