package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/snrecon/internal/config"
	"github.com/roach88/snrecon/internal/engine"
	"github.com/roach88/snrecon/internal/logging"
	"github.com/roach88/snrecon/internal/metadata"
	"github.com/roach88/snrecon/internal/metrics"
	"github.com/roach88/snrecon/internal/order"
	"github.com/roach88/snrecon/internal/rules"
	"github.com/roach88/snrecon/internal/store"
)

// session bundles what a command needs to work on one order.
type session struct {
	*backend
	doc    *order.Document
	engine *engine.Engine
}

// backend holds the parts of a session that do not depend on an order.
type backend struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *store.Store
	metrics *metrics.Recorder
}

// openBackend loads configuration, builds the logger and opens the state
// database.
func openBackend(opts *RootOptions) (*backend, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	logger := opts.Logger
	if logger == nil {
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format, opts.Verbose)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to initialize logger", err)
		}
	}

	st, err := store.Open(cfg.Database, store.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", zap.String("path", cfg.Database))

	return &backend{cfg: cfg, logger: logger, store: st, metrics: metrics.NewRecorder()}, nil
}

// close writes the metrics textfile when configured and closes the database.
func (b *backend) close() error {
	var firstErr error
	if b.cfg.MetricsFile != "" {
		if err := b.metrics.WriteTextfile(b.cfg.MetricsFile); err != nil {
			firstErr = err
		}
	}
	if err := b.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close database: %w", err)
	}
	_ = b.logger.Sync()
	return firstErr
}

// productCache returns the cache for catalog lookups. Dry runs get a
// process-local cache so they neither prune nor fill the product_metadata
// table.
func (b *backend) productCache(persist bool) metadata.Cache {
	if !persist {
		return metadata.NewMemoryCache()
	}
	cache := b.store.MetadataCache()
	if b.cfg.CatalogTTL > 0 {
		if _, err := cache.Prune(context.Background(), time.Now().Add(-b.cfg.CatalogTTL)); err != nil {
			b.logger.Warn("product cache not pruned", zap.Error(err))
		}
	}
	return cache
}

// openSession loads the order at path and builds an engine over it.
//
// With persist false the engine reads leftovers and undo snapshots from
// the state database but keeps its writes and product lookups in memory,
// so a dry run leaves the database untouched.
func openSession(opts *RootOptions, path string, persist bool) (*session, error) {
	doc, err := order.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load order", err)
	}

	rt, err := openBackend(opts)
	if err != nil {
		return nil, err
	}

	engineOpts := []engine.EngineOption{engine.WithLogger(rt.logger)}
	if opts.SessionIDs != nil {
		engineOpts = append(engineOpts, engine.WithSessionIDs(opts.SessionIDs))
	}
	if rt.cfg.RulesFile != "" {
		rs, err := rules.LoadFile(rt.cfg.RulesFile)
		if err != nil {
			_ = rt.close()
			return nil, WrapExitError(ExitCommandError, "failed to load rules", err)
		}
		engineOpts = append(engineOpts, engine.WithRules(rs))
	}
	if rt.cfg.CatalogFile != "" {
		catalog, err := metadata.LoadCatalog(rt.cfg.CatalogFile)
		if err != nil {
			_ = rt.close()
			return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
		}
		lookup := metadata.NewCached(catalog, rt.productCache(persist), metadata.WithLogger(rt.logger))
		engineOpts = append(engineOpts, engine.WithMetadata(lookup))
	}

	var kv engine.KV = rt.store
	if !persist {
		kv = store.NewOverlay(rt.store)
	}

	eng := engine.New(doc.Scope, doc, kv, engineOpts...)
	rt.logger.Debug("session opened",
		zap.String("scope", doc.Scope),
		zap.String("session", eng.SessionID()),
		zap.Int("lines", len(doc.Items)),
		zap.Bool("persist", persist))

	return &session{backend: rt, doc: doc, engine: eng}, nil
}

// save writes the order back when write is set.
func (s *session) save(write bool) error {
	if !write {
		return nil
	}
	if err := s.doc.Save(); err != nil {
		return WrapExitError(ExitCommandError, "failed to save order", err)
	}
	s.logger.Info("order saved", zap.String("path", s.doc.Path()))
	return nil
}

func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
