package engine

import (
	"context"
	"errors"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jobala/petrodb/buffer"
	"github.com/jobala/petrodb/catalog"
	"github.com/jobala/petrodb/command"
	"github.com/jobala/petrodb/config"
	"github.com/jobala/petrodb/index"
	"github.com/jobala/petrodb/logger"
	"github.com/jobala/petrodb/storage/disk"
	"github.com/jobala/petrodb/storage/page"
	"github.com/jobala/petrodb/table"
	"github.com/jobala/petrodb/util"
)

func Open(cfg *config.Cfg) (*Engine, error) {
	return OpenContext(context.Background(), cfg)
}

// OpenContext wires the storage stack from the data file up and rebuilds the
// indexes recorded in the catalog.
func OpenContext(ctx context.Context, cfg *config.Cfg) (*Engine, error) {
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, pkgerrors.Wrapf(err, "creating data dir %s", cfg.DataDir)
	}

	file, err := os.OpenFile(cfg.DataPath(), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, util.NewPageStoreInitError(err, "opening %s", cfg.DataPath())
	}

	diskManager, err := disk.NewManager(file, cfg.SyncWrites)
	if err != nil {
		file.Close()
		return nil, util.NewPageStoreInitError(err, "opening %s", cfg.DataPath())
	}

	pool := buffer.NewPool(cfg.BufferFrames, cfg.BufferK, disk.NewScheduler(diskManager))
	store := page.NewStore(pool)
	if err := store.Init(); err != nil {
		return nil, errors.Join(err, pool.Close())
	}

	e, err := assemble(ctx, store, cfg.CatalogPath())
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	e.pool = pool

	logger.WithFields(logrus.Fields{
		"data":   cfg.DataPath(),
		"pages":  store.PageCount(),
		"tables": len(e.catalog.Tables()),
	}).Info("opened engine")
	return e, nil
}

func assemble(ctx context.Context, store *page.Store, catalogPath string) (*Engine, error) {
	c, err := catalog.Open(catalogPath)
	if err != nil {
		return nil, err
	}

	for _, t := range c.Tables() {
		if t.FirstPageId <= 0 || t.FirstPageId >= store.PageCount() {
			return nil, util.NewPageStoreInitError(nil, "table %s starts at page %d outside the store", t.Name, t.FirstPageId)
		}
	}

	indexes := index.NewManager(store, c)
	if err := indexes.Rebuild(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "rebuilding indexes")
	}

	return &Engine{
		store:   store,
		catalog: c,
		indexes: indexes,
		env: &command.Env{
			Catalog:   c,
			Indexes:   indexes,
			Tables:    table.NewManager(store, c, indexes),
			Validator: command.NewValidator(c),
		},
	}, nil
}

func (e *Engine) Execute(cmd command.Command) (command.Result, error) {
	return command.Execute(e.env, cmd)
}

func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

func (e *Engine) Indexes() *index.Manager {
	return e.indexes
}

func (e *Engine) Store() *page.Store {
	return e.store
}

// CacheStats reports page cache hits, misses and cached frames since open.
func (e *Engine) CacheStats() buffer.Stats {
	return e.pool.Stats()
}

func (e *Engine) Close() error {
	stats := e.pool.Stats()
	logger.WithFields(logrus.Fields{
		"hits":   stats.Hits,
		"misses": stats.Misses,
		"cached": stats.Cached,
	}).Info("closing engine")
	return errors.Join(e.store.Close(), logger.Close())
}

type Engine struct {
	pool    *buffer.Pool
	store   *page.Store
	catalog *catalog.Catalog
	indexes *index.Manager
	env     *command.Env
}
