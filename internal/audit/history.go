package audit

import (
	"context"
	"errors"
	"path/filepath"

	"protect/internal/config"
	"protect/internal/logger"
	"protect/internal/storage/db"
	"protect/internal/storage/model"
	"protect/internal/storage/repo"
	"protect/pkg/domain"

	"gorm.io/gorm"
)

// History 本地调用历史：sqlite 连接、仓库与审计员
type History struct {
	*Auditor
	Repo *repo.InvocationRepo
	gdb  *gorm.DB
}

// OpenHistory 按配置打开调用历史库；未启用时返回 domain.ErrDatabaseNotInitialized
func OpenHistory(cfg config.HistConfig, l logger.Logger) (*History, error) {
	if !cfg.Enabled {
		return nil, domain.ErrDatabaseNotInitialized
	}
	if l == nil {
		l = logger.NewNop()
	}

	opts := db.Options{Name: cfg.Db, Prefix: cfg.Prefix, Logger: db.NewLogger(l)}
	if cfg.Db == db.MemoryPath || filepath.IsAbs(cfg.Db) {
		opts.FullPath = cfg.Db
	}
	gdb, err := db.New(opts)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb, &model.InvocationRecord{}); err != nil {
		db.Close(gdb)
		return nil, err
	}

	r := repo.NewInvocationRepo(gdb, l, repo.DefaultInvocationRepoOptions())
	return &History{
		Auditor: New(r, l),
		Repo:    r,
		gdb:     gdb,
	}, nil
}

// Close 刷新缓冲并关闭数据库
func (h *History) Close() error {
	h.Repo.Stop()
	return db.Close(h.gdb)
}

// Query 查询历史前先同步刷新缓冲
func (h *History) Query(ctx context.Context, opts repo.QueryOptions) ([]*model.InvocationRecord, int64, error) {
	if err := h.Repo.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return nil, 0, err
	}
	return h.Repo.Query(ctx, opts)
}
