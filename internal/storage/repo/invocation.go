package repo

import (
	"context"
	"sync"
	"time"

	"protect/internal/logger"
	"protect/internal/storage/model"

	"gorm.io/gorm"
)

// InvocationRepoOptions 异步写入参数
type InvocationRepoOptions struct {
	BatchSize     int           // 缓冲达到该数量时立即刷新
	FlushInterval time.Duration // 定时刷新间隔
	MaxBufferSize int           // 缓冲上限，超出后丢弃最早的记录
}

// DefaultInvocationRepoOptions 默认参数
func DefaultInvocationRepoOptions() InvocationRepoOptions {
	return InvocationRepoOptions{
		BatchSize:     50,
		FlushInterval: 5 * time.Second,
		MaxBufferSize: 1000,
	}
}

// InvocationRepo 调用历史仓库，写入经缓冲异步落库
type InvocationRepo struct {
	BaseRepository[model.InvocationRecord]
	log  logger.Logger
	opts InvocationRepoOptions

	bufferMu sync.Mutex
	buffer   []*model.InvocationRecord
	flushCh  chan chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewInvocationRepo 创建调用历史仓库并启动写入协程，使用完毕需调用 Stop
func NewInvocationRepo(db *gorm.DB, l logger.Logger, opts InvocationRepoOptions) *InvocationRepo {
	def := DefaultInvocationRepoOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = def.FlushInterval
	}
	if opts.MaxBufferSize <= 0 {
		opts.MaxBufferSize = def.MaxBufferSize
	}
	if l == nil {
		l = logger.NewNop()
	}

	r := &InvocationRepo{
		BaseRepository: *NewBaseRepository[model.InvocationRecord](db),
		log:            l,
		opts:           opts,
		buffer:         make([]*model.InvocationRecord, 0, opts.BatchSize),
		flushCh:        make(chan chan struct{}, 1),
		stopCh:         make(chan struct{}),
	}
	r.wg.Add(1)
	go r.asyncWriter()
	return r
}

func (r *InvocationRepo) asyncWriter() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.flush()
			return
		case <-ticker.C:
			r.flush()
		case done := <-r.flushCh:
			r.flush()
			if done != nil {
				close(done)
			}
		}
	}
}

// flush 把缓冲区写入数据库
func (r *InvocationRepo) flush() {
	r.bufferMu.Lock()
	if len(r.buffer) == 0 {
		r.bufferMu.Unlock()
		return
	}
	toWrite := r.buffer
	r.buffer = make([]*model.InvocationRecord, 0, r.opts.BatchSize)
	r.bufferMu.Unlock()

	if err := r.CreateBatch(context.Background(), toWrite, 100); err != nil {
		r.log.Err(err, "写入调用历史失败", "count", len(toWrite))
	}
}

// Record 追加一条记录，不阻塞调用方
func (r *InvocationRepo) Record(rec *model.InvocationRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = rec.CreatedAt.UnixMilli()
	}

	r.bufferMu.Lock()
	if len(r.buffer) >= r.opts.MaxBufferSize {
		r.buffer = r.buffer[1:]
		r.log.Warn("调用历史缓冲已满，丢弃最早记录")
	}
	r.buffer = append(r.buffer, rec)
	needFlush := len(r.buffer) >= r.opts.BatchSize
	r.bufferMu.Unlock()

	if needFlush {
		select {
		case r.flushCh <- nil:
		default:
		}
	}
}

// Flush 同步刷新缓冲区
func (r *InvocationRepo) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case r.flushCh <- done:
	case <-r.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-r.stopCh:
		r.wg.Wait()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop 停止写入协程，剩余记录会被写入
func (r *InvocationRepo) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// QueryOptions 历史查询条件
type QueryOptions struct {
	ProjectID string
	StageID   string
	StageName string
	Status    string
	StartTime int64
	EndTime   int64
	Offset    int
	Limit     int
}

// Apply 实现 Filter
func (o QueryOptions) Apply(db *gorm.DB) *gorm.DB {
	if o.ProjectID != "" {
		db = db.Where("project_id = ?", o.ProjectID)
	}
	if o.StageID != "" {
		db = db.Where("stage_id = ?", o.StageID)
	}
	if o.StageName != "" {
		db = db.Where("stage_name = ?", o.StageName)
	}
	if o.Status != "" {
		db = db.Where("UPPER(status) = UPPER(?)", o.Status)
	}
	if o.StartTime > 0 {
		db = db.Where("timestamp >= ?", o.StartTime)
	}
	if o.EndTime > 0 {
		db = db.Where("timestamp <= ?", o.EndTime)
	}
	return db
}

// Query 查询调用历史，按时间倒序
func (r *InvocationRepo) Query(ctx context.Context, opts QueryOptions) ([]*model.InvocationRecord, int64, error) {
	total, err := r.Count(ctx, opts)
	if err != nil {
		return nil, 0, err
	}

	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if opts.Limit > 1000 {
		opts.Limit = 1000
	}

	var records []*model.InvocationRecord
	err = opts.Apply(r.Db.WithContext(ctx).Model(&model.InvocationRecord{})).
		Order("timestamp DESC").
		Order("id DESC").
		Offset(opts.Offset).
		Limit(opts.Limit).
		Find(&records).Error
	return records, total, err
}

// CleanupOldRecords 删除保留天数之前的记录
func (r *InvocationRepo) CleanupOldRecords(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	return r.Delete(ctx, FilterFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where("timestamp < ?", cutoff)
	}))
}

// ClearAll 清空历史
func (r *InvocationRepo) ClearAll(ctx context.Context) (int64, error) {
	return r.Delete(ctx, FilterFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where("1 = 1")
	}))
}
