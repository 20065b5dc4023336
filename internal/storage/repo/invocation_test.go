package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"protect/internal/logger"
	"protect/internal/storage/db"
	"protect/internal/storage/model"
	"protect/internal/storage/repo"
	"protect/pkg/domain"
)

// setupInvocationRepo 创建用于 InvocationRepo 测试的内存数据库
func setupInvocationRepo(t *testing.T) *repo.InvocationRepo {
	t.Helper()
	gdb, err := db.New(db.Options{
		FullPath: db.MemoryPath,
		Prefix:   "test_",
	})
	if err != nil {
		t.Fatalf("创建内存数据库失败: %v", err)
	}
	if err := db.Migrate(gdb, &model.InvocationRecord{}); err != nil {
		t.Fatalf("迁移数据库失败: %v", err)
	}

	r := repo.NewInvocationRepo(gdb, logger.NewNop(), repo.InvocationRepoOptions{
		BatchSize:     5,
		FlushInterval: time.Hour,
		MaxBufferSize: 100,
	})
	t.Cleanup(func() {
		r.Stop()
		db.Close(gdb)
	})
	return r
}

// TestInvocationRepo_FlushWrites 测试同步刷新后记录可查询
func TestInvocationRepo_FlushWrites(t *testing.T) {
	r := setupInvocationRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		r.Record(&model.InvocationRecord{ProjectID: "p1", Status: "NOT_TRIGGERED", ResponseText: "hello"})
	}
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("刷新失败: %v", err)
	}

	records, total, err := r.Query(ctx, repo.QueryOptions{ProjectID: "p1"})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if total != 3 || len(records) != 3 {
		t.Errorf("预期 3 条记录，实际 total=%d len=%d", total, len(records))
	}
	if records[0].Timestamp == 0 || records[0].CreatedAt.IsZero() {
		t.Errorf("时间字段未填充: %+v", records[0])
	}
}

// TestInvocationRepo_BatchTrigger 测试达到批量大小时自动写入
func TestInvocationRepo_BatchTrigger(t *testing.T) {
	r := setupInvocationRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r.Record(&model.InvocationRecord{StageName: "s"})
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err := r.Count(ctx, nil)
		if err != nil {
			t.Fatal(err)
		}
		if n == 5 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("批量写入未触发，当前 %d 条", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestInvocationRepo_QueryWithFilters 测试过滤条件
func TestInvocationRepo_QueryWithFilters(t *testing.T) {
	r := setupInvocationRepo(t)
	ctx := context.Background()

	r.Record(&model.InvocationRecord{ProjectID: "p1", StageName: "a", Status: "TRIGGERED", Timestamp: 1000})
	r.Record(&model.InvocationRecord{ProjectID: "p1", StageName: "b", Status: "NOT_TRIGGERED", Timestamp: 2000})
	r.Record(&model.InvocationRecord{ProjectID: "p2", StageName: "a", Status: "ERROR", Timestamp: 3000})
	if err := r.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts repo.QueryOptions
		want int64
	}{
		{"By Project", repo.QueryOptions{ProjectID: "p1"}, 2},
		{"By Stage Name", repo.QueryOptions{StageName: "a"}, 2},
		{"Status Case Insensitive", repo.QueryOptions{Status: "triggered"}, 1},
		{"Time Range", repo.QueryOptions{StartTime: 1500, EndTime: 2500}, 1},
		{"No Filter", repo.QueryOptions{}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := r.Query(ctx, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if total != tt.want {
				t.Errorf("预期 %d 条，实际 %d", tt.want, total)
			}
		})
	}

	records, _, _ := r.Query(ctx, repo.QueryOptions{Limit: 1})
	if len(records) != 1 || records[0].Timestamp != 3000 {
		t.Errorf("应按时间倒序返回最新记录: %+v", records)
	}
}

// TestInvocationRepo_Cleanup 测试清理与清空
func TestInvocationRepo_Cleanup(t *testing.T) {
	r := setupInvocationRepo(t)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -40).UnixMilli()
	r.Record(&model.InvocationRecord{Timestamp: old})
	r.Record(&model.InvocationRecord{})
	if err := r.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	n, err := r.CleanupOldRecords(ctx, 30)
	if err != nil || n != 1 {
		t.Fatalf("预期清理 1 条，实际 %d, err=%v", n, err)
	}
	n, err = r.ClearAll(ctx)
	if err != nil || n != 1 {
		t.Fatalf("预期清空 1 条，实际 %d, err=%v", n, err)
	}
}

// TestInvocationRepo_FindOneMissing 测试不存在记录返回哨兵错误
func TestInvocationRepo_FindOneMissing(t *testing.T) {
	r := setupInvocationRepo(t)
	if _, err := r.FindOne(context.Background(), 42); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("预期 ErrRecordNotFound，实际 %v", err)
	}
}
