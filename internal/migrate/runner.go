package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// lockKey 迁移期间的事务级 advisory lock，多实例同时启动时串行执行
const lockKey int64 = 0x637763 // "cwc"

// DB 迁移所需的数据库能力，*pgxpool.Pool 满足
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Runner 执行 FS 中的 NNNN_name_up.sql / NNNN_name_down.sql
type Runner struct {
	FS  fs.FS
	Log *zap.Logger
}

type migration struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

// discover 按版本排序；同一版本出现两个 up 文件视为错误
func discover(fsys fs.FS) ([]migration, error) {
	if fsys == nil {
		return nil, errors.New("migrate: fs is nil")
	}
	byVersion := make(map[int64]*migration)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		base := path.Base(p)
		stem, ok := strings.CutSuffix(base, ".sql")
		if !ok {
			return nil
		}
		var dir string
		switch {
		case strings.HasSuffix(stem, "_up"):
			dir, stem = "up", strings.TrimSuffix(stem, "_up")
		case strings.HasSuffix(stem, "_down"):
			dir, stem = "down", strings.TrimSuffix(stem, "_down")
		default:
			return nil
		}
		prefix, name, _ := strings.Cut(stem, "_")
		ver, perr := strconv.ParseInt(prefix, 10, 64)
		if perr != nil {
			return nil
		}
		m := byVersion[ver]
		if m == nil {
			m = &migration{Version: ver, Name: name}
			byVersion[ver] = m
		}
		target := &m.Up
		if dir == "down" {
			target = &m.Down
		}
		if *target != "" {
			return fmt.Errorf("migrate: duplicate %s migration for version %d: %s, %s", dir, ver, *target, p)
		}
		*target = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migrate: version %d has no up migration", m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// EnsureTable 保证 schema_migrations 表存在
func EnsureTable(ctx context.Context, db DB) error {
	_, err := db.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version BIGINT PRIMARY KEY,
        applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`)
	return err
}

// AppliedVersions 已应用版本
func AppliedVersions(ctx context.Context, db DB) (map[int64]bool, error) {
	rows, err := db.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := make(map[int64]bool)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		res[v] = true
	}
	return res, rows.Err()
}

// Pending 未应用的版本
func (r Runner) Pending(applied map[int64]bool) ([]int64, error) {
	ms, err := discover(r.FS)
	if err != nil {
		return nil, err
	}
	var out []int64
	for _, m := range ms {
		if !applied[m.Version] {
			out = append(out, m.Version)
		}
	}
	return out, nil
}

func (r Runner) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// Up 依次执行未应用的迁移，每个版本一个事务，返回本次执行的版本
func (r Runner) Up(ctx context.Context, db DB) ([]int64, error) {
	ms, err := discover(r.FS)
	if err != nil {
		return nil, err
	}
	if err := EnsureTable(ctx, db); err != nil {
		return nil, err
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	var done []int64
	for _, m := range ms {
		if applied[m.Version] {
			continue
		}
		ran, err := r.apply(ctx, db, m, m.Up, true)
		if err != nil {
			return done, fmt.Errorf("migrate up %d_%s: %w", m.Version, m.Name, err)
		}
		if ran {
			done = append(done, m.Version)
			r.log().Info("migration applied", zap.Int64("version", m.Version), zap.String("name", m.Name))
		}
	}
	return done, nil
}

// Down 回滚最近的 steps 个已应用版本
func (r Runner) Down(ctx context.Context, db DB, steps int) ([]int64, error) {
	ms, err := discover(r.FS)
	if err != nil {
		return nil, err
	}
	if err := EnsureTable(ctx, db); err != nil {
		return nil, err
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	var done []int64
	for i := len(ms) - 1; i >= 0 && len(done) < steps; i-- {
		m := ms[i]
		if !applied[m.Version] {
			continue
		}
		if m.Down == "" {
			return done, fmt.Errorf("migrate down %d_%s: no down migration", m.Version, m.Name)
		}
		ran, err := r.apply(ctx, db, m, m.Down, false)
		if err != nil {
			return done, fmt.Errorf("migrate down %d_%s: %w", m.Version, m.Name, err)
		}
		if ran {
			done = append(done, m.Version)
			r.log().Info("migration reverted", zap.Int64("version", m.Version), zap.String("name", m.Name))
		}
	}
	return done, nil
}

// apply 在事务内加锁后复查版本状态，其他实例已处理时跳过
func (r Runner) apply(ctx context.Context, db DB, m migration, file string, up bool) (bool, error) {
	content, err := fs.ReadFile(r.FS, file)
	if err != nil {
		return false, err
	}
	tx, err := db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version).Scan(&exists); err != nil {
		return false, err
	}
	if exists == up {
		return false, nil
	}
	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return false, err
	}
	if up {
		_, err = tx.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES($1)`, m.Version)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.Version)
	}
	if err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
