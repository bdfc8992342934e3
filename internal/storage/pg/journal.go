package pg

import (
	"context"
	"embed"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/taoyao-code/cwc-bridge/internal/device"
	"go.uber.org/zap"
)

// Migrations 帧日志表结构
//
//go:embed migrations/*.sql
var Migrations embed.FS

// Direction 帧方向
type Direction string

const (
	DirectionSent     Direction = "tx"
	DirectionReceived Direction = "rx"
)

var journalColumns = []string{"device_id", "family", "direction", "frame", "error", "recorded_at"}

// Entry 一条帧记录
type Entry struct {
	DeviceID  string    `json:"deviceId"`
	Family    string    `json:"family"`
	Direction Direction `json:"direction"`
	Frame     []byte    `json:"frame"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// DB 帧日志所需的数据库能力，*pgxpool.Pool 满足
type DB interface {
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// JournalOptions 批量写入参数
type JournalOptions struct {
	Buffer        int
	BatchSize     int
	FlushInterval time.Duration
}

// Journal 异步批量写入收发帧
//
// Record 不阻塞设备收发；缓冲区满时丢弃并计数。
type Journal struct {
	db   DB
	log  *zap.Logger
	opts JournalOptions

	entries chan Entry
	dropped atomic.Int64
	written atomic.Int64

	done chan struct{}
}

// NewJournal 创建帧日志
func NewJournal(db DB, log *zap.Logger, opts JournalOptions) *Journal {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 1024
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	return &Journal{
		db:      db,
		log:     log,
		opts:    opts,
		entries: make(chan Entry, opts.Buffer),
		done:    make(chan struct{}),
	}
}

// Record 入队一条记录，队列满返回 false
func (j *Journal) Record(e Entry) bool {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	select {
	case j.entries <- e:
		return true
	default:
		j.dropped.Add(1)
		return false
	}
}

// Dropped 因队列满丢弃的条数
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Written 已落库条数
func (j *Journal) Written() int64 { return j.written.Load() }

// Hooks 设备收发钩子
func (j *Journal) Hooks() device.Hooks {
	return device.Hooks{
		OnSend: func(d *device.Device, frame []byte, err error) {
			e := j.entry(d, DirectionSent, frame)
			if err != nil {
				e.Error = err.Error()
			}
			j.Record(e)
		},
		OnReceive: func(d *device.Device, p []byte) {
			j.Record(j.entry(d, DirectionReceived, p))
		},
	}
}

func (j *Journal) entry(d *device.Device, dir Direction, p []byte) Entry {
	info := d.Info()
	return Entry{
		DeviceID:  info.ID,
		Family:    info.Family,
		Direction: dir,
		Frame:     append([]byte(nil), p...),
		At:        time.Now(),
	}
}

// Run 定时或攒满一批后写库，ctx 取消时把剩余记录写完再返回
func (j *Journal) Run(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, j.opts.BatchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := j.write(ctx, batch); err != nil {
			j.log.Warn("frame journal write failed", zap.Int("entries", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-j.entries:
			batch = append(batch, e)
			if len(batch) >= j.opts.BatchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
		drain:
			for {
				select {
				case e := <-j.entries:
					batch = append(batch, e)
				default:
					break drain
				}
			}
			drainCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			flush(drainCtx)
			cancel()
			return
		}
	}
}

// Done Run 退出后关闭
func (j *Journal) Done() <-chan struct{} { return j.done }

func (j *Journal) write(ctx context.Context, batch []Entry) error {
	rows := make([][]any, len(batch))
	for i, e := range batch {
		rows[i] = []any{e.DeviceID, e.Family, string(e.Direction), e.Frame, e.Error, e.At}
	}
	n, err := j.db.CopyFrom(ctx, pgx.Identifier{"frame_journal"}, journalColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return err
	}
	j.written.Add(n)
	return nil
}

// Recent 按时间倒序取设备最近的帧
func (j *Journal) Recent(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := j.db.Query(ctx, `SELECT device_id, family, direction, frame, error, recorded_at
        FROM frame_journal WHERE device_id = $1 ORDER BY recorded_at DESC LIMIT $2`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var dir string
		if err := rows.Scan(&e.DeviceID, &e.Family, &dir, &e.Frame, &e.Error, &e.At); err != nil {
			return nil, err
		}
		e.Direction = Direction(dir)
		out = append(out, e)
	}
	return out, rows.Err()
}
