// Package logstore 持久化用户的观演记录（sqlite + sqlx）。
package logstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/John-Robertt/culturelog/internal/domain"
)

// ErrNotFound 表示记录不存在。
var ErrNotFound = errors.New("log not found")

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

const schema = `
CREATE TABLE IF NOT EXISTS culture_logs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title      TEXT NOT NULL,
	category   TEXT NOT NULL,
	date       TEXT NOT NULL,
	venue      TEXT,
	performers TEXT,
	program    TEXT,
	price      TEXT,
	rating     INTEGER,
	review     TEXT,
	photos     TEXT,
	source_url TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const columns = `id, title, category, date, venue, performers, program, price, rating, review, photos, source_url, created_at, updated_at`

// Store 是记录库；并发安全性由 *sqlx.DB 保证。
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open 打开（必要时创建）sqlite 数据库并建表。
func Open(ctx context.Context, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("dsn 不能为空")
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败：%w", err)
	}
	// sqlite 单写者；串行化连接避免 database is locked。
	db.SetMaxOpenConns(1)
	s := New(db)
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New 包装已有连接（测试中传入 sqlmock）。
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("建表失败：%w", err)
	}
	return nil
}

// Create 插入一条记录并返回自增 id。
func (s *Store) Create(ctx context.Context, l domain.CultureLog) (int64, error) {
	now := s.now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now

	r, err := toRow(l)
	if err != nil {
		return 0, err
	}
	res, err := s.db.NamedExecContext(ctx, `INSERT INTO culture_logs
		(title, category, date, venue, performers, program, price, rating, review, photos, source_url, created_at, updated_at)
		VALUES (:title, :category, :date, :venue, :performers, :program, :price, :rating, :review, :photos, :source_url, :created_at, :updated_at)`, r)
	if err != nil {
		return 0, fmt.Errorf("插入记录失败：%w", err)
	}
	return res.LastInsertId()
}

func (s *Store) Get(ctx context.Context, id int64) (domain.CultureLog, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT `+columns+` FROM culture_logs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CultureLog{}, ErrNotFound
	}
	if err != nil {
		return domain.CultureLog{}, fmt.Errorf("查询记录失败 id=%d: %w", id, err)
	}
	return r.toLog()
}

// ListQuery 是列表查询条件；零值表示第一页、默认页大小、不过滤。
type ListQuery struct {
	Page     int
	PerPage  int
	Category string
	Search   string
}

// Normalize 把页码与页大小收敛到合法范围。
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	q.Category = strings.TrimSpace(q.Category)
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q ListQuery) where() (string, []any) {
	var conds []string
	var args []any
	if q.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, q.Category)
	}
	if q.Search != "" {
		like := "%" + q.Search + "%"
		conds = append(conds, "(title LIKE ? OR venue LIKE ? OR performers LIKE ?)")
		args = append(args, like, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List 按 date DESC, created_at DESC 分页返回记录，以及同条件下的总数。
func (s *Store) List(ctx context.Context, q ListQuery) ([]domain.CultureLog, int, error) {
	q = q.Normalize()
	where, args := q.where()

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM culture_logs`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("统计记录数失败：%w", err)
	}

	var rows []row
	pageArgs := append(append([]any{}, args...), q.PerPage, (q.Page-1)*q.PerPage)
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+columns+` FROM culture_logs`+where+` ORDER BY date DESC, created_at DESC LIMIT ? OFFSET ?`,
		pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询记录列表失败：%w", err)
	}

	out := make([]domain.CultureLog, 0, len(rows))
	for _, r := range rows {
		l, err := r.toLog()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, nil
}

// Delete 删除记录并返回被删除的内容（调用方据此清理照片文件）。
func (s *Store) Delete(ctx context.Context, id int64) (domain.CultureLog, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.CultureLog{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var r row
	err = tx.GetContext(ctx, &r, `SELECT `+columns+` FROM culture_logs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CultureLog{}, ErrNotFound
	}
	if err != nil {
		return domain.CultureLog{}, fmt.Errorf("查询记录失败 id=%d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM culture_logs WHERE id = ?`, id); err != nil {
		return domain.CultureLog{}, fmt.Errorf("删除记录失败 id=%d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.CultureLog{}, err
	}
	return r.toLog()
}

// Reset 清空并重建表。
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS culture_logs`); err != nil {
		return fmt.Errorf("删除表失败：%w", err)
	}
	return s.Init(ctx)
}

type row struct {
	ID         int64          `db:"id"`
	Title      string         `db:"title"`
	Category   string         `db:"category"`
	Date       string         `db:"date"`
	Venue      sql.NullString `db:"venue"`
	Performers sql.NullString `db:"performers"`
	Program    sql.NullString `db:"program"`
	Price      sql.NullString `db:"price"`
	Rating     sql.NullInt64  `db:"rating"`
	Review     sql.NullString `db:"review"`
	Photos     sql.NullString `db:"photos"`
	SourceURL  sql.NullString `db:"source_url"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func toRow(l domain.CultureLog) (row, error) {
	r := row{
		Title:     l.Title,
		Category:  l.Category,
		Date:      l.Date,
		Venue:     sql.NullString{String: l.Venue, Valid: true},
		Review:    sql.NullString{String: l.Review, Valid: true},
		SourceURL: sql.NullString{String: l.SourceURL, Valid: true},
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
	if l.Rating != nil {
		r.Rating = sql.NullInt64{Int64: int64(*l.Rating), Valid: true}
	}
	var err error
	if r.Performers, err = encodeJSON(nonNil(l.Performers)); err != nil {
		return row{}, err
	}
	if r.Program, err = encodeJSON(nonNil(l.Program)); err != nil {
		return row{}, err
	}
	if r.Price, err = encodeJSON(nonNil(l.Price)); err != nil {
		return row{}, err
	}
	photos := l.Photos
	if photos == nil {
		photos = []domain.Photo{}
	}
	if r.Photos, err = encodeJSON(photos); err != nil {
		return row{}, err
	}
	return r, nil
}

func (r row) toLog() (domain.CultureLog, error) {
	l := domain.CultureLog{
		ID:        r.ID,
		Title:     r.Title,
		Category:  r.Category,
		Date:      r.Date,
		Venue:     r.Venue.String,
		Review:    r.Review.String,
		SourceURL: r.SourceURL.String,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		Photos:    []domain.Photo{},
	}
	if r.Rating.Valid {
		v := int(r.Rating.Int64)
		l.Rating = &v
	}
	var err error
	if l.Performers, err = decodeList(r.ID, "performers", r.Performers); err != nil {
		return domain.CultureLog{}, err
	}
	if l.Program, err = decodeList(r.ID, "program", r.Program); err != nil {
		return domain.CultureLog{}, err
	}
	if l.Price, err = decodeList(r.ID, "price", r.Price); err != nil {
		return domain.CultureLog{}, err
	}
	if r.Photos.Valid && strings.TrimSpace(r.Photos.String) != "" {
		if err := json.Unmarshal([]byte(r.Photos.String), &l.Photos); err != nil {
			return domain.CultureLog{}, fmt.Errorf("记录 id=%d 的 photos 不是合法 JSON：%w", r.ID, err)
		}
		if l.Photos == nil {
			l.Photos = []domain.Photo{}
		}
	}
	return l, nil
}

func encodeJSON(v any) (sql.NullString, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeList(id int64, field string, ns sql.NullString) ([]string, error) {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, fmt.Errorf("记录 id=%d 的 %s 不是合法 JSON：%w", id, field, err)
	}
	return nonNil(out), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
