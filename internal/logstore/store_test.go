package logstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/culturelog/internal/domain"
)

var rowColumns = []string{
	"id", "title", "category", "date", "venue", "performers", "program", "price",
	"rating", "review", "photos", "source_url", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "sqlite3")), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

var ts = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCreate_EncodesListsAsJSON(t *testing.T) {
	s, mock := newMockStore(t)
	s.now = func() time.Time { return ts }
	rating := 5

	mock.ExpectExec(q("INSERT INTO culture_logs")).
		WithArgs(
			"신년음악회", "콘서트", "2025.01.15", "롯데콘서트홀",
			`["정명훈 - 지휘"]`, `[]`, `["R석 150,000원"]`,
			int64(5), "좋았다", `[{"filename":"a.jpg","original_name":"원본.jpg"}]`, "https://x.test/1",
			ts, ts,
		).
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := s.Create(context.Background(), domain.CultureLog{
		Title:      "신년음악회",
		Category:   "콘서트",
		Date:       "2025.01.15",
		Venue:      "롯데콘서트홀",
		Performers: []string{"정명훈 - 지휘"},
		Price:      []string{"R석 150,000원"},
		Rating:     &rating,
		Review:     "좋았다",
		Photos:     []domain.Photo{{Filename: "a.jpg", OriginalName: "원본.jpg"}},
		SourceURL:  "https://x.test/1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q("FROM culture_logs WHERE id = ?")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(rowColumns))

	_, err := s.Get(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_DecodesRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q("FROM culture_logs WHERE id = ?")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
			int64(1), "제목", "뮤지컬", "2025-02-01", nil, `["A"]`, nil, "", nil, nil, nil, nil, ts, ts,
		))

	l, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, l.Performers)
	assert.Equal(t, []string{}, l.Program)
	assert.Equal(t, []string{}, l.Price)
	assert.Equal(t, []domain.Photo{}, l.Photos)
	assert.Nil(t, l.Rating)
	assert.Equal(t, "", l.Venue)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_CorruptJSON(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q("FROM culture_logs WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
			int64(1), "제목", "뮤지컬", "2025-02-01", nil, `["A"`, nil, nil, nil, nil, nil, nil, ts, ts,
		))

	_, err := s.Get(context.Background(), 1)
	assert.ErrorContains(t, err, "performers")
}

func TestList_CountUsesSameFilters(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(q("SELECT COUNT(*) FROM culture_logs WHERE category = ? AND (title LIKE ? OR venue LIKE ? OR performers LIKE ?)")).
		WithArgs("콘서트", "%홀%", "%홀%", "%홀%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(q("ORDER BY date DESC, created_at DESC LIMIT ? OFFSET ?")).
		WithArgs("콘서트", "%홀%", "%홀%", "%홀%", 5, 5).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
			int64(3), "제목", "콘서트", "2025.01.15", "롯데콘서트홀", `[]`, `[]`, `[]`, int64(4), "", `[]`, "", ts, ts,
		))

	logs, total, err := s.List(context.Background(), ListQuery{Page: 2, PerPage: 5, Category: " 콘서트 ", Search: "홀"})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(3), logs[0].ID)
	require.NotNil(t, logs[0].Rating)
	assert.Equal(t, 4, *logs[0].Rating)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_NoFilters(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM culture_logs$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(q("LIMIT ? OFFSET ?")).
		WithArgs(DefaultPerPage, 0).
		WillReturnRows(sqlmock.NewRows(rowColumns))

	logs, total, err := s.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListQuery_Normalize(t *testing.T) {
	got := ListQuery{Page: -1, PerPage: 1000}.Normalize()
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, MaxPerPage, got.PerPage)

	got = ListQuery{Page: 3}.Normalize()
	assert.Equal(t, 3, got.Page)
	assert.Equal(t, DefaultPerPage, got.PerPage)
}

func TestDelete_ReturnsDeletedLog(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM culture_logs WHERE id = ?")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
			int64(5), "제목", "전시", "2025.01.01", "", `[]`, `[]`, `[]`, nil, "",
			`[{"filename":"p.png","original_name":"p.png"}]`, "", ts, ts,
		))
	mock.ExpectExec(q("DELETE FROM culture_logs WHERE id = ?")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	l, err := s.Delete(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, l.Photos, 1)
	assert.Equal(t, "p.png", l.Photos[0].Filename)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_NotFoundRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM culture_logs WHERE id = ?")).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.Delete(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_Mock(t *testing.T) {
	s, mock := newMockStore(t)
	s.now = func() time.Time { return ts }

	mock.ExpectQuery(`^SELECT COUNT\(\*\) FROM culture_logs$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(q("SELECT AVG(rating)")).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(4.333333))
	mock.ExpectQuery(q("GROUP BY category")).
		WillReturnRows(sqlmock.NewRows([]string{"k", "n"}).AddRow("콘서트", 3).AddRow("전시", 1))
	mock.ExpectQuery(q("GROUP BY rating")).
		WillReturnRows(sqlmock.NewRows([]string{"k", "n"}).AddRow("4", 2).AddRow("5", 1))
	mock.ExpectQuery(q("SELECT date FROM culture_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"date"}).
			AddRow("2025.01.15").
			AddRow("2025년 1월 20일").
			AddRow("2025-03-02").
			AddRow("2024.01.15"))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalLogs)
	assert.Equal(t, 4.3, st.AvgRating)
	assert.Equal(t, map[string]int{"콘서트": 3, "전시": 1}, st.CategoryStats)
	assert.Equal(t, map[string]int{"4": 2, "5": 1}, st.RatingDistribution)
	assert.Equal(t, map[string]int{"01": 2, "03": 1}, st.MonthlyStats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMonthOf(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025.01.15", "01", true},
		{"2025. 12. 3", "12", true},
		{"2025/7/1", "07", true},
		{"2025년 11월", "11", true},
		{"2025.13.01", "", false},
		{"2024.01.15", "", false},
		{"날짜 미정", "", false},
	}
	for _, c := range cases {
		got, ok := monthOf(c.in, 2025)
		assert.Equal(t, c.ok, ok, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "logs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	four, five := 4, 5
	for _, l := range []domain.CultureLog{
		{Title: "A 음악회", Category: "콘서트", Date: "2025.01.10", Venue: "예술의전당", Rating: &four},
		{Title: "B 전시", Category: "전시", Date: "2025.02.10", Venue: "국립현대미술관"},
		{Title: "C 리사이틀", Category: "콘서트", Date: "2025.03.10", Venue: "롯데콘서트홀", Rating: &five,
			Performers: []string{"조성진 - 피아노"}},
	} {
		_, err := s.Create(ctx, l)
		require.NoError(t, err)
	}

	logs, total, err := s.List(ctx, ListQuery{Category: "콘서트"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, logs, 2)
	assert.Equal(t, "C 리사이틀", logs[0].Title, "按日期倒序")
	assert.Equal(t, []string{"조성진 - 피아노"}, logs[0].Performers)

	logs, total, err = s.List(ctx, ListQuery{Search: "조성진"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, logs, 1)

	logs, total, err = s.List(ctx, ListQuery{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, logs, 1)
	assert.Equal(t, "A 음악회", logs[0].Title)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalLogs)
	assert.Equal(t, 4.5, st.AvgRating)
	assert.Equal(t, 2, st.CategoryStats["콘서트"])

	got, err := s.Delete(ctx, logs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "A 음악회", got.Title)
	_, err = s.Get(ctx, got.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Reset(ctx))
	_, total, err = s.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}
