package logstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/John-Robertt/culturelog/internal/domain"
)

type bucket struct {
	Key string `db:"k"`
	N   int    `db:"n"`
}

// Stats 汇总全部记录。monthly_stats 只统计今年，键为两位月份（"01".."12"）。
func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	st := domain.Stats{
		CategoryStats:      map[string]int{},
		MonthlyStats:       map[string]int{},
		RatingDistribution: map[string]int{},
	}

	if err := s.db.GetContext(ctx, &st.TotalLogs, `SELECT COUNT(*) FROM culture_logs`); err != nil {
		return domain.Stats{}, fmt.Errorf("统计总数失败：%w", err)
	}

	var avg sql.NullFloat64
	if err := s.db.GetContext(ctx, &avg, `SELECT AVG(rating) FROM culture_logs WHERE rating IS NOT NULL`); err != nil {
		return domain.Stats{}, fmt.Errorf("统计平均分失败：%w", err)
	}
	if avg.Valid {
		st.AvgRating = math.Round(avg.Float64*10) / 10
	}

	var cats []bucket
	if err := s.db.SelectContext(ctx, &cats,
		`SELECT category AS k, COUNT(*) AS n FROM culture_logs GROUP BY category ORDER BY n DESC`); err != nil {
		return domain.Stats{}, fmt.Errorf("统计分类失败：%w", err)
	}
	for _, b := range cats {
		st.CategoryStats[b.Key] = b.N
	}

	var ratings []bucket
	if err := s.db.SelectContext(ctx, &ratings,
		`SELECT CAST(rating AS TEXT) AS k, COUNT(*) AS n FROM culture_logs WHERE rating IS NOT NULL GROUP BY rating ORDER BY rating`); err != nil {
		return domain.Stats{}, fmt.Errorf("统计评分分布失败：%w", err)
	}
	for _, b := range ratings {
		st.RatingDistribution[b.Key] = b.N
	}

	// 日期来自网页原文（2025.01.15 / 2025년 1월 15일 / 2025-01-15），sqlite 的 strftime 识别不了，在这里解析。
	var dates []string
	if err := s.db.SelectContext(ctx, &dates, `SELECT date FROM culture_logs`); err != nil {
		return domain.Stats{}, fmt.Errorf("统计月份失败：%w", err)
	}
	year := s.now().Year()
	for _, d := range dates {
		if m, ok := monthOf(d, year); ok {
			st.MonthlyStats[m]++
		}
	}
	return st, nil
}

var yearMonthRE = regexp.MustCompile(`(\d{4})\s*[-./년]\s*(\d{1,2})`)

// monthOf 返回 date 在 year 年内的两位月份。
func monthOf(date string, year int) (string, bool) {
	m := yearMonthRE.FindStringSubmatch(date)
	if m == nil {
		return "", false
	}
	y, _ := strconv.Atoi(m[1])
	mon, _ := strconv.Atoi(m[2])
	if y != year || mon < 1 || mon > 12 {
		return "", false
	}
	return fmt.Sprintf("%02d", mon), true
}
