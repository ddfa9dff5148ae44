package domain

import "time"

// CultureLog 是用户整理后保存的一条观演记录。
type CultureLog struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Date       string    `json:"date"`
	Venue      string    `json:"venue"`
	Performers []string  `json:"performers"`
	Program    []string  `json:"program"`
	Price      []string  `json:"price"`
	Rating     *int      `json:"rating"`
	Review     string    `json:"review"`
	Photos     []Photo   `json:"photos"`
	SourceURL  string    `json:"source_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Photo 是已上传图片的引用；Filename 为存储名（uuid + 扩展名）。
type Photo struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
}

// LogFromRecord 以抽取结果为底稿构造一条待保存的记录（评分/感想由用户补充）。
func LogFromRecord(r ConcertRecord, category string) CultureLog {
	r.Normalize()
	return CultureLog{
		Title:      r.Title,
		Category:   category,
		Date:       r.Date,
		Venue:      r.Venue,
		Performers: append([]string{}, r.Performers...),
		Program:    append([]string{}, r.Program...),
		Price:      append([]string{}, r.Price...),
		Photos:     []Photo{},
		SourceURL:  r.SourceURL,
	}
}

// Stats 是记录库的汇总统计。
type Stats struct {
	TotalLogs          int            `json:"total_logs"`
	AvgRating          float64        `json:"avg_rating"`
	CategoryStats      map[string]int `json:"category_stats"`
	MonthlyStats       map[string]int `json:"monthly_stats"`
	RatingDistribution map[string]int `json:"rating_distribution"`
}
