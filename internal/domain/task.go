package domain

import "time"

const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
	TaskError      = "error"
)

// Task 是一次异步抓取任务的状态快照。
//
// 状态只前进：pending -> in_progress -> done | error。
// Result 仅在 done 时有值，Error 仅在 error 时有值。
type Task struct {
	ID        string         `json:"id"`
	URL       string         `json:"url"`
	Status    string         `json:"status"`
	Result    *ConcertRecord `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Finished 表示任务已到达终态。
func (t Task) Finished() bool {
	return t.Status == TaskDone || t.Status == TaskError
}
