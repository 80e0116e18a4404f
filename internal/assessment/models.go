package assessment

import "time"

// Payload is a loosely shaped JSON object as returned by the backend.
type Payload = map[string]any

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// NoContent replaces missing message bodies so every message stays renderable.
const NoContent = "No content available"

type ModuleStatus struct {
	Module string `json:"module"`
	Status string `json:"status"`
}

// ProgressSnapshot is the canonical progress shape. Every field is populated after
// NormalizeSnapshot; only CurrentModule, NextModule and ModuleTimeline may be nil.
type ProgressSnapshot struct {
	OverallPercentage float64        `json:"overall_percentage"`
	CurrentModule     *string        `json:"current_module"`
	NextModule        *string        `json:"next_module"`
	ModuleSequence    []string       `json:"module_sequence"`
	ModuleStatus      []ModuleStatus `json:"module_status"`
	ModuleTimeline    []any          `json:"module_timeline"`
	IsComplete        bool           `json:"is_complete"`
}

type Session struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Status             Status            `json:"status"`
	ProgressPercentage float64           `json:"progress_percentage"`
	ProgressSnapshot   *ProgressSnapshot `json:"progress_snapshot"`
	ModuleSequence     []string          `json:"module_sequence"`
	ModuleStatus       []ModuleStatus    `json:"module_status"`
	ModuleTimeline     []any             `json:"module_timeline"`
	CurrentModule      *string           `json:"current_module"`
	NextModule         *string           `json:"next_module"`
	SymptomSummary     any               `json:"symptom_summary"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp string         `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

// AllowedPageSizes is the closed set accepted by ChangePageSize.
var AllowedPageSizes = []int{5, 10, 20, 50}

const DefaultPageSize = 10

func IsAllowedPageSize(n int) bool {
	for _, s := range AllowedPageSizes {
		if s == n {
			return true
		}
	}
	return false
}

type Pagination struct {
	Page          int  `json:"page"`
	PageSize      int  `json:"page_size"`
	TotalPages    int  `json:"total_pages"`
	TotalSessions int  `json:"total_sessions"`
	HasNext       bool `json:"has_next"`
	HasPrevious   bool `json:"has_previous"`
}

// NewPagination clamps page into [1, max(totalPages,1)] and derives HasNext/HasPrevious.
func NewPagination(page, pageSize, totalPages, totalSessions int) Pagination {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if totalPages < 0 {
		totalPages = 0
	}
	if totalSessions < 0 {
		totalSessions = 0
	}
	page = clampPage(page, totalPages)
	return Pagination{
		Page:          page,
		PageSize:      pageSize,
		TotalPages:    totalPages,
		TotalSessions: totalSessions,
		HasNext:       page < totalPages,
		HasPrevious:   page > 1,
	}
}

func clampPage(page, totalPages int) int {
	upper := totalPages
	if upper < 1 {
		upper = 1
	}
	if page < 1 {
		return 1
	}
	if page > upper {
		return upper
	}
	return page
}

func pagesFor(totalSessions, pageSize int) int {
	if totalSessions <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalSessions + pageSize - 1) / pageSize
}

func (s Session) clone() Session {
	out := s
	if s.ProgressSnapshot != nil {
		snap := s.ProgressSnapshot.clone()
		out.ProgressSnapshot = &snap
	}
	out.ModuleSequence = append([]string{}, s.ModuleSequence...)
	out.ModuleStatus = append([]ModuleStatus{}, s.ModuleStatus...)
	if s.ModuleTimeline != nil {
		out.ModuleTimeline = append([]any{}, s.ModuleTimeline...)
	}
	return out
}

func (p ProgressSnapshot) clone() ProgressSnapshot {
	out := p
	out.ModuleSequence = append([]string{}, p.ModuleSequence...)
	out.ModuleStatus = append([]ModuleStatus{}, p.ModuleStatus...)
	if p.ModuleTimeline != nil {
		out.ModuleTimeline = append([]any{}, p.ModuleTimeline...)
	}
	return out
}
