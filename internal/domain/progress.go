package domain

import "time"

// ReadingProgress tracks one user's position in one book. Unique per
// (UserID, BookID). PercentageComplete is recomputed from
// CurrentPage/TotalPages whenever TotalPages is known; otherwise the
// caller-supplied value is stored verbatim.
type ReadingProgress struct {
	UserID             string    `json:"user_id"`
	BookID             string    `json:"book_id"`
	CurrentPage        int       `json:"current_page"`
	TotalPages         *int      `json:"total_pages,omitempty"`
	PercentageComplete float64   `json:"percentage_complete"`
	LastReadAt         time.Time `json:"last_read_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Recompute derives PercentageComplete from CurrentPage/TotalPages when
// TotalPages is known, clamped to [0, 100].
func (p *ReadingProgress) Recompute() {
	if p.TotalPages == nil || *p.TotalPages <= 0 {
		return
	}
	pct := (float64(p.CurrentPage) / float64(*p.TotalPages)) * 100
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	p.PercentageComplete = pct
}

// IsComplete reports whether the book has been marked finished.
func (p *ReadingProgress) IsComplete() bool {
	return p.CompletedAt != nil
}

// ReadingStats aggregates a user's reading activity.
type ReadingStats struct {
	BooksStarted   int `json:"books_started"`
	BooksCompleted int `json:"books_completed"`
	// StreakDays is the length of the longest trailing run of distinct
	// calendar days (server timezone) with at least one progress update,
	// terminating at today. Only each book's most recent update is kept, so
	// days are taken from those updates alone.
	StreakDays int `json:"streak_days"`
}

// AuthFlow selects how new account registration is gated.
type AuthFlow string

const (
	AuthFlowSignup     AuthFlow = "signup"
	AuthFlowInvitation AuthFlow = "invitation"
)

// AuthSettings is a singleton row controlling the registration flow.
type AuthSettings struct {
	AuthFlow  AuthFlow  `json:"auth_flow"`
	UpdatedAt time.Time `json:"updated_at"`
}
