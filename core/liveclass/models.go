package liveclass

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Statuses
const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Joining opens JoinEarlyWindow before the scheduled start and closes
// JoinLateWindow after the scheduled end, both bounds inclusive.
const (
	JoinEarlyWindow = 15 * time.Minute
	JoinLateWindow  = 2 * time.Hour
)

var NowFunc = time.Now // mockable

var AllStatuses = []string{StatusScheduled, StatusLive, StatusCompleted, StatusCancelled}

type LiveClass struct {
	ID           string    `json:"id"`
	CourseID     string    `json:"course_id"`
	InstructorID string    `json:"instructor_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	IsPrivate    bool      `json:"is_private"`
	Capacity     null.Int  `json:"capacity"`   // null = unlimited
	StartTime    time.Time `json:"start_time"` // UTC
	EndTime      time.Time `json:"end_time"`   // UTC
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (lc *LiveClass) JoinOpensAt() time.Time  { return lc.StartTime.Add(-JoinEarlyWindow) }
func (lc *LiveClass) JoinClosesAt() time.Time { return lc.EndTime.Add(JoinLateWindow) }

// Attendance tracks a user's presence in a live class. A row is keyed by
// (user, live class); it is open while LeftAt is unset.
type Attendance struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	LiveClassID string    `json:"live_class_id"`
	JoinedAt    time.Time `json:"joined_at"` // UTC
	LeftAt      null.Time `json:"left_at"`   // UTC
	Duration    null.Int  `json:"duration"`  // whole seconds
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *Attendance) IsOpen() bool { return !a.LeftAt.Valid }

// NewLiveClass contains information needed to schedule a new LiveClass.
type NewLiveClass struct {
	CourseID  string    `json:"course_id" validate:"required"`
	Title     string    `json:"title" validate:"required,min=3"`
	IsPrivate bool      `json:"is_private"`
	Capacity  *int      `json:"capacity" validate:"omitempty,min=1"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

func (nlc *NewLiveClass) Validate(validate *validator.Validate) error {
	nlc.Title = core.CleanString(nlc.Title)
	return validate.Struct(nlc)
}

type QueryFilter struct {
	CourseID     string    `query:"course_id"`
	InstructorID string    `query:"instructor_id"`
	Status       string    `query:"status"`
	IsPrivate    *bool     `query:"is_private"`
	From         time.Time `query:"from"`
	To           time.Time `query:"to"`

	// VisibleToID restricts results to public classes plus those owned by
	// this user. Not bindable.
	VisibleToID string `query:"-" json:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.CourseID == "" && qf.InstructorID == "" && qf.Status == "" && qf.IsPrivate == nil &&
		qf.From.IsZero() && qf.To.IsZero() && qf.VisibleToID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

// GetFilter selects a single LiveClass.
type GetFilter struct {
	ID string
}
