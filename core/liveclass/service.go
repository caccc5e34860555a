package liveclass

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound           = errors.New("live class not found")
	ErrAttendanceNotFound = errors.New("attendance not found")
	ErrClassPrivate       = errors.New("this live class is private")
	ErrClassCancelled     = errors.New("this live class has been cancelled")
	ErrClassCompleted     = errors.New("this live class has already been completed")
	ErrClassNotStarted    = errors.New("this live class has not started yet")
	ErrClassEnded         = errors.New("this live class has already ended")
	ErrClassFull          = errors.New("this live class is full")
	ErrAttendanceClosed   = errors.New("attendance already closed")
)

type (
	Repository interface {
		CreateLiveClass(ctx context.Context, lc LiveClass) (LiveClass, error)
		// QueryLiveClasses applies AND operation on available QueryFilter fields and
		// returns the requested page along with the total match count.
		QueryLiveClasses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]LiveClass, int, error)
		GetLiveClass(ctx context.Context, filter GetFilter) (LiveClass, error)
		UpdateLiveClass(ctx context.Context, lc LiveClass) (LiveClass, error)
		// MarkLiveClassStarted transitions a scheduled class to live as a single
		// conditional update. It reports whether the transition happened.
		MarkLiveClassStarted(ctx context.Context, id string) (bool, error)
		GetAttendance(ctx context.Context, userID, liveClassID string) (Attendance, error)
		CountOpenAttendances(ctx context.Context, liveClassID string) (int, error)
		// UpsertAttendance creates the attendance row keyed by (user, live class)
		// or refreshes its join time, clearing any leave time and duration.
		UpsertAttendance(ctx context.Context, att Attendance) (Attendance, error)
		UpdateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		// QueryClassAttendances returns all attendance rows for a class, newest join first.
		QueryClassAttendances(ctx context.Context, liveClassID string) ([]Attendance, error)
	}

	Service interface {
		Create(ctx context.Context, nlc NewLiveClass, instructorID string) (LiveClass, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]LiveClass, core.PageMeta, error)
		GetByID(ctx context.Context, id string) (LiveClass, error)
		Cancel(ctx context.Context, id string) (LiveClass, error)
		Join(ctx context.Context, id, userID string) (Attendance, error)
		Leave(ctx context.Context, id, userID string) (Attendance, error)
		Roster(ctx context.Context, id string) ([]Attendance, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nlc NewLiveClass, instructorID string) (LiveClass, error) {
	now := time.Now().UTC()
	lc := LiveClass{
		CourseID:     nlc.CourseID,
		InstructorID: instructorID,
		Title:        nlc.Title,
		Status:       StatusScheduled,
		IsPrivate:    nlc.IsPrivate,
		Capacity:     null.IntFromPtr(nlc.Capacity),
		StartTime:    nlc.StartTime.UTC(),
		EndTime:      nlc.EndTime.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateLiveClass(ctx, lc)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]LiveClass, core.PageMeta, error) {
	page.Clean()
	classes, total, err := svc.repo.QueryLiveClasses(ctx, filter, ordering, page)
	if err != nil {
		return nil, core.PageMeta{}, err
	}
	return classes, core.NewPageMeta(page, total), nil
}

func (svc *service) GetByID(ctx context.Context, id string) (LiveClass, error) {
	return svc.repo.GetLiveClass(ctx, GetFilter{ID: id})
}

func (svc *service) Cancel(ctx context.Context, id string) (LiveClass, error) {
	lc, err := svc.repo.GetLiveClass(ctx, GetFilter{ID: id})
	if err != nil {
		return LiveClass{}, err
	}
	switch lc.Status {
	case StatusCancelled:
		return LiveClass{}, ErrClassCancelled
	case StatusCompleted:
		return LiveClass{}, ErrClassCompleted
	}

	lc.Status = StatusCancelled
	lc.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLiveClass(ctx, lc)
}

// Join admits a user into a live class. Preconditions are checked in order,
// each short-circuiting with a distinct error: the class must exist, be
// joinable by this user, not be cancelled or completed, and the current time
// must fall within the join window. When a capacity limit is set, the open
// attendee count must be below it. Rejoining with an open attendance is
// idempotent and performs no write.
func (svc *service) Join(ctx context.Context, id, userID string) (Attendance, error) {
	lc, err := svc.repo.GetLiveClass(ctx, GetFilter{ID: id})
	if err != nil {
		return Attendance{}, err
	}

	if lc.IsPrivate && userID != lc.InstructorID {
		return Attendance{}, ErrClassPrivate
	}
	switch lc.Status {
	case StatusCancelled:
		return Attendance{}, ErrClassCancelled
	case StatusCompleted:
		return Attendance{}, ErrClassCompleted
	}

	now := NowFunc().UTC()
	if now.Before(lc.JoinOpensAt()) {
		return Attendance{}, ErrClassNotStarted
	}
	if now.After(lc.JoinClosesAt()) {
		return Attendance{}, ErrClassEnded
	}

	att, err := svc.repo.GetAttendance(ctx, userID, lc.ID)
	if err != nil && err != ErrAttendanceNotFound {
		return Attendance{}, err
	}
	if err == nil && att.IsOpen() {
		return att, nil
	}

	// an open attendee does not increase the count; capacity only gates new admissions
	if lc.Capacity.Valid {
		count, err := svc.repo.CountOpenAttendances(ctx, lc.ID)
		if err != nil {
			return Attendance{}, err
		}
		if count >= lc.Capacity.Int {
			return Attendance{}, ErrClassFull
		}
	}

	att, err = svc.repo.UpsertAttendance(ctx, Attendance{
		UserID:      userID,
		LiveClassID: lc.ID,
		JoinedAt:    now,
	})
	if err != nil {
		return Attendance{}, err
	}

	if lc.Status == StatusScheduled && !now.Before(lc.StartTime) {
		if _, err = svc.repo.MarkLiveClassStarted(ctx, lc.ID); err != nil {
			return Attendance{}, err
		}
	}
	return att, nil
}

// Leave closes the user's open attendance, recording the leave time and the
// elapsed whole seconds since join.
func (svc *service) Leave(ctx context.Context, id, userID string) (Attendance, error) {
	att, err := svc.repo.GetAttendance(ctx, userID, id)
	if err != nil {
		return Attendance{}, err
	}
	if !att.IsOpen() {
		return Attendance{}, ErrAttendanceClosed
	}

	now := NowFunc().UTC()
	secs := int(now.Sub(att.JoinedAt).Seconds())
	if secs < 0 {
		secs = 0
	}
	att.LeftAt = null.TimeFrom(now)
	att.Duration = null.IntFrom(secs)
	att.UpdatedAt = now
	return svc.repo.UpdateAttendance(ctx, att)
}

func (svc *service) Roster(ctx context.Context, id string) ([]Attendance, error) {
	if _, err := svc.repo.GetLiveClass(ctx, GetFilter{ID: id}); err != nil {
		return nil, err
	}
	return svc.repo.QueryClassAttendances(ctx, id)
}
