package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/liveclass"
)

type liveClassRepository struct {
	classes *liveClassTable
	atts    *attendanceTable
}

var _ liveclass.Repository = (*liveClassRepository)(nil) // interface compliance check

func NewLiveClassRepository(db *DB) liveclass.Repository {
	return &liveClassRepository{classes: db.liveClass, atts: db.attendance}
}

func (repo *liveClassRepository) query() []liveclass.LiveClass {
	classes := make([]liveclass.LiveClass, 0, len(repo.classes.table))
	for _, lc := range repo.classes.table {
		classes = append(classes, *lc)
	}
	return classes
}

func (repo *liveClassRepository) CreateLiveClass(_ context.Context, lc liveclass.LiveClass) (liveclass.LiveClass, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	lc.ID = uuid.New().String()
	repo.classes.table[lc.ID] = &lc
	return lc, nil
}

func (repo *liveClassRepository) QueryLiveClasses(
	_ context.Context,
	filter *liveclass.QueryFilter,
	ordering []core.DBOrdering,
	page core.Pagination,
) ([]liveclass.LiveClass, int, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	classes := repo.query()
	if filter != nil && !filter.IsEmpty() {
		classes = filterLiveClasses(classes, filter)
	}
	orderLiveClasses(classes, ordering)
	total := len(classes)
	return paginateLiveClasses(classes, page), total, nil
}

func filterLiveClasses(classes []liveclass.LiveClass, filter *liveclass.QueryFilter) []liveclass.LiveClass {
	if filter.CourseID != "" {
		var filtered []liveclass.LiveClass
		for _, lc := range classes {
			if lc.CourseID == filter.CourseID {
				filtered = append(filtered, lc)
			}
		}
		classes = filtered
	}
	if classes != nil && filter.InstructorID != "" {
		var filtered []liveclass.LiveClass
		for _, lc := range classes {
			if lc.InstructorID == filter.InstructorID {
				filtered = append(filtered, lc)
			}
		}
		classes = filtered
	}
	if classes != nil && filter.IsPrivate != nil {
		var filtered []liveclass.LiveClass
		for _, lc := range classes {
			if lc.IsPrivate == *filter.IsPrivate {
				filtered = append(filtered, lc)
			}
		}
		classes = filtered
	}
	if classes != nil && filter.VisibleToID != "" {
		var filtered []liveclass.LiveClass
		for _, lc := range classes {
			if !lc.IsPrivate || lc.InstructorID == filter.VisibleToID {
				filtered = append(filtered, lc)
			}
		}
		classes = filtered
	}
	if classes != nil && filter.Status != "" {
		var filtered []liveclass.LiveClass
		for _, lc := range classes {
			if lc.Status == filter.Status {
				filtered = append(filtered, lc)
			}
		}
		classes = filtered
	}
	if classes != nil && !filter.From.IsZero() {
		var filtered []liveclass.LiveClass
		timeUTC := filter.From.UTC()
		for _, lc := range classes {
			if lc.StartTime.Equal(timeUTC) || lc.StartTime.After(timeUTC) {
				filtered = append(filtered, lc)
			}
		}
		classes = filtered
	}
	if classes != nil && !filter.To.IsZero() {
		var filtered []liveclass.LiveClass
		timeUTC := filter.To.UTC()
		for _, lc := range classes {
			if lc.StartTime.Before(timeUTC) || lc.StartTime.Equal(timeUTC) {
				filtered = append(filtered, lc)
			}
		}
		classes = filtered
	}
	return classes
}

func orderLiveClasses(classes []liveclass.LiveClass, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		// default to creation order; map iteration is random
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		sort.SliceStable(classes, func(i, j int) bool {
			a, b := classes[i], classes[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "start_time":
				if a.StartTime.Equal(b.StartTime) {
					return a.ID < b.ID
				}
				return a.StartTime.Before(b.StartTime)
			case "created_at":
				if a.CreatedAt.Equal(b.CreatedAt) {
					return a.ID < b.ID
				}
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return false
		})
	}
}

func paginateLiveClasses(classes []liveclass.LiveClass, page core.Pagination) []liveclass.LiveClass {
	offset := page.Offset()
	if offset >= len(classes) {
		return []liveclass.LiveClass{}
	}
	end := offset + page.Limit()
	if end > len(classes) {
		end = len(classes)
	}
	return classes[offset:end]
}

func (repo *liveClassRepository) GetLiveClass(_ context.Context, filter liveclass.GetFilter) (liveclass.LiveClass, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	if filter.ID != "" {
		if lc, ok := repo.classes.table[filter.ID]; ok {
			return *lc, nil
		}
	}
	return liveclass.LiveClass{}, liveclass.ErrNotFound
}

func (repo *liveClassRepository) UpdateLiveClass(_ context.Context, lc liveclass.LiveClass) (liveclass.LiveClass, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	if _, ok := repo.classes.table[lc.ID]; !ok {
		return liveclass.LiveClass{}, liveclass.ErrNotFound
	}
	repo.classes.table[lc.ID] = &lc
	return lc, nil
}

func (repo *liveClassRepository) MarkLiveClassStarted(_ context.Context, id string) (bool, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	lc, ok := repo.classes.table[id]
	if !ok || lc.Status != liveclass.StatusScheduled {
		return false, nil
	}
	lc.Status = liveclass.StatusLive
	lc.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (repo *liveClassRepository) GetAttendance(_ context.Context, userID, liveClassID string) (liveclass.Attendance, error) {
	repo.atts.RLock()
	defer repo.atts.RUnlock()

	if att, ok := repo.atts.table[attKey(userID, liveClassID)]; ok {
		return *att, nil
	}
	return liveclass.Attendance{}, liveclass.ErrAttendanceNotFound
}

func (repo *liveClassRepository) CountOpenAttendances(_ context.Context, liveClassID string) (int, error) {
	repo.atts.RLock()
	defer repo.atts.RUnlock()

	var n int
	for _, att := range repo.atts.table {
		if att.LiveClassID == liveClassID && att.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (repo *liveClassRepository) UpsertAttendance(_ context.Context, att liveclass.Attendance) (liveclass.Attendance, error) {
	repo.atts.Lock()
	defer repo.atts.Unlock()

	now := time.Now().UTC()
	key := attKey(att.UserID, att.LiveClassID)
	if orig, ok := repo.atts.table[key]; ok {
		// a conflicting join refreshes the row
		orig.JoinedAt = att.JoinedAt
		orig.LeftAt = null.Time{}
		orig.Duration = null.Int{}
		orig.UpdatedAt = now
		return *orig, nil
	}

	att.ID = uuid.New().String()
	att.CreatedAt = now
	att.UpdatedAt = now
	repo.atts.table[key] = &att
	return att, nil
}

func (repo *liveClassRepository) UpdateAttendance(_ context.Context, att liveclass.Attendance) (liveclass.Attendance, error) {
	repo.atts.Lock()
	defer repo.atts.Unlock()

	key := attKey(att.UserID, att.LiveClassID)
	if _, ok := repo.atts.table[key]; !ok {
		return liveclass.Attendance{}, liveclass.ErrAttendanceNotFound
	}
	repo.atts.table[key] = &att
	return att, nil
}

func (repo *liveClassRepository) QueryClassAttendances(_ context.Context, liveClassID string) ([]liveclass.Attendance, error) {
	repo.atts.RLock()
	defer repo.atts.RUnlock()

	atts := make([]liveclass.Attendance, 0)
	for _, att := range repo.atts.table {
		if att.LiveClassID == liveClassID {
			atts = append(atts, *att)
		}
	}
	// newest join first
	sort.SliceStable(atts, func(i, j int) bool {
		if atts[i].JoinedAt.Equal(atts[j].JoinedAt) {
			return atts[i].ID > atts[j].ID
		}
		return atts[i].JoinedAt.After(atts[j].JoinedAt)
	})
	return atts, nil
}

func attKey(userID, liveClassID string) string {
	return userID + "/" + liveClassID
}
