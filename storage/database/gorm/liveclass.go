package gormrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/liveclass"
)

type liveClassRow struct {
	ID           string    `gorm:"column:id;primaryKey"`
	CourseID     string    `gorm:"column:course_id"`
	InstructorID string    `gorm:"column:instructor_id"`
	Title        string    `gorm:"column:title"`
	Status       string    `gorm:"column:status"`
	IsPrivate    bool      `gorm:"column:is_private"`
	Capacity     null.Int  `gorm:"column:capacity"`
	StartTime    time.Time `gorm:"column:start_time"`
	EndTime      time.Time `gorm:"column:end_time"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (liveClassRow) TableName() string { return "live_classes" }

type attendanceRow struct {
	ID          string    `gorm:"column:id;primaryKey"`
	UserID      string    `gorm:"column:user_id"`
	LiveClassID string    `gorm:"column:live_class_id"`
	JoinedAt    time.Time `gorm:"column:joined_at"`
	LeftAt      null.Time `gorm:"column:left_at"`
	Duration    null.Int  `gorm:"column:duration"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (attendanceRow) TableName() string { return "attendances" }

type liveClassRepository struct {
	db *gorm.DB
}

var _ liveclass.Repository = (*liveClassRepository)(nil) // interface compliance check

func NewLiveClassRepository(db *gorm.DB) *liveClassRepository {
	return &liveClassRepository{db: db}
}

func (repo liveClassRepository) toRow(lc liveclass.LiveClass) *liveClassRow {
	row := &liveClassRow{
		CourseID:     lc.CourseID,
		InstructorID: lc.InstructorID,
		Title:        lc.Title,
		Status:       lc.Status,
		IsPrivate:    lc.IsPrivate,
		Capacity:     lc.Capacity,
		StartTime:    lc.StartTime.UTC(),
		EndTime:      lc.EndTime.UTC(),
		CreatedAt:    lc.CreatedAt.UTC(),
		UpdatedAt:    lc.UpdatedAt.UTC(),
	}
	if lc.ID != "" {
		row.ID = lc.ID
	}
	return row
}

func (repo liveClassRepository) toLiveClass(row *liveClassRow) liveclass.LiveClass {
	if row == nil {
		return liveclass.LiveClass{}
	}
	return liveclass.LiveClass{
		ID:           row.ID,
		CourseID:     row.CourseID,
		InstructorID: row.InstructorID,
		Title:        row.Title,
		Status:       row.Status,
		IsPrivate:    row.IsPrivate,
		Capacity:     row.Capacity,
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo liveClassRepository) toAttRow(att liveclass.Attendance) *attendanceRow {
	row := &attendanceRow{
		UserID:      att.UserID,
		LiveClassID: att.LiveClassID,
		JoinedAt:    att.JoinedAt.UTC(),
		LeftAt:      att.LeftAt,
		Duration:    att.Duration,
		CreatedAt:   att.CreatedAt.UTC(),
		UpdatedAt:   att.UpdatedAt.UTC(),
	}
	if att.ID != "" {
		row.ID = att.ID
	}
	return row
}

func (repo liveClassRepository) toAttendance(row *attendanceRow) liveclass.Attendance {
	if row == nil {
		return liveclass.Attendance{}
	}
	return liveclass.Attendance{
		ID:          row.ID,
		UserID:      row.UserID,
		LiveClassID: row.LiveClassID,
		JoinedAt:    row.JoinedAt,
		LeftAt:      row.LeftAt,
		Duration:    row.Duration,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// trapNoRowsErr maps gorm's "record not found" err to the given sentinel
func (repo liveClassRepository) trapNoRowsErr(err, sentinel error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

func (repo liveClassRepository) CreateLiveClass(ctx context.Context, lc liveclass.LiveClass) (liveclass.LiveClass, error) {
	lc.ID = uuid.New().String()
	row := repo.toRow(lc)
	if err := repo.db.WithContext(ctx).Create(row).Error; err != nil {
		return liveclass.LiveClass{}, errors.Wrap(err, "inserting live class")
	}
	return repo.toLiveClass(row), nil
}

func (repo liveClassRepository) filtered(ctx context.Context, filter *liveclass.QueryFilter) *gorm.DB {
	q := repo.db.WithContext(ctx).Model(&liveClassRow{})
	if filter == nil {
		return q
	}

	if filter.CourseID != "" {
		q = q.Where("course_id = ?", filter.CourseID)
	}
	if filter.InstructorID != "" {
		q = q.Where("instructor_id = ?", filter.InstructorID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.IsPrivate != nil {
		q = q.Where("is_private = ?", *filter.IsPrivate)
	}
	if !filter.From.IsZero() {
		q = q.Where("start_time >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("start_time <= ?", filter.To.UTC())
	}
	if filter.VisibleToID != "" {
		q = q.Where("is_private = FALSE OR instructor_id = ?", filter.VisibleToID)
	}
	return q
}

func (repo liveClassRepository) QueryLiveClasses(ctx context.Context, filter *liveclass.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]liveclass.LiveClass, int, error) {
	var total int64
	if err := repo.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting live classes")
	}

	q := repo.filtered(ctx, filter)
	if ordering != nil {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q = q.Order(strings.Join(orderList, ", "))
	}

	var rows []*liveClassRow
	if err := q.Limit(page.Limit()).Offset(page.Offset()).Find(&rows).Error; err != nil {
		return nil, 0, errors.Wrap(err, "querying live classes")
	}

	classes := make([]liveclass.LiveClass, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, repo.toLiveClass(row))
	}
	return classes, int(total), nil
}

func (repo liveClassRepository) GetLiveClass(ctx context.Context, filter liveclass.GetFilter) (liveclass.LiveClass, error) {
	if filter.ID == "" {
		return liveclass.LiveClass{}, liveclass.ErrNotFound
	}
	if _, err := uuid.Parse(filter.ID); err != nil {
		return liveclass.LiveClass{}, liveclass.ErrNotFound
	}

	var row liveClassRow
	if err := repo.db.WithContext(ctx).Where("id = ?", filter.ID).First(&row).Error; err != nil {
		return liveclass.LiveClass{}, repo.trapNoRowsErr(err, liveclass.ErrNotFound, "finding live class")
	}
	return repo.toLiveClass(&row), nil
}

func (repo liveClassRepository) UpdateLiveClass(ctx context.Context, lc liveclass.LiveClass) (liveclass.LiveClass, error) {
	row := repo.toRow(lc)
	if err := repo.db.WithContext(ctx).Save(row).Error; err != nil {
		return liveclass.LiveClass{}, errors.Wrap(err, "updating live class")
	}
	return repo.toLiveClass(row), nil
}

func (repo liveClassRepository) MarkLiveClassStarted(ctx context.Context, id string) (bool, error) {
	res := repo.db.WithContext(ctx).Model(&liveClassRow{}).
		Where("id = ? AND status = ?", id, liveclass.StatusScheduled).
		Updates(map[string]interface{}{
			"status":     liveclass.StatusLive,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "marking live class started")
	}
	return res.RowsAffected > 0, nil
}

func (repo liveClassRepository) GetAttendance(ctx context.Context, userID, liveClassID string) (liveclass.Attendance, error) {
	var row attendanceRow
	err := repo.db.WithContext(ctx).
		Where("user_id = ? AND live_class_id = ?", userID, liveClassID).
		First(&row).Error
	if err != nil {
		return liveclass.Attendance{}, repo.trapNoRowsErr(err, liveclass.ErrAttendanceNotFound, "finding attendance")
	}
	return repo.toAttendance(&row), nil
}

func (repo liveClassRepository) CountOpenAttendances(ctx context.Context, liveClassID string) (int, error) {
	var count int64
	err := repo.db.WithContext(ctx).Model(&attendanceRow{}).
		Where("live_class_id = ? AND left_at IS NULL", liveClassID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "counting open attendances")
	}
	return int(count), nil
}

func (repo liveClassRepository) UpsertAttendance(ctx context.Context, att liveclass.Attendance) (liveclass.Attendance, error) {
	now := time.Now().UTC()
	att.ID = uuid.New().String()
	att.CreatedAt = now
	att.UpdatedAt = now
	row := repo.toAttRow(att)

	// one row per (user, live class); a conflicting join refreshes the row
	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "live_class_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"joined_at":  row.JoinedAt,
			"left_at":    nil,
			"duration":   nil,
			"updated_at": now,
		}),
	}).Create(row).Error
	if err != nil {
		return liveclass.Attendance{}, errors.Wrap(err, "upserting attendance")
	}

	// re-fetch: on conflict the generated ID does not match the stored row
	return repo.GetAttendance(ctx, att.UserID, att.LiveClassID)
}

func (repo liveClassRepository) UpdateAttendance(ctx context.Context, att liveclass.Attendance) (liveclass.Attendance, error) {
	row := repo.toAttRow(att)
	if err := repo.db.WithContext(ctx).Save(row).Error; err != nil {
		return liveclass.Attendance{}, errors.Wrap(err, "updating attendance")
	}
	return repo.toAttendance(row), nil
}

func (repo liveClassRepository) QueryClassAttendances(ctx context.Context, liveClassID string) ([]liveclass.Attendance, error) {
	var rows []*attendanceRow
	err := repo.db.WithContext(ctx).
		Where("live_class_id = ?", liveClassID).
		Order("joined_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "querying attendances")
	}

	atts := make([]liveclass.Attendance, 0, len(rows))
	for _, row := range rows {
		atts = append(atts, repo.toAttendance(row))
	}
	return atts, nil
}
