package gormrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRow struct {
	ID           string      `gorm:"column:id;primaryKey"`
	Title        string      `gorm:"column:title"`
	Slug         string      `gorm:"column:slug"`
	Description  null.String `gorm:"column:description"`
	Category     string      `gorm:"column:category"`
	Level        string      `gorm:"column:level"`
	Language     string      `gorm:"column:language"`
	IsFree       bool        `gorm:"column:is_free"`
	InstructorID string      `gorm:"column:instructor_id"`
	IsPublished  bool        `gorm:"column:is_published"`
	CreatedAt    time.Time   `gorm:"column:created_at"`
	UpdatedAt    time.Time   `gorm:"column:updated_at"`
}

func (courseRow) TableName() string { return "courses" }

type courseRepository struct {
	db *gorm.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *gorm.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) toRow(crs course.Course) *courseRow {
	row := &courseRow{
		Title:        crs.Title,
		Slug:         crs.Slug,
		Description:  null.NewString(crs.Description, crs.Description != ""),
		Category:     crs.Category,
		Level:        crs.Level,
		Language:     crs.Language,
		IsFree:       crs.IsFree,
		InstructorID: crs.InstructorID,
		IsPublished:  crs.IsPublished,
		CreatedAt:    crs.CreatedAt.UTC(),
		UpdatedAt:    crs.UpdatedAt.UTC(),
	}
	if crs.ID != "" {
		row.ID = crs.ID
	}
	return row
}

func (repo courseRepository) toCourse(row *courseRow) course.Course {
	if row == nil {
		return course.Course{}
	}
	return course.Course{
		ID:           row.ID,
		Title:        row.Title,
		Slug:         row.Slug,
		Description:  row.Description.String,
		Category:     row.Category,
		Level:        row.Level,
		Language:     row.Language,
		IsFree:       row.IsFree,
		InstructorID: row.InstructorID,
		IsPublished:  row.IsPublished,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo courseRepository) toCourseSlice(rows []*courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.toCourse(row))
	}
	return courses
}

// trapNoRowsErr maps gorm's "record not found" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CheckSlugUniqueness(ctx context.Context, slug string, excludedCourses ...course.Course) error {
	q := repo.db.WithContext(ctx).Model(&courseRow{}).Where("LOWER(slug) = LOWER(?)", slug)
	if len(excludedCourses) > 0 {
		ids := make([]string, 0, len(excludedCourses))
		for _, c := range excludedCourses {
			ids = append(ids, c.ID)
		}
		q = q.Where("id NOT IN ?", ids)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return errors.Wrap(err, "checking slug uniqueness")
	}
	if count > 0 {
		return course.ErrSlugExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	row := repo.toRow(crs)
	if err := repo.db.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrSlugExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.toCourse(row), nil
}

func (repo courseRepository) filtered(ctx context.Context, filter *course.QueryFilter) *gorm.DB {
	q := repo.db.WithContext(ctx).Model(&courseRow{})
	if filter == nil {
		return q
	}

	// courses with Title or Description matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		q = q.Where("title ILIKE ? OR description ILIKE ?", val, val)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Level != "" {
		q = q.Where("level = ?", filter.Level)
	}
	if filter.Language != "" {
		q = q.Where("language = ?", filter.Language)
	}
	if filter.IsFree != nil {
		q = q.Where("is_free = ?", *filter.IsFree)
	}
	if filter.InstructorID != "" {
		q = q.Where("instructor_id = ?", filter.InstructorID)
	}
	if filter.IsPublished != nil {
		q = q.Where("is_published = ?", *filter.IsPublished)
	}
	return q
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]course.Course, int, error) {
	var total int64
	if err := repo.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "counting courses")
	}

	q := repo.filtered(ctx, filter)
	if ordering != nil {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q = q.Order(strings.Join(orderList, ", "))
	}

	var rows []*courseRow
	if err := q.Limit(page.Limit()).Offset(page.Offset()).Find(&rows).Error; err != nil {
		return nil, 0, errors.Wrap(err, "querying courses")
	}
	return repo.toCourseSlice(rows), int(total), nil
}

func (repo courseRepository) GetCourse(ctx context.Context, filter course.GetFilter) (course.Course, error) {
	q := repo.db.WithContext(ctx)

	if filter.ID != "" {
		if _, err := uuid.Parse(filter.ID); err != nil {
			return course.Course{}, course.ErrNotFound
		}
		q = q.Where("id = ?", filter.ID)
	} else if filter.Slug != "" {
		q = q.Where("LOWER(slug) = LOWER(?)", filter.Slug)
	} else {
		return course.Course{}, course.ErrNotFound
	}

	var row courseRow
	if err := q.First(&row).Error; err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "finding course")
	}
	return repo.toCourse(&row), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	row := repo.toRow(crs)
	if err := repo.db.WithContext(ctx).Save(row).Error; err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrSlugExists
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return repo.toCourse(row), nil
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	res := repo.db.WithContext(ctx).Where("id IN ?", ids).Delete(&courseRow{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "deleting courses")
	}
	return int(res.RowsAffected), nil
}
