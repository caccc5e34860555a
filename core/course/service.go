package course

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound   = errors.New("course not found")
	ErrSlugExists = errors.New("a course with this slug already exists")
)

type (
	Repository interface {
		CheckSlugUniqueness(ctx context.Context, slug string, excludedCourses ...Course) error
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields and
		// returns the requested page along with the total match count.
		// QueryFilter.Search does a case-insensitive match on one of Course.Title or Course.Description.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, int, error)
		GetCourse(ctx context.Context, filter GetFilter) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) (int, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewCourse, instructorID string) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, core.PageMeta, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetBySlug(ctx context.Context, slug string) (Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nc NewCourse, instructorID string) (Course, error) {
	if err := svc.repo.CheckSlugUniqueness(ctx, nc.Slug); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs := Course{
		Title:        nc.Title,
		Slug:         nc.Slug,
		Description:  nc.Description,
		Category:     nc.Category,
		Level:        nc.Level,
		Language:     nc.Language,
		IsFree:       nc.IsFree,
		InstructorID: instructorID,
		IsPublished:  nc.IsPublished,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Course, core.PageMeta, error) {
	page.Clean()
	courses, total, err := svc.repo.QueryCourses(ctx, filter, ordering, page)
	if err != nil {
		return nil, core.PageMeta{}, err
	}
	return courses, core.NewPageMeta(page, total), nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{ID: id})
}

func (svc *service) GetBySlug(ctx context.Context, slug string) (Course, error) {
	return svc.repo.GetCourse(ctx, GetFilter{Slug: core.CleanString(slug, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, GetFilter{ID: id})
	if err != nil {
		return Course{}, err
	}

	crs.Title = uc.Title
	crs.Description = uc.Description
	crs.Category = uc.Category
	crs.Level = uc.Level
	crs.Language = uc.Language
	if uc.IsFree != nil {
		crs.IsFree = *uc.IsFree
	}
	if uc.IsPublished != nil {
		crs.IsPublished = *uc.IsPublished
	}
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteCoursesByID(ctx, ids...)
	return err
}
