package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		courses = append(courses, *c)
	}
	return courses
}

func (repo *courseRepository) CheckSlugUniqueness(_ context.Context, slug string, excludedCourses ...course.Course) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	exclLen := len(excludedCourses)
	if exclLen > 1 {
		sort.Slice(excludedCourses, func(i, j int) bool { return excludedCourses[i].ID < excludedCourses[j].ID })
	}

	for _, crs := range repo.query() {
		if strings.EqualFold(crs.Slug, slug) && !isExcludedCourse(crs, excludedCourses, exclLen) {
			return course.ErrSlugExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.New().String()
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) QueryCourses(
	_ context.Context,
	filter *course.QueryFilter,
	ordering []core.DBOrdering,
	page core.Pagination,
) ([]course.Course, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := repo.query()
	if filter != nil && !filter.IsEmpty() {
		courses = filterCourses(courses, filter)
	}
	orderCourses(courses, ordering)
	total := len(courses)
	return paginateCourses(courses, page), total, nil
}

func filterCourses(courses []course.Course, filter *course.QueryFilter) []course.Course {
	// courses with search keyword matching Title or Description ?
	if filter.Search != "" {
		var filtered []course.Course
		search := strings.ToLower(filter.Search)
		for _, c := range courses {
			if strings.Contains(strings.ToLower(c.Title), search) ||
				strings.Contains(strings.ToLower(c.Description), search) {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.Category != "" {
		var filtered []course.Course
		for _, c := range courses {
			if strings.EqualFold(c.Category, filter.Category) {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.Level != "" {
		var filtered []course.Course
		for _, c := range courses {
			if strings.EqualFold(c.Level, filter.Level) {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.Language != "" {
		var filtered []course.Course
		for _, c := range courses {
			if strings.EqualFold(c.Language, filter.Language) {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.IsFree != nil {
		var filtered []course.Course
		for _, c := range courses {
			if c.IsFree == *filter.IsFree {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.InstructorID != "" {
		var filtered []course.Course
		for _, c := range courses {
			if c.InstructorID == filter.InstructorID {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	if courses != nil && filter.IsPublished != nil {
		var filtered []course.Course
		for _, c := range courses {
			if c.IsPublished == *filter.IsPublished {
				filtered = append(filtered, c)
			}
		}
		courses = filtered
	}
	return courses
}

func orderCourses(courses []course.Course, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		// default to creation order; map iteration is random
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	for i := len(ordering) - 1; i >= 0; i-- {
		ord := ordering[i]
		sort.SliceStable(courses, func(i, j int) bool {
			a, b := courses[i], courses[j]
			if !ord.Ascending {
				a, b = b, a
			}
			switch ord.Field {
			case "title":
				return a.Title < b.Title
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

func paginateCourses(courses []course.Course, page core.Pagination) []course.Course {
	offset := page.Offset()
	if offset >= len(courses) {
		return []course.Course{}
	}
	end := offset + page.Limit()
	if end > len(courses) {
		end = len(courses)
	}
	return courses[offset:end]
}

func (repo *courseRepository) GetCourse(_ context.Context, filter course.GetFilter) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != "":
		if crs, ok := repo.db.table[filter.ID]; ok {
			return *crs, nil
		}
	case filter.Slug != "":
		for _, crs := range repo.query() {
			if strings.EqualFold(crs.Slug, filter.Slug) {
				return crs, nil
			}
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(_ context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}

func isExcludedCourse(crs course.Course, excludedCourses []course.Course, n int) bool {
	if n <= 0 {
		return false
	}
	idx := sort.Search(n, func(i int) bool { return excludedCourses[i].ID >= crs.ID })
	return idx < n && excludedCourses[idx].ID == crs.ID
}
