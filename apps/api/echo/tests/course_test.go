package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/tests"
)

type courseResponse struct {
	Data course.Course `json:"data"`
}

func Test_courseApi_query(t *testing.T) {
	testutil.ResetDB(t, db)

	instructor1 := testutil.CreateUser(t, usrRepo, "Teacher K", "teachk1", "teachk@test.cd", "", []string{user.RoleInstructor}, true, true)
	instructor2 := testutil.CreateUser(t, usrRepo, "Teacher B", "teachb1", "teachb@test.cd", "", []string{user.RoleInstructor}, true, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true, true)

	now := time.Now()
	goBasics := testutil.CreateCourse(t, crsRepo,
		"Go Basics", "Learn the Go programming language from scratch.", "programming", course.LevelBeginner,
		true, true, instructor1.ID, now.Add(1*time.Hour))
	goWeb := testutil.CreateCourse(t, crsRepo,
		"Advanced Go Web Services", "Build production web services.", "programming", course.LevelAdvanced,
		false, true, instructor1.ID, now.Add(2*time.Hour))
	algebra := testutil.CreateCourse(t, crsRepo,
		"Algebra Fundamentals", "Equations and inequalities.", "math", course.LevelBeginner,
		false, true, instructor2.ID, now.Add(3*time.Hour))
	draft := testutil.CreateCourse(t, crsRepo,
		"Biology Draft", "A work in progress.", "science", course.LevelIntermediate,
		false, false, instructor2.ID, now.Add(4*time.Hour))

	path := func(params url.Values) string {
		return "/v1/courses?" + params.Encode()
	}
	meta := func(page, size, total, pages int) core.PageMeta {
		return core.PageMeta{Page: page, PageSize: size, Total: total, TotalPages: pages}
	}

	studentToken := getToken(t, student)
	empty := pagedResponse(t, meta(1, 20, 0, 0), []course.Course{})

	tests := []httpTest{
		// visibility
		{
			name: "anonymous only sees published", path: "/v1/courses",
			wantData: pagedResponse(t, meta(1, 20, 3, 1), []course.Course{goBasics, goWeb, algebra}),
		},
		{
			// the forced is_published filter cannot be overridden from the query string
			name: "anonymous cannot unhide drafts", path: path(url.Values{"is_published": {"false"}}),
			wantData: pagedResponse(t, meta(1, 20, 3, 1), []course.Course{goBasics, goWeb, algebra}),
		},
		{
			name: "signed-in caller sees drafts", path: "/v1/courses", token: studentToken,
			wantData: pagedResponse(t, meta(1, 20, 4, 1), []course.Course{goBasics, goWeb, algebra, draft}),
		},
		{
			name: "is_published=false", path: path(url.Values{"is_published": {"false"}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, 20, 1, 1), []course.Course{draft}),
		},
		// filtering
		{
			name: "search matches title", path: path(url.Values{"search": {"go"}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, 20, 2, 1), []course.Course{goBasics, goWeb}),
		},
		{
			name: "search matches description", path: path(url.Values{"search": {"equations"}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, 20, 1, 1), []course.Course{algebra}),
		},
		{name: "search (unknown)", path: path(url.Values{"search": {"lol"}}), token: studentToken, wantData: empty},
		{
			name: "category=math", path: path(url.Values{"category": {"math"}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, 20, 1, 1), []course.Course{algebra}),
		},
		{
			name: "level=beginner", path: path(url.Values{"level": {"beginner"}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, 20, 2, 1), []course.Course{goBasics, algebra}),
		},
		{
			name: "is_free=true", path: path(url.Values{"is_free": {"true"}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, 20, 1, 1), []course.Course{goBasics}),
		},
		{
			name: "instructor_id", path: path(url.Values{"instructor_id": {instructor2.ID}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, 20, 2, 1), []course.Course{algebra, draft}),
		},
		// ordering
		{
			name: "order by title", path: path(url.Values{"ordering": {"title"}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, 20, 4, 1), []course.Course{goWeb, algebra, draft, goBasics}),
		},
		{
			name: "order by -created_at", path: path(url.Values{"ordering": {"-created_at"}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, 20, 4, 1), []course.Course{draft, algebra, goWeb, goBasics}),
		},
		// filtering & ordering
		{
			name: "filtering & ordering", path: path(url.Values{"category": {"programming"}, "ordering": {"title"}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, 20, 2, 1), []course.Course{goWeb, goBasics}),
		},
		// pagination
		{
			name: "first page", path: path(url.Values{"page_size": {"2"}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, 2, 4, 2), []course.Course{goBasics, goWeb}),
		},
		{
			name: "second page", path: path(url.Values{"page": {"2"}, "page_size": {"2"}}), token: studentToken,
			wantData: pagedResponse(t, meta(2, 2, 4, 2), []course.Course{algebra, draft}),
		},
		{
			name: "page beyond the set is empty", path: path(url.Values{"page": {"5"}, "page_size": {"2"}}), token: studentToken,
			wantData: pagedResponse(t, meta(5, 2, 4, 2), []course.Course{}),
		},
		{
			name: "page_size is capped", path: path(url.Values{"page_size": {strconv.Itoa(core.MaxPageSize * 5)}}), token: studentToken,
			wantData: pagedResponse(t, meta(1, core.MaxPageSize, 4, 1), []course.Course{goBasics, goWeb, algebra, draft}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.wantCode = http.StatusOK

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_retrieve(t *testing.T) {
	testutil.ResetDB(t, db)

	instructor := testutil.CreateUser(t, usrRepo, "Teacher K", "teachk1", "teachk@test.cd", "", []string{user.RoleInstructor}, true, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true, true)

	goBasics := testutil.CreateCourse(t, crsRepo,
		"Go Basics", "Learn the Go programming language from scratch.", "programming", course.LevelBeginner,
		true, true, instructor.ID)
	draft := testutil.CreateCourse(t, crsRepo,
		"Biology Draft", "A work in progress.", "science", course.LevelIntermediate,
		false, false, instructor.ID)

	tests := []httpTest{
		{
			name: "unknown slug", path: "/v1/courses/lol", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "published course", path: "/v1/courses/" + goBasics.Slug, wantCode: http.StatusOK,
			wantData: dataResponse(t, goBasics),
		},
		{
			name: "slug is case-insensitive", path: "/v1/courses/GO-BASICS", wantCode: http.StatusOK,
			wantData: dataResponse(t, goBasics),
		},
		{
			// a draft's existence is not disclosed to anonymous callers
			name: "draft hidden from anonymous", path: "/v1/courses/" + draft.Slug, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, errNotFound),
		},
		{
			name: "draft visible when signed in", path: "/v1/courses/" + draft.Slug, token: getToken(t, student),
			wantCode: http.StatusOK, wantData: dataResponse(t, draft),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_update(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true, true)
	owner := testutil.CreateUser(t, usrRepo, "Teacher K", "teachk1", "teachk@test.cd", "", []string{user.RoleInstructor}, true, true)
	other := testutil.CreateUser(t, usrRepo, "Teacher B", "teachb1", "teachb@test.cd", "", []string{user.RoleInstructor}, true, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true, true)

	goBasics := testutil.CreateCourse(t, crsRepo,
		"Go Basics", "Learn the Go programming language from scratch.", "programming", course.LevelBeginner,
		true, false, owner.ID)

	ownerToken := getToken(t, owner)
	free := true
	published := true

	type extraTest struct {
		title       string
		description string
		level       string
		isPublished bool
	}
	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/courses/" + goBasics.Slug,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Instructor required", path: "/v1/courses/" + goBasics.Slug, token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "unknown course", path: "/v1/courses/lol", token: ownerToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "only the owner may edit", path: "/v1/courses/" + goBasics.Slug, token: getToken(t, other),
			body:     marchallObj(t, course.UpdateCourse{Title: "Hijacked"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "title too short", path: "/v1/courses/" + goBasics.Slug, token: ownerToken,
			body:     marchallObj(t, course.UpdateCourse{Title: "Go"}),
			wantCode: http.StatusBadRequest,
			wantData: errResponse(t, map[string]string{"title": "title must be at least 3 characters in length"}),
		},
		{
			name: "invalid level", path: "/v1/courses/" + goBasics.Slug, token: ownerToken,
			body:     marchallObj(t, course.UpdateCourse{Level: "expert"}),
			wantCode: http.StatusBadRequest,
			wantData: errResponse(t, map[string]string{"level": "invalid course level"}),
		},
		{
			// omitted fields keep their current values
			name: "owner partial update", path: "/v1/courses/" + goBasics.Slug, token: ownerToken,
			body:     marchallObj(t, course.UpdateCourse{Title: "Go Basics II", IsPublished: &published}),
			wantCode: http.StatusOK,
			extra: extraTest{
				title: "Go Basics II", description: goBasics.Description,
				level: course.LevelBeginner, isPublished: true,
			},
		},
		{
			name: "admin can edit any course", path: "/v1/courses/" + goBasics.Slug, token: getToken(t, admin),
			body:     marchallObj(t, course.UpdateCourse{Level: course.LevelIntermediate, IsFree: &free}),
			wantCode: http.StatusOK,
			extra: extraTest{
				title: "Go Basics II", description: goBasics.Description,
				level: course.LevelIntermediate, isPublished: true,
			},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if extra, ok := tt.extra.(extraTest); ok {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData courseResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				crs := respData.Data
				if crs.Title != extra.title {
					t.Errorf("failed! Title = %q; want %q", crs.Title, extra.title)
				}
				if crs.Description != extra.description {
					t.Errorf("failed! Description = %q; want %q", crs.Description, extra.description)
				}
				if crs.Level != extra.level {
					t.Errorf("failed! Level = %q; want %q", crs.Level, extra.level)
				}
				if crs.IsPublished != extra.isPublished {
					t.Errorf("failed! IsPublished = %v; want %v", crs.IsPublished, extra.isPublished)
				}
				if crs.Slug != goBasics.Slug {
					t.Errorf("failed! Slug = %q; want %q", crs.Slug, goBasics.Slug)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_destroy(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true, true)
	owner := testutil.CreateUser(t, usrRepo, "Teacher K", "teachk1", "teachk@test.cd", "", []string{user.RoleInstructor}, true, true)
	other := testutil.CreateUser(t, usrRepo, "Teacher B", "teachb1", "teachb@test.cd", "", []string{user.RoleInstructor}, true, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true, true)

	goBasics := testutil.CreateCourse(t, crsRepo,
		"Go Basics", "Learn the Go programming language from scratch.", "programming", course.LevelBeginner,
		true, true, owner.ID)
	algebra := testutil.CreateCourse(t, crsRepo,
		"Algebra Fundamentals", "Equations and inequalities.", "math", course.LevelBeginner,
		false, true, other.ID)

	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/courses/" + goBasics.Slug,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Instructor required", path: "/v1/courses/" + goBasics.Slug, token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "unknown course", path: "/v1/courses/lol", token: getToken(t, owner),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "only the owner may delete", path: "/v1/courses/" + goBasics.Slug, token: getToken(t, other),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{name: "owner deletes", path: "/v1/courses/" + goBasics.Slug, token: getToken(t, owner), wantCode: http.StatusNoContent},
		{
			name: "deleted course is gone", path: "/v1/courses/" + goBasics.Slug, token: getToken(t, owner),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{name: "admin can delete any course", path: "/v1/courses/" + algebra.Slug, token: getToken(t, admin), wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				if rec.Body.Len() > 0 {
					t.Errorf("failed! body = %q; want empty", rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_create(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true, true)
	instructor := testutil.CreateUser(t, usrRepo, "Teacher K", "teachk1", "teachk@test.cd", "", []string{user.RoleInstructor}, true, true)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true, true)

	testutil.CreateCourse(t, crsRepo,
		"Go Basics", "Learn the Go programming language from scratch.", "programming", course.LevelBeginner,
		true, true, instructor.ID)

	instructorToken := getToken(t, instructor)

	type extraTest struct {
		slug         string
		instructorID string
	}
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Instructor required", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "required fields", token: instructorToken, wantCode: http.StatusBadRequest,
			wantData: errResponse(t, map[string]string{
				"title":    reqMsg,
				"slug":     reqMsg,
				"category": reqMsg,
				"level":    reqMsg,
			}),
		},
		{
			name: "title too short", token: instructorToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, course.NewCourse{
				Title: "Go", Category: "programming", Level: course.LevelBeginner,
			}),
			wantData: errResponse(t, map[string]string{"title": "title must be at least 3 characters in length"}),
		},
		{
			name: "invalid level", token: instructorToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, course.NewCourse{
				Title: "Rocket Science", Category: "science", Level: "expert",
			}),
			wantData: errResponse(t, map[string]string{"level": "invalid course level"}),
		},
		{
			name: "invalid slug", token: instructorToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, course.NewCourse{
				Title: "Rocket Science", Slug: "Rocket Science!", Category: "science", Level: course.LevelBeginner,
			}),
			wantData: errResponse(t, map[string]string{"slug": "only lowercase alphanumeric characters and hyphens are allowed"}),
		},
		{
			name: "duplicate slug", token: instructorToken, wantCode: http.StatusConflict,
			body: marchallObj(t, course.NewCourse{
				Title: "Go Basics", Category: "programming", Level: course.LevelBeginner,
			}),
			wantData: marchallObj(t, httpErr{Error: "a course with this slug already exists"}),
		},
		{
			name: "created with derived slug", token: instructorToken, wantCode: http.StatusCreated,
			body: marchallObj(t, course.NewCourse{
				Title: "Linear Algebra", Description: "Vectors and matrices.", Category: "math",
				Level: course.LevelBeginner, IsFree: true, IsPublished: true,
			}),
			extra: extraTest{slug: "linear-algebra", instructorID: instructor.ID},
		},
		{
			name: "created with explicit slug", token: instructorToken, wantCode: http.StatusCreated,
			body: marchallObj(t, course.NewCourse{
				Title: "Calculus I", Slug: "calc-1", Category: "math", Level: course.LevelIntermediate,
			}),
			extra: extraTest{slug: "calc-1", instructorID: instructor.ID},
		},
		{
			name: "admin can create too", token: getToken(t, admin), wantCode: http.StatusCreated,
			body: marchallObj(t, course.NewCourse{
				Title: "School Admin 101", Category: "management", Level: course.LevelBeginner,
			}),
			extra: extraTest{slug: "school-admin-101", instructorID: admin.ID},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/courses"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if extra, ok := tt.extra.(extraTest); ok {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData courseResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				crs := respData.Data
				if crs.Slug != extra.slug {
					t.Errorf("failed! Slug = %q; want %q", crs.Slug, extra.slug)
				}
				if crs.InstructorID != extra.instructorID {
					t.Errorf("failed! InstructorID = %q; want %q", crs.InstructorID, extra.instructorID)
				}
				if crs.Language != course.DefaultLanguage {
					t.Errorf("failed! Language = %q; want %q", crs.Language, course.DefaultLanguage)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
