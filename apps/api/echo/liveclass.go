package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/liveclass"
)

type liveClassApi struct {
	svc       liveclass.Service
	courseSvc course.Service
	validate  *validator.Validate
}

func registerLiveClassAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	optJWT echo.MiddlewareFunc,
	svc liveclass.Service,
	courseSvc course.Service,
	validate *validator.Validate,
	limiter RateLimiter,
) {
	api := liveClassApi{
		svc:       svc,
		courseSvc: courseSvc,
		validate:  validate,
	}

	lg := g.Group("/live-classes")
	lg.GET("", api.query, optJWT)
	lg.GET("/:id", api.retrieve, optJWT)
	lg.POST("", api.create, jwt, instructorMiddleware())
	lg.POST("/:id/cancel", api.cancel, jwt, instructorMiddleware())
	lg.GET("/:id/attendance", api.roster, jwt, instructorMiddleware())
	lg.POST("/:id/join", api.join, jwt, rateLimitMiddleware(limiter, "join"))
	lg.DELETE("/:id/join", api.leave, jwt)
}

// Handlers

// query lists the schedule. Anonymous callers only see public classes;
// signed-in callers additionally see the private classes they teach.
// Admins see everything.
func (api *liveClassApi) query(ctx echo.Context) error {
	filter := new(liveclass.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	claims, cErr := getContextClaims(ctx)
	switch {
	case cErr != nil:
		public := false
		filter.IsPrivate = &public
	case !claims.IsAdmin:
		filter.VisibleToID = claims.Subject
	}

	ordering := new(Ordering)
	ordering.Bind(ctx, "start_time", "created_at")
	page := bindPagination(ctx)

	classes, meta, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying live classes")
	}
	if classes == nil {
		classes = []liveclass.LiveClass{}
	}
	return ctx.JSON(http.StatusOK, DataResponse{Data: classes, Meta: &meta})
}

func (api *liveClassApi) retrieve(ctx echo.Context) error {
	lc, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding live class by ID")
	}

	// private classes do not exist for anyone but their instructor and admins
	if lc.IsPrivate {
		claims, cErr := getContextClaims(ctx)
		if cErr != nil || (claims.Subject != lc.InstructorID && !claims.IsAdmin) {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, DataResponse{Data: lc})
}

func (api *liveClassApi) create(ctx echo.Context) error {
	var data liveclass.NewLiveClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLiveClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	// classes can only be scheduled on a course the caller teaches
	crs, err := api.courseSvc.GetByID(ctx.Request().Context(), data.CourseID)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: course.ErrNotFound.Error()})
		}
		return errors.Wrap(err, "finding course by ID")
	}
	if crs.InstructorID != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	lc, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating live class")
	}
	return ctx.JSON(http.StatusCreated, DataResponse{Data: lc})
}

func (api *liveClassApi) cancel(ctx echo.Context) error {
	lc, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding live class by ID")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if lc.InstructorID != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	lc, err = api.svc.Cancel(ctx.Request().Context(), lc.ID)
	if err != nil {
		return errors.Wrap(err, "cancelling live class")
	}
	return ctx.JSON(http.StatusOK, DataResponse{Data: lc})
}

func (api *liveClassApi) join(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	att, err := api.svc.Join(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "joining live class")
	}
	return ctx.JSON(http.StatusOK, DataResponse{Data: att})
}

func (api *liveClassApi) leave(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	att, err := api.svc.Leave(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "leaving live class")
	}
	return ctx.JSON(http.StatusOK, DataResponse{Data: att})
}

// roster lists a class's attendance, newest join first; it is reserved to the
// class's own instructor and admins.
func (api *liveClassApi) roster(ctx echo.Context) error {
	lc, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding live class by ID")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if lc.InstructorID != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	atts, err := api.svc.Roster(ctx.Request().Context(), lc.ID)
	if err != nil {
		return errors.Wrap(err, "querying class attendance")
	}
	if atts == nil {
		atts = []liveclass.Attendance{}
	}
	return ctx.JSON(http.StatusOK, DataResponse{Data: atts})
}
