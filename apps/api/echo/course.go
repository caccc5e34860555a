package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
)

type courseApi struct {
	svc      course.Service
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	optJWT echo.MiddlewareFunc,
	svc course.Service,
	validate *validator.Validate,
) {
	api := courseApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/courses")
	cg.GET("", api.query, optJWT)
	cg.GET("/:slug", api.retrieve, optJWT)
	cg.POST("", api.create, jwt, instructorMiddleware())
	cg.PUT("/:slug", api.update, jwt, instructorMiddleware())
	cg.DELETE("/:slug", api.destroy, jwt, instructorMiddleware())
}

// Handlers

// query lists the catalog. Anonymous callers only ever see published courses;
// any signed-in caller may browse drafts too.
func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	if _, err := getContextClaims(ctx); err != nil {
		published := true
		filter.IsPublished = &published
	}

	ordering := new(Ordering)
	ordering.Bind(ctx, "title", "created_at")
	page := bindPagination(ctx)

	courses, meta, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, page)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, DataResponse{Data: courses, Meta: &meta})
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "finding course by slug")
	}

	// unpublished courses are hidden from anonymous callers
	if !crs.IsPublished {
		if _, err := getContextClaims(ctx); err != nil {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, DataResponse{Data: crs})
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, DataResponse{Data: crs})
}

// update applies partial edits to a course. Only the owning instructor
// or an admin may edit; the slug is immutable.
func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.svc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "finding course by slug")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if crs.InstructorID != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(crs, api.validate); err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, DataResponse{Data: crs})
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, err := api.svc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		return errors.Wrap(err, "finding course by slug")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if crs.InstructorID != claims.Subject && !claims.IsAdmin {
		return errHttpForbidden
	}

	if err = api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}
