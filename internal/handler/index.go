package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// IndexHandler serves the landing page.
type IndexHandler struct {
	renderer
	Courses CourseStore
}

func NewIndexHandler(r renderer, courses CourseStore) *IndexHandler {
	return &IndexHandler{renderer: r, Courses: courses}
}

// Index renders the landing page with the course catalog.
func (h *IndexHandler) Index(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	courses, err := h.Courses.List(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "loading courses failed")
	}
	return h.render(c, "index", pageData{"Courses": courses})
}
