package handler

import (
	"context"
	"net/http"

	"grievancedesk/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// read serves a GET whose only input is the actor.
func read[T any](h *Handler, fn func(context.Context, models.Actor) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := fn(c.Request.Context(), actorFrom(c))
		if err != nil {
			h.fail(c, err)
			return
		}
		h.respond(c, http.StatusOK, "", v)
	}
}

func (h *Handler) StudentStats(c *gin.Context)         { read(h, h.dashboards.Student)(c) }
func (h *Handler) StudentGrievances(c *gin.Context)    { read(h, h.dashboards.StudentGrievances)(c) }
func (h *Handler) StaffStats(c *gin.Context)           { read(h, h.dashboards.Staff)(c) }
func (h *Handler) StaffGrievances(c *gin.Context)      { read(h, h.dashboards.StaffGrievances)(c) }
func (h *Handler) DepartmentStats(c *gin.Context)      { read(h, h.dashboards.Department)(c) }
func (h *Handler) DepartmentGrievances(c *gin.Context) { read(h, h.dashboards.DepartmentGrievances)(c) }
func (h *Handler) DepartmentStaff(c *gin.Context)      { read(h, h.dashboards.DepartmentStaff)(c) }
func (h *Handler) StaffPerformance(c *gin.Context)     { read(h, h.dashboards.StaffPerformance)(c) }
