package handler

import (
	"net/http"

	"grievancedesk/backend/internal/feedback"

	"github.com/gin-gonic/gin"
)

func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req feedback.SubmitRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	f, err := h.feedback.Submit(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusCreated, "Feedback submitted", f)
}

func (h *Handler) GrievanceFeedback(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	fs, err := h.feedback.ListByGrievance(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", fs)
}

// AverageRating returns {"averageRating": null} when nothing was rated.
func (h *Handler) AverageRating(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	avg, err := h.feedback.Average(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", gin.H{"averageRating": avg})
}

func (h *Handler) MyFeedback(c *gin.Context) {
	fs, err := h.feedback.MyHistory(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", fs)
}
