package handler

import (
	"net/http"

	"grievancedesk/backend/internal/workflow"

	"github.com/gin-gonic/gin"
)

type assignRequest struct {
	StaffID uint   `json:"staffId" binding:"required"`
	Notes   string `json:"notes"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type remarkRequest struct {
	Message    string `json:"message"`
	IsInternal bool   `json:"isInternal"`
}

func (h *Handler) SubmitGrievance(c *gin.Context) {
	var req workflow.SubmitRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	g, err := h.workflow.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusCreated, "Grievance submitted", g)
}

func (h *Handler) GetGrievance(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	g, err := h.workflow.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", g)
}

func (h *Handler) Timeline(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	entries, err := h.workflow.Timeline(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", entries)
}

func (h *Handler) LatestTimelineEntry(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	entry, err := h.workflow.LatestTimelineEntry(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", entry)
}

func (h *Handler) ClaimGrievance(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	g, err := h.workflow.Claim(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Grievance assigned to you", g)
}

func (h *Handler) AssignToStaff(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req assignRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	g, err := h.workflow.AssignToStaff(c.Request.Context(), actorFrom(c), id, req.StaffID, req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Grievance assigned to staff", g)
}

// RejectGrievance accepts the reason as JSON or as a query parameter.
func (h *Handler) RejectGrievance(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	req := rejectRequest{Reason: c.Query("reason")}
	if req.Reason == "" {
		if err := bind(c, &req); err != nil {
			h.fail(c, err)
			return
		}
	}
	g, err := h.workflow.Reject(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Grievance rejected", g)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	g, err := h.workflow.UpdateStatus(c.Request.Context(), actorFrom(c), id, req.Status, req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Status updated", g)
}

func (h *Handler) AddNotes(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req notesRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	g, err := h.workflow.AddNote(c.Request.Context(), actorFrom(c), id, req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Notes added", g)
}

func (h *Handler) AddRemark(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req remarkRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	r, err := h.remarks.Add(c.Request.Context(), actorFrom(c), id, req.Message, req.IsInternal)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusCreated, "Remark added", r)
}

func (h *Handler) ListRemarks(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	rs, err := h.remarks.List(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", rs)
}

func (h *Handler) CountRemarks(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.remarks.Count(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", gin.H{"count": n})
}

func (h *Handler) LatestRemark(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	r, err := h.remarks.Latest(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "", r)
}
