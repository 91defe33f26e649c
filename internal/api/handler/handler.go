// Package handler exposes the grievance services over HTTP and websocket.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"grievancedesk/backend/internal/apperr"
	"grievancedesk/backend/internal/dashboard"
	"grievancedesk/backend/internal/feedback"
	"grievancedesk/backend/internal/logger"
	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/notification"
	"grievancedesk/backend/internal/realtime"
	"grievancedesk/backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type WorkflowService interface {
	Create(ctx context.Context, actor models.Actor, req workflow.SubmitRequest) (*models.Grievance, error)
	Get(ctx context.Context, actor models.Actor, id uint) (*models.Grievance, error)
	Timeline(ctx context.Context, actor models.Actor, id uint) ([]models.TimelineEntry, error)
	LatestTimelineEntry(ctx context.Context, actor models.Actor, id uint) (*models.TimelineEntry, error)
	Claim(ctx context.Context, actor models.Actor, id uint) (*models.Grievance, error)
	AssignToStaff(ctx context.Context, actor models.Actor, id, staffID uint, notes string) (*models.Grievance, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id uint, status, note string) (*models.Grievance, error)
	AddNote(ctx context.Context, actor models.Actor, id uint, notes string) (*models.Grievance, error)
	Reject(ctx context.Context, actor models.Actor, id uint, reason string) (*models.Grievance, error)
}

type RemarkService interface {
	Add(ctx context.Context, actor models.Actor, grievanceID uint, message string, internal bool) (*models.Remark, error)
	List(ctx context.Context, actor models.Actor, grievanceID uint) ([]models.Remark, error)
	Count(ctx context.Context, actor models.Actor, grievanceID uint) (int64, error)
	Latest(ctx context.Context, actor models.Actor, grievanceID uint) (*models.Remark, error)
}

type NotificationService interface {
	List(ctx context.Context, actor models.Actor, unreadOnly bool) ([]models.Notification, error)
	UnreadCount(ctx context.Context, actor models.Actor) (int64, error)
	MarkRead(ctx context.Context, actor models.Actor, id uint) (*models.Notification, error)
	MarkAllRead(ctx context.Context, actor models.Actor) (int64, error)
	Delete(ctx context.Context, actor models.Actor, id uint) error
	Preferences(ctx context.Context, actor models.Actor) (*models.NotificationPreference, error)
	UpdatePreferences(ctx context.Context, actor models.Actor, upd notification.PreferenceUpdate) (*models.NotificationPreference, error)
}

type FeedbackService interface {
	Submit(ctx context.Context, actor models.Actor, req feedback.SubmitRequest) (*models.Feedback, error)
	Average(ctx context.Context, actor models.Actor, grievanceID uint) (*float64, error)
	ListByGrievance(ctx context.Context, actor models.Actor, grievanceID uint) ([]models.Feedback, error)
	MyHistory(ctx context.Context, actor models.Actor) ([]models.Feedback, error)
}

type DashboardService interface {
	Student(ctx context.Context, actor models.Actor) (*dashboard.StudentStats, error)
	StudentGrievances(ctx context.Context, actor models.Actor) ([]models.Grievance, error)
	Staff(ctx context.Context, actor models.Actor) (*dashboard.StaffStats, error)
	StaffGrievances(ctx context.Context, actor models.Actor) ([]models.Grievance, error)
	Department(ctx context.Context, actor models.Actor) (*dashboard.DepartmentStats, error)
	DepartmentGrievances(ctx context.Context, actor models.Actor) ([]models.Grievance, error)
	DepartmentStaff(ctx context.Context, actor models.Actor) ([]models.User, error)
	StaffPerformance(ctx context.Context, actor models.Actor) ([]dashboard.StaffPerformance, error)
}

// TelegramLinker issues the one-time codes that bind a Telegram chat.
type TelegramLinker interface {
	Issue(ctx context.Context, actor models.Actor) (*models.TelegramLinkCode, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps lists everything the handlers call. Hub and TelegramLinks may be nil
// when websockets or Telegram are disabled.
type Deps struct {
	Workflow      WorkflowService
	Remarks       RemarkService
	Notifications NotificationService
	Feedback      FeedbackService
	Dashboards    DashboardService
	Health        Pinger
	Hub           *realtime.Hub
	TelegramLinks TelegramLinker
	JWTSecret     []byte
	Log           logrus.FieldLogger
}

type Handler struct {
	workflow      WorkflowService
	remarks       RemarkService
	notifications NotificationService
	feedback      FeedbackService
	dashboards    DashboardService
	health        Pinger
	hub           *realtime.Hub
	telegram      TelegramLinker
	secret        []byte
	log           logrus.FieldLogger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		workflow:      d.Workflow,
		remarks:       d.Remarks,
		notifications: d.Notifications,
		feedback:      d.Feedback,
		dashboards:    d.Dashboards,
		health:        d.Health,
		hub:           d.Hub,
		telegram:      d.TelegramLinks,
		secret:        d.JWTSecret,
		log:           logger.Or(d.Log).WithField("component", "http"),
	}
}

// Router builds the gin engine with every route mounted.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.RequestLogger())

	r.GET("/health", h.Health)
	r.GET("/ws", h.Authenticate(), h.ServeWebSocket)

	api := r.Group("/api", h.Authenticate())

	student := api.Group("/dashboard/student")
	student.POST("/grievances", h.SubmitGrievance)
	student.GET("/grievances", h.StudentGrievances)
	student.GET("/stats", h.StudentStats)

	admin := api.Group("/dashboard/admin")
	admin.GET("/grievances", h.DepartmentGrievances)
	admin.PUT("/grievances/:id/assign-to-me", h.ClaimGrievance)
	admin.PUT("/grievances/:id/assign-to-staff", h.AssignToStaff)
	admin.PUT("/grievances/:id/reject", h.RejectGrievance)
	admin.GET("/stats", h.DepartmentStats)
	admin.GET("/staff", h.DepartmentStaff)
	admin.GET("/staff/performance", h.StaffPerformance)

	staff := api.Group("/dashboard/staff")
	staff.GET("/grievances", h.StaffGrievances)
	staff.PUT("/grievances/:id/status", h.UpdateStatus)
	staff.PUT("/grievances/:id/add-notes", h.AddNotes)
	staff.GET("/stats", h.StaffStats)

	g := api.Group("/grievances/:id")
	g.GET("", h.GetGrievance)
	g.GET("/timeline", h.Timeline)
	g.GET("/timeline/latest", h.LatestTimelineEntry)
	g.POST("/remarks", h.AddRemark)
	g.GET("/remarks", h.ListRemarks)
	g.GET("/remarks/count", h.CountRemarks)
	g.GET("/remarks/latest", h.LatestRemark)

	n := api.Group("/notifications")
	n.GET("", h.ListNotifications)
	n.GET("/count", h.UnreadCount)
	n.PUT("/read-all", h.MarkAllRead)
	n.PUT("/:id/read", h.MarkRead)
	n.DELETE("/:id", h.DeleteNotification)

	api.GET("/notification-preferences", h.GetPreferences)
	api.PUT("/notification-preferences", h.UpdatePreferences)
	api.POST("/notification-preferences/telegram-link", h.TelegramLinkCode)

	fb := api.Group("/feedback")
	fb.POST("", h.SubmitFeedback)
	fb.GET("/my-feedback", h.MyFeedback)
	fb.GET("/grievance/:id", h.GrievanceFeedback)
	fb.GET("/grievance/:id/average-rating", h.AverageRating)

	return r
}

// RequestLogger logs one line per request.
func (h *Handler) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := h.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.health.Ping(c.Request.Context()); err != nil {
		h.log.WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type envelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Error   *errorInfo `json:"error,omitempty"`
}

type errorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func errorBody(kind, message string) envelope {
	return envelope{Error: &errorInfo{Kind: kind, Message: message}}
}

func (h *Handler) respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

// fail maps err onto a status and logs causes the client does not see.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request error")
	}
	c.JSON(status, errorBody(string(apperr.KindOf(err)), apperr.Message(err)))
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("invalid %s %q", name, c.Param(name))
	}
	return uint(id), nil
}

// bind decodes the JSON body into dst.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Invalid("invalid request body: %v", err)
	}
	return nil
}
