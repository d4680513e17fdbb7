// Package handler wires the HTTP surface. Handlers stay thin: bind, call a
// service, translate the error. All authorization decisions live in the
// access package behind the services.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campustrack/internal/apperr"
	"campustrack/internal/auth"
	"campustrack/internal/config"
	"campustrack/internal/hardware"
	"campustrack/internal/identity"
	"campustrack/internal/ledger"
	"campustrack/internal/model"
	"campustrack/internal/queue"
	"campustrack/internal/report"
	"campustrack/internal/request"
	"campustrack/internal/schedule"
	"campustrack/internal/store"
)

// Handler carries the service graph behind the HTTP routes.
type Handler struct {
	cfg      config.App
	health   *store.Health
	identity *identity.Service
	schedule *schedule.Service
	ledger   *ledger.Service
	report   *report.Service
	request  *request.Service
	scanlog  *hardware.ScanLog
	queue    queue.Queue
	nowFn    func() time.Time
}

func New(cfg config.App, health *store.Health, ids *identity.Service, sch *schedule.Service,
	led *ledger.Service, rep *report.Service, req *request.Service,
	scanlog *hardware.ScanLog, q queue.Queue) *Handler {
	return &Handler{
		cfg:      cfg,
		health:   health,
		identity: ids,
		schedule: sch,
		ledger:   led,
		report:   rep,
		request:  req,
		scanlog:  scanlog,
		queue:    q,
		nowFn:    time.Now,
	}
}

// respondErr maps service errors to HTTP responses.
func respondErr(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": apperr.Message(err), "kind": apperr.KindOf(err)})
}

// requireReady rejects traffic with 503 while the storage probe is failing,
// so load balancers retry elsewhere instead of piling errors on a sick node.
func (h *Handler) requireReady() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.health.Ready() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
			return
		}
		c.Next()
	}
}

// RegisterRoutes mounts the full API under /v1 plus the ops endpoints.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if !h.health.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	v1 := r.Group("/v1", h.requireReady())

	v1.POST("/auth/signup", h.signup)
	v1.POST("/auth/login", h.login)
	v1.POST("/hardware/scan", h.hardwareScan)

	authed := v1.Group("", auth.Bearer(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))

	authed.POST("/auth/refresh", h.refresh)
	authed.GET("/me", h.me)
	authed.POST("/me/password", h.changeOwnPassword)

	authed.GET("/users", h.listUsers)
	authed.POST("/users", h.createUser)
	authed.PUT("/users/:id", h.updateUser)
	authed.DELETE("/users/:id", h.deleteUser)
	authed.POST("/users/:id/toggle-status", h.toggleUserStatus)
	authed.POST("/users/:id/promote", h.promoteUser)
	authed.POST("/users/:id/demote", h.demoteUser)
	authed.POST("/users/:id/password", h.changeUserPassword)
	authed.POST("/users/:id/uid", h.mapUID)
	authed.POST("/activation-codes", h.createActivationCode)

	authed.POST("/attendance", h.mark)
	authed.GET("/attendance", h.listAttendance)
	authed.GET("/attendance/today", h.todayAttendance)
	authed.POST("/attendance/batch", h.uploadBatch)

	staff := authed.Group("", auth.RequireRoles(model.RoleFaculty, model.RoleIncharge, model.RoleAdmin))
	staff.GET("/hardware/scans", h.recentScans)
	staff.GET("/hardware/live", h.liveScans)

	authed.GET("/reports/percentage", h.percentage)
	authed.GET("/reports/history", h.history)
	authed.GET("/reports/subjects", h.subjectWise)
	authed.GET("/reports/faculty", h.facultyStats)
	authed.GET("/reports/overall", h.overall)

	authed.GET("/timetable", h.listTimetable)
	authed.POST("/timetable", h.createTimetable)
	authed.DELETE("/timetable/:id", h.deleteTimetable)
	authed.GET("/timetable/mine", h.mySchedule)
	authed.GET("/timetable/current", h.currentPeriod)

	authed.POST("/permissions", h.createLeave)
	authed.GET("/permissions", h.listLeaves)
	authed.GET("/permissions/mine", h.myLeaves)
	authed.POST("/permissions/:id/decide", h.decideLeave)

	authed.POST("/complaints", h.createComplaint)
	authed.GET("/complaints", h.listComplaints)
	authed.GET("/complaints/mine", h.myComplaints)
	authed.PUT("/complaints/:id/status", h.setComplaintStatus)
}
