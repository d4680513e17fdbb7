package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campustrack/internal/auth"
	"campustrack/internal/hardware"
	"campustrack/internal/ledger"
	"campustrack/internal/queue"
	"campustrack/internal/store"
)

func (h *Handler) mark(c *gin.Context) {
	var in struct {
		StudentID string `json:"student_id" binding:"required"`
		Date      string `json:"date"`
		PeriodID  *int   `json:"period_id"`
		Status    string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req := ledger.MarkRequest{StudentID: in.StudentID, Date: in.Date, Status: in.Status}
	if in.PeriodID != nil {
		req.PeriodID = *in.PeriodID
	} else if period, ok, err := h.schedule.ResolveNow(c.Request.Context(), h.nowFn()); err == nil && ok {
		// No period supplied: attribute the mark to whatever is in session.
		req.PeriodID = period
	}
	rec, err := h.ledger.Mark(c.Request.Context(), auth.IdentityFrom(c), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func intQuery(c *gin.Context, key string) *int {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func (h *Handler) listAttendance(c *gin.Context) {
	f := store.LedgerFilter{
		StudentID: c.Query("student_id"),
		Date:      c.Query("date"),
		PeriodID:  intQuery(c, "period_id"),
		From:      c.Query("from"),
		To:        c.Query("to"),
	}
	records, err := h.ledger.List(c.Request.Context(), auth.IdentityFrom(c), f)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *Handler) todayAttendance(c *gin.Context) {
	period := intQuery(c, "period_id")
	if period == nil {
		if p, ok, err := h.schedule.ResolveNow(c.Request.Context(), h.nowFn()); err == nil && ok {
			period = &p
		}
	}
	rows, err := h.ledger.Today(c.Request.Context(), auth.IdentityFrom(c), period)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": rows})
}

// uploadBatch ingests a scanner CSV export. Accepts a multipart "file" field
// or a raw CSV body.
func (h *Handler) uploadBatch(c *gin.Context) {
	reader := c.Request.Body
	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		reader = file
	}
	rows, err := hardware.ParseBatch(reader)
	if err != nil {
		respondErr(c, err)
		return
	}
	res, err := h.ledger.IngestBatch(c.Request.Context(), auth.IdentityFrom(c), rows)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// hardwareScan accepts one RFID reader event. The ledger write happens
// inline; the scan-log append is deferred to the queue.
func (h *Handler) hardwareScan(c *gin.Context) {
	var in struct {
		UID      string `json:"uid" binding:"required"`
		Status   string `json:"status"`
		Date     string `json:"date"`
		PeriodID *int   `json:"period_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tm := ledger.TagMark{UID: in.UID, Status: in.Status, Date: in.Date}
	if in.PeriodID != nil {
		tm.PeriodID = *in.PeriodID
	} else if period, ok, err := h.schedule.ResolveNow(c.Request.Context(), h.nowFn()); err == nil && ok {
		tm.PeriodID = period
	}
	rec, student, err := h.ledger.MarkByTag(c.Request.Context(), tm)
	if err != nil {
		respondErr(c, err)
		return
	}
	ev := queue.ScanEvent{
		RegNo:  student.UID,
		Name:   student.Name,
		Status: in.Status,
		Time:   h.nowFn().Format("15:04:05"),
	}
	if ev.Status == "" {
		ev.Status = "IN"
	}
	if err := h.queue.Publish(c.Request.Context(), ev); err != nil {
		log.Printf("scan queue publish failed: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"record": rec, "student": student.Name})
}

func (h *Handler) recentScans(c *gin.Context) {
	entries, err := h.scanlog.ReadAll()
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": entries})
}

func (h *Handler) liveScans(c *gin.Context) {
	rows, err := h.scanlog.Live()
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"live": rows})
}
