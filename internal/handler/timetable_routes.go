package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campustrack/internal/auth"
	"campustrack/internal/model"
)

func (h *Handler) listTimetable(c *gin.Context) {
	day := -1
	if v := c.Query("day"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day must be an integer"})
			return
		}
		day = parsed
	}
	periods, err := h.schedule.List(c.Request.Context(), auth.IdentityFrom(c), day)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

func (h *Handler) createTimetable(c *gin.Context) {
	var in model.SchedulePeriod
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.schedule.Create(c.Request.Context(), auth.IdentityFrom(c), &in); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, in)
}

func (h *Handler) deleteTimetable(c *gin.Context) {
	if err := h.schedule.Delete(c.Request.Context(), auth.IdentityFrom(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) mySchedule(c *gin.Context) {
	periods, err := h.schedule.MySchedule(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"periods": periods})
}

// currentPeriod resolves the period in session right now, or for an
// explicit day/time pair when supplied.
func (h *Handler) currentPeriod(c *gin.Context) {
	var (
		period int
		ok     bool
		err    error
	)
	if dayStr, timeStr := c.Query("day"), c.Query("time"); dayStr != "" && timeStr != "" {
		day, convErr := strconv.Atoi(dayStr)
		if convErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day must be an integer"})
			return
		}
		period, ok, err = h.schedule.ResolveCurrent(c.Request.Context(), day, timeStr)
	} else {
		period, ok, err = h.schedule.ResolveNow(c.Request.Context(), h.nowFn())
	}
	if err != nil {
		respondErr(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"in_session": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"in_session": true, "period_id": period})
}
