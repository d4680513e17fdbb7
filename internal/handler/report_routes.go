package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campustrack/internal/auth"
)

func (h *Handler) percentage(c *gin.Context) {
	stat, err := h.report.Percentage(c.Request.Context(), auth.IdentityFrom(c),
		c.Query("student_id"), c.Query("from"), c.Query("to"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stat)
}

func (h *Handler) history(c *gin.Context) {
	rows, err := h.report.History(c.Request.Context(), auth.IdentityFrom(c),
		c.Query("student_id"), c.Query("from"), c.Query("to"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": rows})
}

func (h *Handler) subjectWise(c *gin.Context) {
	stats, err := h.report.SubjectWise(c.Request.Context(), auth.IdentityFrom(c),
		c.Query("student_id"), c.Query("from"), c.Query("to"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": stats})
}

func (h *Handler) facultyStats(c *gin.Context) {
	stats, err := h.report.FacultyStats(c.Request.Context(), auth.IdentityFrom(c),
		c.Query("from"), c.Query("to"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func (h *Handler) overall(c *gin.Context) {
	stats, err := h.report.Overall(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
