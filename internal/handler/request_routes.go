package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campustrack/internal/auth"
	"campustrack/internal/request"
)

func (h *Handler) createLeave(c *gin.Context) {
	var in request.LeaveInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lr, err := h.request.CreateLeave(c.Request.Context(), auth.IdentityFrom(c), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, lr)
}

func (h *Handler) listLeaves(c *gin.Context) {
	leaves, err := h.request.ListLeaves(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": leaves})
}

func (h *Handler) myLeaves(c *gin.Context) {
	leaves, err := h.request.MyLeaves(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": leaves})
}

func (h *Handler) decideLeave(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lr, err := h.request.DecideLeave(c.Request.Context(), auth.IdentityFrom(c), c.Param("id"), in.Status)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, lr)
}

func (h *Handler) createComplaint(c *gin.Context) {
	var in request.ComplaintInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cm, err := h.request.CreateComplaint(c.Request.Context(), auth.IdentityFrom(c), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

func (h *Handler) listComplaints(c *gin.Context) {
	complaints, err := h.request.ListComplaints(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

func (h *Handler) myComplaints(c *gin.Context) {
	complaints, err := h.request.MyComplaints(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

func (h *Handler) setComplaintStatus(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cm, err := h.request.SetComplaintStatus(c.Request.Context(), auth.IdentityFrom(c), c.Param("id"), in.Status)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, cm)
}
