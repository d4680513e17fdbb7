package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campustrack/internal/auth"
	"campustrack/internal/identity"
	"campustrack/internal/model"
	"campustrack/internal/store"
)

func (h *Handler) listUsers(c *gin.Context) {
	f := store.UserFilter{
		Role:       model.Role(c.Query("role")),
		Department: c.Query("department"),
		ClassName:  c.Query("class_name"),
		Search:     c.Query("search"),
	}
	users, err := h.identity.List(c.Request.Context(), auth.IdentityFrom(c), f)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) createUser(c *gin.Context) {
	var in identity.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.identity.Create(c.Request.Context(), auth.IdentityFrom(c), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) updateUser(c *gin.Context) {
	var in identity.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.identity.Update(c.Request.Context(), auth.IdentityFrom(c), c.Param("id"), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.identity.Delete(c.Request.Context(), auth.IdentityFrom(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) toggleUserStatus(c *gin.Context) {
	u, err := h.identity.ToggleStatus(c.Request.Context(), auth.IdentityFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) promoteUser(c *gin.Context) {
	u, err := h.identity.Promote(c.Request.Context(), auth.IdentityFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) demoteUser(c *gin.Context) {
	u, err := h.identity.Demote(c.Request.Context(), auth.IdentityFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) changeUserPassword(c *gin.Context) {
	var in struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.identity.ChangePassword(c.Request.Context(), auth.IdentityFrom(c), c.Param("id"), in.CurrentPassword, in.NewPassword); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password changed"})
}

func (h *Handler) mapUID(c *gin.Context) {
	var in struct {
		UID string `json:"uid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.identity.MapUID(c.Request.Context(), auth.IdentityFrom(c), c.Param("id"), in.UID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) createActivationCode(c *gin.Context) {
	var in struct {
		Code string `json:"code"`
	}
	// Body is optional; an empty one means generate.
	_ = c.ShouldBindJSON(&in)
	code, err := h.identity.CreateActivationCode(c.Request.Context(), auth.IdentityFrom(c), in.Code)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": code})
}
