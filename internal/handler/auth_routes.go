package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campustrack/internal/auth"
	"campustrack/internal/identity"
)

func tokenResponse(pair auth.TokenPair) gin.H {
	return gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.AccessExp.Unix(),
	}
}

func (h *Handler) signup(c *gin.Context) {
	var in identity.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.identity.Signup(c.Request.Context(), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, pair, err := h.identity.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	resp := tokenResponse(pair)
	resp["user"] = u
	resp["must_change_password"] = u.MustChangePassword
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) refresh(c *gin.Context) {
	pair, err := h.identity.Refresh(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(pair))
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.identity.Me(c.Request.Context(), auth.IdentityFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) changeOwnPassword(c *gin.Context) {
	var in struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	caller := auth.IdentityFrom(c)
	if err := h.identity.ChangePassword(c.Request.Context(), caller, caller.UserID, in.CurrentPassword, in.NewPassword); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password changed"})
}
