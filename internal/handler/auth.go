package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/service"
)

type registerRequest struct {
	Name                 string `json:"name" binding:"required,max=255"`
	Email                string `json:"email" binding:"required,email,max=255"`
	Password             string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}
	sess, err := h.Accounts.Register(c.Request.Context(), service.RegisterInput{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	sess, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Logout handles POST /auth/logout and revokes only the presented token.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.Accounts.Logout(c.Request.Context(), c.GetString(ctxToken)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.Accounts.ListUsers(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

// DeleteUser handles DELETE /users/:id.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Accounts.DeleteUser(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted."})
}
