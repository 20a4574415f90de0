package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tasksphere/internal/repository"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin opens a session for matching credentials.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	user, err := s.store.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// handleRegister creates an account and logs it in.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.fail(c, fmt.Errorf("name, email and password are required: %w", repository.ErrInvalidInput))
		return
	}
	user, err := s.store.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"user": user})
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.store.Logout(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "logged out"})
}

// handleMe returns the session user, or 404 when nobody is logged in.
func (s *Server) handleMe(c *gin.Context) {
	user := s.store.CurrentUser()
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}
