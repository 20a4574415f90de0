package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleSeed writes the demo collections that are missing.
func (s *Server) handleSeed(c *gin.Context) {
	s.store.Initialize()
	respondSuccess(c, http.StatusOK, gin.H{"status": "seeded"})
}

// handleReset overwrites every collection with the demo data.
func (s *Server) handleReset(c *gin.Context) {
	s.store.ForceReset()
	s.logger.Warn("storage reset through admin route")
	respondSuccess(c, http.StatusOK, gin.H{"status": "reset"})
}

// handleClear wipes storage and the cached directory users.
func (s *Server) handleClear(c *gin.Context) {
	s.store.ClearAll()
	if s.directory != nil {
		s.directory.ClearCache()
	}
	s.logger.Warn("storage cleared through admin route")
	respondSuccess(c, http.StatusOK, gin.H{"status": "cleared"})
}
