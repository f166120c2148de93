package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) syncDisabled(c *gin.Context) bool {
	if s.sync != nil {
		return false
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Sync is not configured"})
	return true
}

func (s *Server) syncStatus(c *gin.Context) {
	if s.syncDisabled(c) {
		return
	}
	ctx := c.Request.Context()
	pending, err := s.sync.Pending(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	dead, err := s.sync.DeadLetters(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"online":      s.sync.Online(),
		"pending":     len(pending),
		"deadLetters": dead,
	})
}

func (s *Server) setOnline(c *gin.Context) {
	if s.syncDisabled(c) {
		return
	}
	var req struct {
		Online *bool `json:"online" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	stats, err := s.sync.SetOnline(c.Request.Context(), *req.Online)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": s.sync.Online(), "stats": stats})
}

func (s *Server) drain(c *gin.Context) {
	if s.syncDisabled(c) {
		return
	}
	stats, err := s.sync.ProcessQueue(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
