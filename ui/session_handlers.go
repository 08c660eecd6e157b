package ui

import (
	"net/http"

	"painel/domain/core"
	"painel/domain/filter"

	"github.com/gin-gonic/gin"
)

type createSessionRequest struct {
	Dataset string `json:"dataset" binding:"required"`
}

type sessionFiltersRequest struct {
	Base       filter.Spec `json:"base"`
	Comparison filter.Spec `json:"comparison"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if _, err := s.loadEntry(c.Request.Context(), req.Dataset); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.sessions.Create(req.Dataset))
}

func (s *Server) handleGetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// handleSetSessionFilters validates both specs against the session's dataset
// before installing them.
func (s *Server) handleSetSessionFilters(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req sessionFiltersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	entry, err := s.loadEntry(c.Request.Context(), sess.Dataset)
	if err != nil {
		respondError(c, err)
		return
	}
	pair, err := s.engine.ApplyPair(c.Request.Context(), entry.Table, req.Base, req.Comparison)
	if err != nil {
		respondError(c, err)
		return
	}

	sess, err = s.sessions.SetFilters(id, req.Base, req.Comparison)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":         sess,
		"base_rows":       pair.Base.Len(),
		"comparison_rows": pair.Comparison.Len(),
	})
}

// handleSwitchSessionDataset points the session at another processed dataset.
// The switch resets both specs and bumps the generation.
func (s *Server) handleSwitchSessionDataset(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error())
		return
	}
	if _, err := s.sessions.Get(id); err != nil {
		respondError(c, err)
		return
	}
	if _, err := s.loadEntry(c.Request.Context(), req.Dataset); err != nil {
		respondError(c, err)
		return
	}
	sess, err := s.sessions.SwitchDataset(id, req.Dataset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := s.sessions.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := s.sessions.Reset(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func sessionID(c *gin.Context) (core.SessionID, bool) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		badRequest(c, err.Error())
		return "", false
	}
	return id, true
}
