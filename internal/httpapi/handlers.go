package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"protect/pkg/domain"
	"protect/pkg/rulespec"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MockAPIVersion 健康检查与 invoke 响应中返回的版本
const MockAPIVersion = "mock-1.0"

func (s *Server) handleHealthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"api_version": MockAPIVersion,
		"message":     "ok",
		"version":     MockAPIVersion,
	})
}

func (s *Server) handleListProjects(c *gin.Context) {
	projects := s.store.listProjects(c.Query("project_name"), domain.ProjectType(c.Query("type")))
	c.JSON(http.StatusOK, projects)
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req domain.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Name == "" {
		abort(c, http.StatusUnprocessableEntity, "Project name is required.")
		return
	}
	if req.Type == "" {
		req.Type = domain.ProjectTypeProtect
	}
	p, ok := s.store.createProject(req.Name, req.Type)
	if !ok {
		abort(c, http.StatusConflict, "Project with this name already exists.")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := pathID(c, "project_id")
	if !ok {
		return
	}
	p, found := s.store.project(id)
	if !found {
		abort(c, http.StatusNotFound, "Project not found.")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleCreateStage(c *gin.Context) {
	pid, ok := s.existingProject(c)
	if !ok {
		return
	}
	var st rulespec.Stage
	if err := c.ShouldBindJSON(&st); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if st.Name == "" {
		abort(c, http.StatusUnprocessableEntity, "Stage name is required.")
		return
	}
	if err := rulespec.ValidateRulesets(st.PrioritizedRulesets); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	st.ProjectID = pid
	if st.Type == "" {
		st.Type = rulespec.StageLocal
	}
	resp, created := s.store.createStage(st)
	if !created {
		abort(c, http.StatusConflict, "Stage with this name already exists.")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetStage(c *gin.Context) {
	pid, ok := s.existingProject(c)
	if !ok {
		return
	}
	var sid uuid.UUID
	if raw := c.Query("stage_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			abort(c, http.StatusUnprocessableEntity, "Invalid stage_id.")
			return
		}
		sid = id
	}
	name := c.Query("stage_name")
	if sid == uuid.Nil && name == "" {
		abort(c, http.StatusUnprocessableEntity, "stage_id or stage_name is required.")
		return
	}
	st, found := s.store.findStage(pid, sid, name)
	if !found {
		abort(c, http.StatusNotFound, "Stage not found.")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleUpdateStage(c *gin.Context) {
	pid, ok := pathID(c, "project_id")
	if !ok {
		return
	}
	sid, ok := pathID(c, "stage_id")
	if !ok {
		return
	}
	var body rulespec.RulesetsUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := rulespec.ValidateRulesets(body.PrioritizedRulesets); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	st, found := s.store.updateStage(pid, sid, func(st *rulespec.StageResponse) {
		st.PrioritizedRulesets = body.PrioritizedRulesets
		if st.Type == rulespec.StageCentral && st.Version != nil {
			*st.Version++
		}
	})
	if !found {
		abort(c, http.StatusNotFound, "Stage not found.")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handlePauseStage(c *gin.Context) {
	pid, ok := pathID(c, "project_id")
	if !ok {
		return
	}
	sid, ok := pathID(c, "stage_id")
	if !ok {
		return
	}
	pause, err := strconv.ParseBool(c.Query("pause"))
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, "pause must be a boolean.")
		return
	}
	st, found := s.store.updateStage(pid, sid, func(st *rulespec.StageResponse) {
		st.Paused = pause
	})
	if !found {
		abort(c, http.StatusNotFound, "Stage not found.")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleInvoke(c *gin.Context) {
	received := time.Now()
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-c.Request.Context().Done():
			return
		}
	}

	var req rulespec.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := req.Payload.Validate(); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := rulespec.ValidateRulesets(req.PrioritizedRulesets); err != nil {
		abort(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if s.invoke != nil {
		body, status := s.invoke(&req)
		c.JSON(status, body)
		return
	}

	status := rulespec.StatusNotTriggered
	if req.StageID != nil {
		if st, found := s.store.stageByID(*req.StageID); found && st.Paused {
			status = rulespec.StatusPaused
		}
	}

	responded := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"text":   req.Payload.Text(),
		"status": status,
		"trace_metadata": gin.H{
			"id":             uuid.NewString(),
			"received_at":    received.UnixNano(),
			"response_at":    responded.UnixNano(),
			"execution_time": responded.Sub(received).Seconds(),
		},
		"api_version": MockAPIVersion,
	})
}

// existingProject 解析路径中的项目 ID 并确认项目存在
func (s *Server) existingProject(c *gin.Context) (uuid.UUID, bool) {
	pid, ok := pathID(c, "project_id")
	if !ok {
		return uuid.Nil, false
	}
	if _, found := s.store.project(pid); !found {
		abort(c, http.StatusNotFound, "Project not found.")
		return uuid.Nil, false
	}
	return pid, true
}

func pathID(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		abort(c, http.StatusUnprocessableEntity, "Invalid "+key+".")
		return uuid.Nil, false
	}
	return id, true
}
