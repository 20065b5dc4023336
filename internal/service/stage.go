package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"protect/internal/config"
	"protect/internal/transport"
	"protect/pkg/domain"
	"protect/pkg/errx"
	"protect/pkg/rulespec"

	"github.com/google/uuid"
)

// CreateStage 在项目下创建阶段并写入配置
func (s *svc) CreateStage(ctx context.Context, p domain.CreateStageParams) (*rulespec.StageResponse, error) {
	cfg := s.snapshot()
	projectID := orID(p.ProjectID, cfg.ProjectID)
	if projectID == uuid.Nil {
		return nil, errx.Invalid("Project ID must be provided to create a stage.")
	}

	name := p.Name
	if name == "" {
		name = domain.TimestampName("stage")
	}
	typ := p.Type
	if typ == "" {
		typ = rulespec.StageLocal
	}
	rulesets := p.PrioritizedRulesets
	if rulesets == nil {
		rulesets = []rulespec.Ruleset{}
	}
	if err := rulespec.ValidateRulesets(rulesets); err != nil {
		return nil, errx.Invalid(err.Error())
	}

	body := rulespec.Stage{
		Name:                name,
		ProjectID:           projectID,
		Description:         p.Description,
		Paused:              p.Pause,
		Type:                typ,
		PrioritizedRulesets: rulesets,
		Action:              p.Action,
	}
	var stage rulespec.StageResponse
	if err := s.client.Do(ctx, http.MethodPost, routeStages(projectID), &stage, transport.WithJSON(body)); err != nil {
		s.log.Err(err, "创建阶段失败", "projectID", projectID, "name", name)
		return nil, err
	}
	s.log.Info("阶段已创建", "projectID", projectID, "stageID", stage.ID, "name", stage.Name, "type", stage.Type)

	if err := s.persist(func(c *config.ProtectConfig) {
		c.ProjectID = projectID
		c.StageID = stage.ID
		c.StageName = stage.Name
		c.StageVersion = stage.Version
	}); err != nil {
		return nil, err
	}
	return &stage, nil
}

// GetStage 按 ID 或名称获取阶段，项目缺失 ID 时按名称解析
func (s *svc) GetStage(ctx context.Context, ref domain.StageRef) (*rulespec.StageResponse, error) {
	cfg := s.snapshot()
	projectID := orID(ref.ProjectID, cfg.ProjectID)
	stageID := orID(ref.StageID, cfg.StageID)
	stageName := orString(ref.StageName, cfg.StageName)

	if projectID == uuid.Nil {
		if ref.ProjectName == "" {
			return nil, errx.Invalid("Project ID or name must be provided to get a stage.")
		}
		project, err := s.GetProject(ctx, uuid.Nil, ref.ProjectName, true)
		if err != nil {
			return nil, err
		}
		projectID = project.ID
	}

	params := url.Values{}
	if stageID != uuid.Nil {
		params.Set("stage_id", stageID.String())
	}
	if stageName != "" {
		params.Set("stage_name", stageName)
	}
	if len(params) == 0 {
		return nil, errx.Invalid("Stage ID or name must be provided to get a stage.")
	}

	var stage rulespec.StageResponse
	if err := s.client.Do(ctx, http.MethodGet, routeStages(projectID), &stage, transport.WithParams(params)); err != nil {
		s.log.Err(err, "获取阶段失败", "projectID", projectID, "stageID", stageID, "stageName", stageName)
		return nil, err
	}

	if err := s.persist(func(c *config.ProtectConfig) {
		c.ProjectID = projectID
		c.StageID = stage.ID
		c.StageName = stage.Name
	}); err != nil {
		return nil, err
	}
	return &stage, nil
}

// UpdateStage 用新的规则集生成阶段新版本（仅 central 阶段有版本）
func (s *svc) UpdateStage(ctx context.Context, ref domain.StageRef, rulesets []rulespec.Ruleset) (*rulespec.StageResponse, error) {
	cfg := s.snapshot()
	projectID := orID(ref.ProjectID, cfg.ProjectID)
	stageID := orID(ref.StageID, cfg.StageID)
	stageName := orString(ref.StageName, cfg.StageName)

	if projectID == uuid.Nil || stageID == uuid.Nil {
		got, err := s.GetStage(ctx, domain.StageRef{
			ProjectID:   projectID,
			ProjectName: ref.ProjectName,
			StageID:     stageID,
			StageName:   stageName,
		})
		if err != nil {
			return nil, err
		}
		projectID = got.ProjectID
		stageID = got.ID
	}

	if rulesets == nil {
		rulesets = []rulespec.Ruleset{}
	}
	if err := rulespec.ValidateRulesets(rulesets); err != nil {
		return nil, errx.Invalid(err.Error())
	}

	var stage rulespec.StageResponse
	body := rulespec.RulesetsUpdate{PrioritizedRulesets: rulesets}
	if err := s.client.Do(ctx, http.MethodPost, routeStage(projectID, stageID), &stage, transport.WithJSON(body)); err != nil {
		s.log.Err(err, "更新阶段失败", "projectID", projectID, "stageID", stageID)
		return nil, err
	}
	s.log.Info("阶段已更新", "projectID", projectID, "stageID", stage.ID, "version", stage.Version)

	if err := s.persist(func(c *config.ProtectConfig) {
		c.ProjectID = projectID
		c.StageID = stage.ID
		c.StageName = stage.Name
		c.StageVersion = stage.Version
	}); err != nil {
		return nil, err
	}
	return &stage, nil
}

// PauseStage 暂停阶段，暂停后阶段内规则集不再评估
func (s *svc) PauseStage(ctx context.Context, projectID, stageID uuid.UUID) error {
	return s.setPaused(ctx, projectID, stageID, true)
}

// ResumeStage 恢复阶段
func (s *svc) ResumeStage(ctx context.Context, projectID, stageID uuid.UUID) error {
	return s.setPaused(ctx, projectID, stageID, false)
}

func (s *svc) setPaused(ctx context.Context, projectID, stageID uuid.UUID, pause bool) error {
	verb := "resume"
	if pause {
		verb = "pause"
	}
	cfg := s.snapshot()
	projectID = orID(projectID, cfg.ProjectID)
	stageID = orID(stageID, cfg.StageID)
	if projectID == uuid.Nil {
		return errx.Invalid(fmt.Sprintf("Project ID must be provided to %s a stage.", verb))
	}
	if stageID == uuid.Nil {
		return errx.Invalid(fmt.Sprintf("Stage ID must be provided to %s a stage.", verb))
	}

	params := url.Values{"pause": {strconv.FormatBool(pause)}}
	if err := s.client.Do(ctx, http.MethodPut, routeStage(projectID, stageID), nil, transport.WithParams(params)); err != nil {
		s.log.Err(err, "切换阶段暂停状态失败", "projectID", projectID, "stageID", stageID, "pause", pause)
		return err
	}
	s.log.Info("阶段暂停状态已切换", "projectID", projectID, "stageID", stageID, "pause", pause)

	return s.persist(func(c *config.ProtectConfig) {
		c.ProjectID = projectID
		c.StageID = stageID
	})
}
