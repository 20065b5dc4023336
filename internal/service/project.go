package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"protect/internal/config"
	"protect/internal/transport"
	"protect/pkg/domain"
	"protect/pkg/errx"

	"github.com/google/uuid"
)

// CreateProject 创建 protect 项目并写入配置；name 为空时使用时间戳名称
func (s *svc) CreateProject(ctx context.Context, name string) (*domain.Project, error) {
	if name == "" {
		name = domain.TimestampName("project")
	}

	existing, err := s.projectByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errx.Wrap(errx.CodeConflict, domain.ErrProjectExists, fmt.Sprintf("Project %s already exists.", name))
	}

	var project domain.Project
	body := domain.CreateProjectRequest{Name: name, Type: domain.ProjectTypeProtect}
	if err := s.client.Do(ctx, http.MethodPost, routeProjects, &project, transport.WithJSON(body)); err != nil {
		s.log.Err(err, "创建项目失败", "name", name)
		return nil, err
	}
	s.log.Info("项目已创建", "projectID", project.ID, "name", project.Name)

	if err := s.persist(func(c *config.ProtectConfig) {
		c.ProjectID = project.ID
		c.ProjectName = project.Name
	}); err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProjects 列出全部 protect 项目
func (s *svc) GetProjects(ctx context.Context) ([]domain.Project, error) {
	var projects []domain.Project
	params := url.Values{"type": {string(domain.ProjectTypeProtect)}}
	if err := s.client.Do(ctx, http.MethodGet, routeProjects, &projects, transport.WithParams(params)); err != nil {
		s.log.Err(err, "获取项目列表失败")
		return nil, err
	}
	// 服务端返回 null 或空响应体时也输出空列表
	if projects == nil {
		projects = []domain.Project{}
	}
	return projects, nil
}

// GetProject 按 ID（优先）或名称获取项目；raiseIfMissing 为 false 时未找到返回 nil, nil
func (s *svc) GetProject(ctx context.Context, id uuid.UUID, name string, raiseIfMissing bool) (*domain.Project, error) {
	if id == uuid.Nil && name == "" {
		return nil, errx.Invalid("Either project ID or name must be provided.")
	}

	var (
		project *domain.Project
		err     error
		ref     string
	)
	if id != uuid.Nil {
		ref = id.String()
		project, err = s.projectByID(ctx, id)
	} else {
		ref = name
		project, err = s.projectByName(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	if project == nil && raiseIfMissing {
		return nil, errx.Wrap(errx.CodeNotFound, domain.ErrProjectNotFound, fmt.Sprintf("Project %s not found.", ref))
	}
	return project, nil
}

// projectByID 404 视为不存在
func (s *svc) projectByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	var project domain.Project
	err := s.client.Do(ctx, http.MethodGet, routeProject(id), &project)
	if transport.StatusCode(err) == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		s.log.Err(err, "获取项目失败", "projectID", id)
		return nil, err
	}
	return &project, nil
}

func (s *svc) projectByName(ctx context.Context, name string) (*domain.Project, error) {
	var projects []domain.Project
	params := url.Values{
		"project_name": {name},
		"type":         {string(domain.ProjectTypeProtect)},
	}
	if err := s.client.Do(ctx, http.MethodGet, routeProjects, &projects, transport.WithParams(params)); err != nil {
		s.log.Err(err, "按名称查询项目失败", "name", name)
		return nil, err
	}
	for i := range projects {
		if projects[i].Name == name {
			return &projects[i], nil
		}
	}
	return nil, nil
}
