package httpapi

import (
	"sync"
	"time"

	"protect/pkg/domain"
	"protect/pkg/rulespec"

	"github.com/google/uuid"
)

// store 模拟服务的内存状态
type store struct {
	mu       sync.RWMutex
	projects []*domain.Project
	stages   []*rulespec.StageResponse
}

func newStore() *store {
	return &store{}
}

func (s *store) listProjects(name string, typ domain.ProjectType) []domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if name != "" && p.Name != name {
			continue
		}
		if typ != "" && p.Type != typ {
			continue
		}
		out = append(out, *p)
	}
	return out
}

func (s *store) project(id uuid.UUID) (domain.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projects {
		if p.ID == id {
			return *p, true
		}
	}
	return domain.Project{}, false
}

// createProject 同名同类型项目已存在时返回 false
func (s *store) createProject(name string, typ domain.ProjectType) (domain.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.Name == name && p.Type == typ {
			return domain.Project{}, false
		}
	}
	now := time.Now().UTC()
	p := &domain.Project{ID: uuid.New(), Name: name, Type: typ, CreatedAt: &now, UpdatedAt: &now}
	s.projects = append(s.projects, p)
	return *p, true
}

// createStage 同项目下重名时返回 false；central 阶段版本从 1 开始
func (s *store) createStage(st rulespec.Stage) (rulespec.StageResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.stages {
		if existing.ProjectID == st.ProjectID && existing.Name == st.Name {
			return rulespec.StageResponse{}, false
		}
	}
	resp := &rulespec.StageResponse{Stage: st, ID: uuid.New()}
	if st.Type == rulespec.StageCentral {
		v := 1
		resp.Version = &v
	}
	s.stages = append(s.stages, resp)
	return cloneStage(resp), true
}

func (s *store) findStage(projectID, stageID uuid.UUID, name string) (rulespec.StageResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st := s.lookup(projectID, stageID, name); st != nil {
		return cloneStage(st), true
	}
	return rulespec.StageResponse{}, false
}

// stageByID 不限定项目查找阶段，供 invoke 使用
func (s *store) stageByID(stageID uuid.UUID) (rulespec.StageResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.stages {
		if st.ID == stageID {
			return cloneStage(st), true
		}
	}
	return rulespec.StageResponse{}, false
}

// updateStage 在锁内修改阶段并返回修改后的副本
func (s *store) updateStage(projectID, stageID uuid.UUID, fn func(st *rulespec.StageResponse)) (rulespec.StageResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.lookup(projectID, stageID, "")
	if st == nil {
		return rulespec.StageResponse{}, false
	}
	fn(st)
	return cloneStage(st), true
}

// lookup 调用方持锁
func (s *store) lookup(projectID, stageID uuid.UUID, name string) *rulespec.StageResponse {
	for _, st := range s.stages {
		if st.ProjectID != projectID {
			continue
		}
		if stageID != uuid.Nil && st.ID == stageID {
			return st
		}
		if stageID == uuid.Nil && name != "" && st.Name == name {
			return st
		}
	}
	return nil
}

func cloneStage(st *rulespec.StageResponse) rulespec.StageResponse {
	out := *st
	if st.Version != nil {
		v := *st.Version
		out.Version = &v
	}
	if st.PrioritizedRulesets != nil {
		out.PrioritizedRulesets = append([]rulespec.Ruleset(nil), st.PrioritizedRulesets...)
	}
	return out
}
