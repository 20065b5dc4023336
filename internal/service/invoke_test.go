package service

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"protect/internal/config"
	"protect/internal/httpapi"
	"protect/internal/transport"
	"protect/pkg/domain"
	"protect/pkg/errx"
	"protect/pkg/rulespec"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestInvoke_RoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Invoke(t.Context(), domain.InvokeParams{Payload: rulespec.Payload{Output: "hello"}})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, rulespec.StatusNotTriggered, resp.Status)
	assert.Contains(t, resp.Extra, "api_version")

	body := f.lastBody(t)
	assert.Equal(t, "hello", body.Get("payload.output").String())
	assert.True(t, body.Get("prioritized_rulesets").IsArray())
	assert.Empty(t, body.Get("prioritized_rulesets").Array())
	assert.Equal(t, 10.0, body.Get("timeout").Float())
	assert.False(t, body.Get("project_id").Exists())

	last, _ := f.mock.LastRequest()
	assert.Equal(t, testAPIKey, last.Header.Get(transport.HeaderAPIKey))
}

func TestInvoke_SendsRulesetsAndMetadata(t *testing.T) {
	f := newFixture(t, nil)
	rulesets := []rulespec.Ruleset{{
		Rules:  []rulespec.Rule{rulespec.NewRule(rulespec.MetricToxicity, rulespec.OperatorGt, 0.8)},
		Action: rulespec.NewOverrideAction("Sorry, I can't help with that."),
	}}

	_, err := f.svc.Invoke(t.Context(), domain.InvokeParams{
		Payload:             rulespec.Payload{Input: "q", Output: "a"},
		PrioritizedRulesets: rulesets,
		Timeout:             2 * time.Second,
		Metadata:            map[string]string{"user": "u1"},
		Headers:             map[string]string{"x-trace": "t1"},
	})
	require.NoError(t, err)

	last, _ := f.mock.LastRequest()
	var sent rulespec.Request
	require.NoError(t, sent.UnmarshalJSON(last.Body))
	want := rulespec.Request{
		Payload:             rulespec.Payload{Input: "q", Output: "a"},
		PrioritizedRulesets: rulesets,
		Timeout:             2,
		Metadata:            map[string]string{"user": "u1"},
		Headers:             map[string]string{"x-trace": "t1"},
	}
	if diff := cmp.Diff(want, sent); diff != "" {
		t.Errorf("请求体不符 (-want +got):\n%s", diff)
	}
}

func TestInvoke_IdentityPrecedence(t *testing.T) {
	cfgProject, cfgStage := uuid.New(), uuid.New()
	argProject, argStage := uuid.New(), uuid.New()

	tests := []struct {
		name            string
		withConfig      bool
		params          domain.InvokeParams
		wantProject     string
		wantProjectName string
		wantStageID     string
		wantStageName   string
	}{
		{
			name:            "All From Config",
			withConfig:      true,
			wantProject:     cfgProject.String(),
			wantProjectName: "cfg-project",
			wantStageID:     cfgStage.String(),
			wantStageName:   "cfg-stage",
		},
		{
			name:            "Explicit Project Overrides Config",
			withConfig:      true,
			params:          domain.InvokeParams{ProjectID: argProject},
			wantProject:     argProject.String(),
			wantProjectName: "cfg-project",
			wantStageID:     cfgStage.String(),
			wantStageName:   "cfg-stage",
		},
		{
			name:            "Explicit Project Name Overrides Config",
			withConfig:      true,
			params:          domain.InvokeParams{ProjectName: "arg-project"},
			wantProject:     cfgProject.String(),
			wantProjectName: "arg-project",
			wantStageID:     cfgStage.String(),
			wantStageName:   "cfg-stage",
		},
		{
			name:            "Explicit Stage ID Overrides Config",
			withConfig:      true,
			params:          domain.InvokeParams{StageID: argStage},
			wantProject:     cfgProject.String(),
			wantProjectName: "cfg-project",
			wantStageID:     argStage.String(),
			wantStageName:   "cfg-stage",
		},
		{
			name:            "Explicit Stage Name Overrides Config",
			withConfig:      true,
			params:          domain.InvokeParams{StageName: "arg-stage"},
			wantProject:     cfgProject.String(),
			wantProjectName: "cfg-project",
			wantStageID:     cfgStage.String(),
			wantStageName:   "arg-stage",
		},
		{
			name:            "All Explicit",
			withConfig:      true,
			params:          domain.InvokeParams{ProjectID: argProject, ProjectName: "arg-project", StageID: argStage, StageName: "arg-stage"},
			wantProject:     argProject.String(),
			wantProjectName: "arg-project",
			wantStageID:     argStage.String(),
			wantStageName:   "arg-stage",
		},
		{
			name:          "Explicit Without Config",
			params:        domain.InvokeParams{ProjectID: argProject, StageName: "arg-stage"},
			wantProject:   argProject.String(),
			wantStageName: "arg-stage",
		},
		{
			name:            "Project Name Without Config",
			params:          domain.InvokeParams{ProjectName: "arg-project", StageName: "arg-stage"},
			wantProjectName: "arg-project",
			wantStageName:   "arg-stage",
		},
		{
			name:        "Stage ID Only Without Config",
			params:      domain.InvokeParams{ProjectID: argProject, StageID: argStage},
			wantProject: argProject.String(),
			wantStageID: argStage.String(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfgOpts []config.Option
			if tt.withConfig {
				cfgOpts = append(cfgOpts,
					config.WithProjectID(cfgProject),
					config.WithProjectName("cfg-project"),
					config.WithStageID(cfgStage),
					config.WithStageName("cfg-stage"),
				)
			}
			f := newFixture(t, nil, cfgOpts...)

			p := tt.params
			p.Payload = rulespec.Payload{Input: "hi"}
			_, err := f.svc.Invoke(t.Context(), p)
			require.NoError(t, err)

			body := f.lastBody(t)
			assert.Equal(t, tt.wantProject, body.Get("project_id").String())
			assert.Equal(t, tt.wantProjectName, body.Get("project_name").String())
			assert.Equal(t, tt.wantStageID, body.Get("stage_id").String())
			assert.Equal(t, tt.wantStageName, body.Get("stage_name").String())
		})
	}
}

func TestInvoke_DoesNotWriteConfig(t *testing.T) {
	f := newFixture(t, nil, config.WithProjectID(uuid.New()))

	_, err := f.svc.Invoke(t.Context(), domain.InvokeParams{Payload: rulespec.Payload{Input: "hi"}})
	require.NoError(t, err)

	_, statErr := os.Stat(f.path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "invoke 不应写入配置文件")
}

func TestInvoke_ReadTimeoutIncludesMargin(t *testing.T) {
	f := newFixture(t, []httpapi.Option{httpapi.WithInvokeDelay(100 * time.Millisecond)})

	resp, err := f.svc.Invoke(t.Context(), domain.InvokeParams{
		Payload: rulespec.Payload{Input: "slow"},
		Timeout: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, "slow", resp.Text)
	assert.InDelta(t, 0.01, f.lastBody(t).Get("timeout").Float(), 1e-9)
}

func TestInvoke_ContextDeadline(t *testing.T) {
	f := newFixture(t, []httpapi.Option{httpapi.WithInvokeDelay(time.Second)})

	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Millisecond)
	defer cancel()
	_, err := f.svc.Invoke(ctx, domain.InvokeParams{Payload: rulespec.Payload{Input: "x"}})
	require.Error(t, err)
	assert.True(t, errx.Is(err, errx.CodeTransport))
}

func TestInvoke_HTTPErrorPropagates(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Invoke(t.Context(), domain.InvokeParams{})
	require.Error(t, err)
	assert.True(t, errx.Is(err, errx.CodeHTTPStatus))
	assert.Equal(t, http.StatusUnprocessableEntity, transport.StatusCode(err))
}

func TestInvoke_StatusPassThrough(t *testing.T) {
	f := newFixture(t, []httpapi.Option{httpapi.WithInvokeFunc(func(*rulespec.Request) (map[string]any, int) {
		return map[string]any{"text": "x", "status": "brand_new_status", "metric_results": map[string]any{"toxicity": 0.1}}, http.StatusOK
	})})

	resp, err := f.svc.Invoke(t.Context(), domain.InvokeParams{Payload: rulespec.Payload{Input: "x"}})
	require.NoError(t, err)
	assert.Equal(t, rulespec.ExecutionStatus("brand_new_status"), resp.Status)
	assert.JSONEq(t, `{"toxicity":0.1}`, string(resp.Extra["metric_results"]))
}

func TestInvoke_MissingStatus(t *testing.T) {
	f := newFixture(t, []httpapi.Option{httpapi.WithInvokeFunc(func(*rulespec.Request) (map[string]any, int) {
		return map[string]any{"text": "only text"}, http.StatusOK
	})})

	resp, err := f.svc.Invoke(t.Context(), domain.InvokeParams{Payload: rulespec.Payload{Input: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "only text", resp.Text)
	assert.Empty(t, resp.Status)
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []error
	resps []*rulespec.Response
}

func (r *fakeRecorder) RecordInvocation(_ *rulespec.Request, resp *rulespec.Response, err error, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, err)
	r.resps = append(r.resps, resp)
}

func TestInvoke_Recorder(t *testing.T) {
	f := newFixture(t, nil)
	rec := &fakeRecorder{}
	f.svc.rec = rec

	_, err := f.svc.Invoke(t.Context(), domain.InvokeParams{Payload: rulespec.Payload{Input: "ok"}})
	require.NoError(t, err)
	_, err = f.svc.Invoke(t.Context(), domain.InvokeParams{})
	require.Error(t, err)

	require.Len(t, rec.calls, 2)
	assert.NoError(t, rec.calls[0])
	assert.Equal(t, "ok", rec.resps[0].Text)
	assert.Error(t, rec.calls[1])
	assert.Nil(t, rec.resps[1])
}

func TestAInvoke_SingleResultThenClose(t *testing.T) {
	f := newFixture(t, nil)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ch := f.svc.AInvoke(t.Context(), domain.InvokeParams{Payload: rulespec.Payload{Output: "async"}})

	res, ok := <-ch
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, "async", res.Response.Text)

	_, ok = <-ch
	assert.False(t, ok, "结果通道应在投递后关闭")
}

func TestAInvoke_Error(t *testing.T) {
	f := newFixture(t, nil)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	res := <-f.svc.AInvoke(t.Context(), domain.InvokeParams{})
	assert.Nil(t, res.Response)
	assert.True(t, errx.Is(res.Err, errx.CodeHTTPStatus))
}

func TestAInvoke_Concurrent(t *testing.T) {
	f := newFixture(t, nil)

	chans := make([]<-chan domain.InvokeResult, 0, 8)
	for i := 0; i < 8; i++ {
		chans = append(chans, f.svc.AInvoke(t.Context(), domain.InvokeParams{Payload: rulespec.Payload{Input: "p"}}))
	}
	for _, ch := range chans {
		res := <-ch
		require.NoError(t, res.Err)
		assert.Equal(t, "p", res.Response.Text)
	}
	assert.Equal(t, 8, f.mock.CountRequests(http.MethodPost, "/protect/invoke"))
}

func TestInvoke_ExampleScenario(t *testing.T) {
	f := newFixture(t, []httpapi.Option{httpapi.WithInvokeFunc(func(*rulespec.Request) (map[string]any, int) {
		return map[string]any{"text": "hello", "status": "NOT_TRIGGERED"}, http.StatusOK
	})})
	projectID := uuid.New()

	resp, err := f.svc.Invoke(t.Context(), domain.InvokeParams{
		Payload: rulespec.Payload{Input: "hello"},
		PrioritizedRulesets: []rulespec.Ruleset{
			{Rules: []rulespec.Rule{rulespec.NewRule(rulespec.MetricToxicity, rulespec.OperatorGt, 0.5)}},
		},
		ProjectID: projectID,
		StageName: "prod",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, rulespec.StatusNotTriggered, resp.Status)

	body := f.lastBody(t)
	assert.Equal(t, projectID.String(), body.Get("project_id").String())
	assert.Equal(t, "prod", body.Get("stage_name").String())
	assert.Equal(t, "toxicity", body.Get("prioritized_rulesets.0.rules.0.metric").String())
	assert.Equal(t, "gt", body.Get("prioritized_rulesets.0.rules.0.operator").String())
	assert.Equal(t, 0.5, body.Get("prioritized_rulesets.0.rules.0.target_value").Float())
}
