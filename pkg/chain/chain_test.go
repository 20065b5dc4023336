package chain_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"protect/pkg/chain"
	"protect/pkg/domain"
	"protect/pkg/errx"
	"protect/pkg/rulespec"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type countingChain struct {
	calls int
	last  string
}

func (c *countingChain) Invoke(_ context.Context, input string) (string, error) {
	c.calls++
	c.last = input
	return "chain:" + input, nil
}

func TestParser_TriggerBranches(t *testing.T) {
	tests := []struct {
		name          string
		status        string
		ignoreTrigger bool
		wantCalls     int
		want          string
	}{
		{"Triggered Returns Text", "TRIGGERED", false, 0, "replaced"},
		{"Triggered Lower Case", "triggered", false, 0, "replaced"},
		{"Triggered Ignored", "TRIGGERED", true, 1, "chain:replaced"},
		{"Not Triggered", "NOT_TRIGGERED", false, 1, "chain:replaced"},
		{"Missing Status", "", false, 1, "chain:replaced"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &countingChain{}
			p := &chain.Parser{Chain: c, IgnoreTrigger: tt.ignoreTrigger}

			got, err := p.ParseResponse(context.Background(), &rulespec.Response{Text: "replaced", Status: rulespec.ExecutionStatus(tt.status)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, c.calls)
		})
	}
}

func TestParser_ParseJSON(t *testing.T) {
	c := &countingChain{}
	p := &chain.Parser{Chain: c}

	got, err := p.Parse(context.Background(), `{"text":"hello","status":"NOT_TRIGGERED","extra":1}`)
	require.NoError(t, err)
	assert.Equal(t, "chain:hello", got)
	assert.Equal(t, "hello", c.last)

	_, err = p.Parse(context.Background(), `{not json`)
	assert.True(t, errx.Is(err, errx.CodeDecode))
}

func TestParser_EchoOutput(t *testing.T) {
	var buf bytes.Buffer
	p := &chain.Parser{Chain: &countingChain{}, EchoOutput: true, Out: &buf}

	_, err := p.Parse(context.Background(), `{"text":"blocked","status":"TRIGGERED"}`)
	require.NoError(t, err)
	assert.Equal(t, "> Raw response: blocked\n", buf.String())
}

func TestParser_ChainError(t *testing.T) {
	boom := errors.New("boom")
	p := &chain.Parser{Chain: chain.RunnableFunc(func(context.Context, string) (string, error) { return "", boom })}

	_, err := p.Parse(context.Background(), `{"text":"x"}`)
	assert.ErrorIs(t, err, boom)
}

func TestParser_NilChain(t *testing.T) {
	p := &chain.Parser{}
	got, err := p.Parse(context.Background(), `{"text":"x","status":"TRIGGERED"}`)
	require.NoError(t, err)
	assert.Equal(t, "x", got)

	_, err = p.Parse(context.Background(), `{"text":"x"}`)
	assert.True(t, errx.Is(err, errx.CodeInvalidArgument))
}

type fakeInvoker struct {
	params domain.InvokeParams
	resp   *rulespec.Response
	err    error
}

func (f *fakeInvoker) Invoke(_ context.Context, p domain.InvokeParams) (*rulespec.Response, error) {
	f.params = p
	return f.resp, f.err
}

func TestTool_Run(t *testing.T) {
	stageID := uuid.New()
	inv := &fakeInvoker{resp: &rulespec.Response{Text: "ok", Status: rulespec.StatusNotTriggered}}
	tool := chain.NewTool(inv)
	tool.StageID = stageID
	tool.StageName = "prod"

	out, err := tool.Run(context.Background(), "in", "out")
	require.NoError(t, err)
	assert.Equal(t, "ok", out["text"])
	assert.Equal(t, "NOT_TRIGGERED", out["status"])

	assert.Equal(t, rulespec.Payload{Input: "in", Output: "out"}, inv.params.Payload)
	assert.Equal(t, stageID, inv.params.StageID)
	assert.Equal(t, "prod", inv.params.StageName)
	assert.Equal(t, chain.DefaultToolName, tool.Name)
}

func TestTool_RunJSON(t *testing.T) {
	inv := &fakeInvoker{resp: &rulespec.Response{Text: "ok", Status: rulespec.StatusTriggered}}
	tool := chain.NewTool(inv)

	raw, err := tool.RunJSON(context.Background(), "", "out")
	require.NoError(t, err)
	doc := gjson.Parse(raw)
	assert.Equal(t, "ok", doc.Get("text").String())
	assert.Equal(t, "TRIGGERED", doc.Get("status").String())
	assert.Equal(t, chain.DefaultToolName, doc.Get("tool").String())
}

func TestTool_ARun(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("down")}
	tool := chain.NewTool(inv)

	ch := tool.ARun(context.Background(), "in", "")
	res := <-ch
	assert.Error(t, res.Err)
	assert.Nil(t, res.Output)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestTool_FeedsParser(t *testing.T) {
	inv := &fakeInvoker{resp: &rulespec.Response{Text: "blocked", Status: rulespec.StatusTriggered}}
	tool := chain.NewTool(inv)
	c := &countingChain{}
	p := &chain.Parser{Chain: c}

	out, err := tool.Run(context.Background(), "in", "")
	require.NoError(t, err)
	got, err := p.ParseMap(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, "blocked", got)
	assert.Zero(t, c.calls)
}

func TestTool_MissingInvoker(t *testing.T) {
	_, err := (&chain.Tool{}).Run(context.Background(), "x", "")
	assert.True(t, errx.Is(err, errx.CodeInvalidArgument))
}
