package main

import (
	"fmt"
	"io"
	"time"

	"protect/pkg/domain"
	"protect/pkg/rulespec"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	invokeInput       string
	invokeOutput      string
	invokeRulesets    string
	invokeProjectID   string
	invokeProjectName string
	invokeStageID     string
	invokeStageName   string
	invokeTimeout     time.Duration
	invokeMetadata    map[string]string
	invokeHeaders     map[string]string
	invokeAsync       bool
)

// invokeCmd 调用 Protect
var invokeCmd = &cobra.Command{
	Use:   "invoke [output-text...]",
	Short: "Run a payload through Protect",
	Long: `Sends a payload to Protect and prints the response.

Each positional argument is sent as its own payload output (sharing --input).
With --async the payloads are sent concurrently.

Example:
  protect invoke --input "user question" "model answer" --rulesets-file rules.json`,
	RunE: runInvoke,
}

func init() {
	f := invokeCmd.Flags()
	f.StringVar(&invokeInput, "input", "", "payload input text")
	f.StringVar(&invokeOutput, "output", "", "payload output text (ignored when positional texts are given)")
	f.StringVar(&invokeRulesets, "rulesets-file", "", "JSON file with prioritized rulesets, - for stdin")
	f.StringVar(&invokeProjectID, "project-id", "", "project ID (default from config)")
	f.StringVar(&invokeProjectName, "project-name", "", "project name (default from config)")
	f.StringVar(&invokeStageID, "stage-id", "", "stage ID (default from config)")
	f.StringVar(&invokeStageName, "stage-name", "", "stage name (default from config)")
	f.DurationVar(&invokeTimeout, "timeout", 0, "invocation timeout (default 10s)")
	f.StringToStringVar(&invokeMetadata, "metadata", nil, "metadata key=value pairs")
	f.StringToStringVar(&invokeHeaders, "header", nil, "header key=value pairs forwarded to Protect")
	f.BoolVar(&invokeAsync, "async", false, "send payloads concurrently")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	base, err := invokeParams(cmd)
	if err != nil {
		return err
	}

	payloads := []rulespec.Payload{{Input: invokeInput, Output: invokeOutput}}
	if len(args) > 0 {
		payloads = payloads[:0]
		for _, text := range args {
			payloads = append(payloads, rulespec.Payload{Input: invokeInput, Output: text})
		}
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	results := make([]*rulespec.Response, len(payloads))
	if invokeAsync {
		g, gctx := errgroup.WithContext(ctx)
		for i, payload := range payloads {
			p := base
			p.Payload = payload
			ch := s.svc.AInvoke(gctx, p)
			g.Go(func() error {
				res := <-ch
				if res.Err != nil {
					return res.Err
				}
				results[i] = res.Response
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for i, payload := range payloads {
			p := base
			p.Payload = payload
			resp, err := s.svc.Invoke(ctx, p)
			if err != nil {
				return err
			}
			results[i] = resp
		}
	}

	log.Debug("invoke 完成", "payloads", len(payloads), "async", invokeAsync)
	return printResult(cmd.OutOrStdout(), results, func(w io.Writer) {
		for _, r := range results {
			fmt.Fprintf(w, "[%s] %s\n", statusLabel(r.Status), r.Text)
		}
	})
}

// invokeParams 由命令行参数构造除 payload 以外的调用参数
func invokeParams(cmd *cobra.Command) (domain.InvokeParams, error) {
	var p domain.InvokeParams
	var err error
	if p.ProjectID, err = parseID("project-id", invokeProjectID); err != nil {
		return p, err
	}
	if p.StageID, err = parseID("stage-id", invokeStageID); err != nil {
		return p, err
	}
	if p.PrioritizedRulesets, err = readRulesets(invokeRulesets, cmd.InOrStdin()); err != nil {
		return p, err
	}
	p.ProjectName = invokeProjectName
	p.StageName = invokeStageName
	p.Timeout = invokeTimeout
	p.Metadata = invokeMetadata
	p.Headers = invokeHeaders
	return p, nil
}

func statusLabel(s rulespec.ExecutionStatus) string {
	if s == "" {
		return "NO_STATUS"
	}
	return string(s)
}
