package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"protect/internal/audit"
	"protect/internal/config"
	"protect/internal/logger"
	"protect/pkg/api"

	"github.com/spf13/cobra"
)

var (
	// 全局参数
	configPath    string
	appConfigPath string
	consoleURL    string
	apiURL        string
	apiKey        string
	jsonOutput    bool

	// 由 PersistentPreRunE 初始化
	appCfg *config.Config
	log    logger.Logger = logger.NewNop()
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "protect",
	Short: "Galileo Protect command line client",
	Long: `protect talks to the Galileo Protect API: run payloads through rulesets,
manage projects and stages, and inspect the local invocation history.

Connection settings come from ~/.galileo/protect-config.json, then the
GALILEO_* environment variables, then the flags below.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(appConfigPath)
		if err != nil {
			return err
		}
		appCfg = cfg
		log = logger.New(cfg)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to protect-config.json (default ~/.galileo/protect-config.json)")
	pf.StringVar(&appConfigPath, "app-config", "", "path to the YAML application config (logging, history)")
	pf.StringVar(&consoleURL, "console-url", "", "Galileo console URL")
	pf.StringVar(&apiURL, "api-url", "", "Galileo API URL (derived from the console URL when empty)")
	pf.StringVar(&apiKey, "api-key", "", "Galileo API key")
	pf.BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(
		invokeCmd,
		projectCmd,
		stageCmd,
		healthCmd,
		historyCmd,
		mockServerCmd,
	)
}

// session 一次命令执行所需的服务与历史库
type session struct {
	svc     api.Service
	history *audit.History
}

func (s *session) Close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			log.Err(err, "关闭调用历史失败")
		}
	}
}

// openSession 加载配置并创建服务；启用历史时挂载记录器
func openSession() (*session, error) {
	var opts []config.Option
	if configPath != "" {
		opts = append(opts, config.WithPath(configPath))
	}
	if consoleURL != "" {
		opts = append(opts, config.WithConsoleURL(consoleURL))
	}
	if apiURL != "" {
		opts = append(opts, config.WithAPIURL(apiURL))
	}
	if apiKey != "" {
		opts = append(opts, config.WithAPIKey(apiKey))
	}
	pcfg, err := api.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}

	s := &session{}
	svcOpts := []api.Option{api.WithLogger(log)}
	if appCfg != nil && appCfg.History.Enabled {
		h, err := audit.OpenHistory(appCfg.History, log)
		if err != nil {
			return nil, err
		}
		s.history = h
		svcOpts = append(svcOpts, api.WithRecorder(h))
	}

	svc, err := api.NewService(pcfg, svcOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.svc = svc
	return s, nil
}

// printResult --json 时输出统一格式，否则调用 human 输出可读文本
func printResult[T any](w io.Writer, data T, human func(w io.Writer)) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(api.OK(data))
	}
	human(w)
	return nil
}

// printError 输出错误，--json 时同样使用统一格式
func printError(w io.Writer, err error) {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(api.FromError(err))
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		out := os.Stderr
		if jsonOutput {
			out = os.Stdout
		}
		printError(out, err)
		stop()
		os.Exit(1)
	}
}
