package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"protect/internal/httpapi"

	"github.com/spf13/cobra"
)

var (
	mockAddr   string
	mockAPIKey string
)

// mockServerCmd 启动本地模拟 Protect API，便于离线调试
var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run an in-memory Protect API for local testing",
	Long: `Starts an in-memory implementation of the Protect API. Point the client at it with

  protect --api-url http://localhost:8088 --api-key <key> health`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []httpapi.Option{httpapi.WithLogger(log)}
		if mockAPIKey != "" {
			opts = append(opts, httpapi.WithAPIKey(mockAPIKey))
		}
		srv := &http.Server{
			Addr:              mockAddr,
			Handler:           httpapi.NewServer(opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "Mock Protect API listening on %s\n", mockAddr)
		log.Info("模拟服务已启动", "addr", mockAddr)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-cmd.Context().Done():
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		log.Info("模拟服务已停止")
		return nil
	},
}

func init() {
	mockServerCmd.Flags().StringVar(&mockAddr, "addr", ":8088", "listen address")
	mockServerCmd.Flags().StringVar(&mockAPIKey, "api-key", "", "require this API key (no auth when empty)")
}
