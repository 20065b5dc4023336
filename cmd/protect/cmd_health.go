package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

// healthCmd 检查 Protect API 是否可用
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the Protect API is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		status, err := s.svc.Healthcheck(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), status, func(w io.Writer) {
			keys := make([]string, 0, len(status))
			for k := range status {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "%s: %v\n", k, status[k])
			}
		})
	},
}
