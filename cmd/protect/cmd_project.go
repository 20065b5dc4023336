package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"protect/pkg/domain"

	"github.com/spf13/cobra"
)

var (
	projectID        string
	projectName      string
	projectMissingOK bool
)

// projectCmd 项目管理
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage Protect projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a project and make it the default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) == 1 {
			name = args[0]
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := s.svc.CreateProject(cmd.Context(), name)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), p, func(w io.Writer) {
			fmt.Fprintf(w, "Created project %q (%s)\n", p.Name, p.ID)
		})
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		projects, err := s.svc.GetProjects(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), projects, func(w io.Writer) {
			writeProjects(w, projects)
		})
	},
}

var projectGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a project by --id or --name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("id", projectID)
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := s.svc.GetProject(cmd.Context(), id, projectName, !projectMissingOK)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), p, func(w io.Writer) {
			if p == nil {
				fmt.Fprintln(w, "Project not found.")
				return
			}
			writeProjects(w, []domain.Project{*p})
		})
	},
}

func init() {
	projectGetCmd.Flags().StringVar(&projectID, "id", "", "project ID")
	projectGetCmd.Flags().StringVar(&projectName, "name", "", "project name")
	projectGetCmd.Flags().BoolVar(&projectMissingOK, "missing-ok", false, "print nothing instead of failing when the project does not exist")

	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectGetCmd)
}

func writeProjects(w io.Writer, projects []domain.Project) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.Type)
	}
	tw.Flush()
}
