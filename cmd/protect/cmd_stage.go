package main

import (
	"fmt"
	"io"

	"protect/pkg/domain"
	"protect/pkg/rulespec"

	"github.com/spf13/cobra"
)

var (
	stageProjectID   string
	stageProjectName string
	stageID          string
	stageName        string
	stageDescription string
	stageType        string
	stagePause       bool
	stageRulesets    string
)

// stageCmd 阶段管理
var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Manage stages of a project",
	Long: `Stages group rulesets under a project. Local stages receive rulesets on
every invocation; central stages keep versioned rulesets on the server.

Identifiers that are not given fall back to protect-config.json.`,
}

var stageCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a stage and make it the default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := parseID("project-id", stageProjectID)
		if err != nil {
			return err
		}
		rulesets, err := readRulesets(stageRulesets, cmd.InOrStdin())
		if err != nil {
			return err
		}
		p := domain.CreateStageParams{
			ProjectID:           pid,
			Description:         stageDescription,
			Pause:               stagePause,
			Type:                rulespec.StageType(stageType),
			PrioritizedRulesets: rulesets,
		}
		if len(args) == 1 {
			p.Name = args[0]
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := s.svc.CreateStage(cmd.Context(), p)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), st, func(w io.Writer) {
			fmt.Fprintf(w, "Created %s stage %q (%s)\n", st.Type, st.Name, st.ID)
		})
	},
}

var stageGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a stage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := stageRef()
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := s.svc.GetStage(cmd.Context(), ref)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), st, func(w io.Writer) { writeStage(w, st) })
	},
}

var stageUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Publish a new ruleset version for a central stage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := stageRef()
		if err != nil {
			return err
		}
		rulesets, err := readRulesets(stageRulesets, cmd.InOrStdin())
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := s.svc.UpdateStage(cmd.Context(), ref, rulesets)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), st, func(w io.Writer) { writeStage(w, st) })
	},
}

// newToggleCmd pause/resume 共用
func newToggleCmd(use, short string, pause bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := parseID("project-id", stageProjectID)
			if err != nil {
				return err
			}
			sid, err := parseID("stage-id", stageID)
			if err != nil {
				return err
			}
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if pause {
				err = s.svc.PauseStage(cmd.Context(), pid, sid)
			} else {
				err = s.svc.ResumeStage(cmd.Context(), pid, sid)
			}
			if err != nil {
				return err
			}
			state := map[string]bool{"paused": pause}
			return printResult(cmd.OutOrStdout(), state, func(w io.Writer) {
				if pause {
					fmt.Fprintln(w, "Stage paused.")
				} else {
					fmt.Fprintln(w, "Stage resumed.")
				}
			})
		},
	}
}

var (
	stagePauseCmd  = newToggleCmd("pause", "Pause a stage", true)
	stageResumeCmd = newToggleCmd("resume", "Resume a paused stage", false)
)

func init() {
	for _, c := range []*cobra.Command{stageCreateCmd, stageGetCmd, stageUpdateCmd, stagePauseCmd, stageResumeCmd} {
		c.Flags().StringVar(&stageProjectID, "project-id", "", "project ID (default from config)")
	}
	for _, c := range []*cobra.Command{stageGetCmd, stageUpdateCmd} {
		c.Flags().StringVar(&stageProjectName, "project-name", "", "project name (default from config)")
		c.Flags().StringVar(&stageName, "name", "", "stage name (default from config)")
	}
	for _, c := range []*cobra.Command{stageGetCmd, stageUpdateCmd, stagePauseCmd, stageResumeCmd} {
		c.Flags().StringVar(&stageID, "id", "", "stage ID (default from config)")
	}
	for _, c := range []*cobra.Command{stageCreateCmd, stageUpdateCmd} {
		c.Flags().StringVar(&stageRulesets, "rulesets-file", "", "JSON file with prioritized rulesets, - for stdin")
	}

	f := stageCreateCmd.Flags()
	f.StringVar(&stageDescription, "description", "", "stage description")
	f.StringVar(&stageType, "type", string(rulespec.StageLocal), "stage type: local or central")
	f.BoolVar(&stagePause, "pause", false, "create the stage paused")

	stageCmd.AddCommand(stageCreateCmd, stageGetCmd, stageUpdateCmd, stagePauseCmd, stageResumeCmd)
}

func stageRef() (domain.StageRef, error) {
	pid, err := parseID("project-id", stageProjectID)
	if err != nil {
		return domain.StageRef{}, err
	}
	sid, err := parseID("id", stageID)
	if err != nil {
		return domain.StageRef{}, err
	}
	return domain.StageRef{
		ProjectID:   pid,
		ProjectName: stageProjectName,
		StageID:     sid,
		StageName:   stageName,
	}, nil
}

func writeStage(w io.Writer, st *rulespec.StageResponse) {
	fmt.Fprintf(w, "ID:       %s\n", st.ID)
	fmt.Fprintf(w, "Name:     %s\n", st.Name)
	fmt.Fprintf(w, "Project:  %s\n", st.ProjectID)
	fmt.Fprintf(w, "Type:     %s\n", st.Type)
	fmt.Fprintf(w, "Paused:   %t\n", st.Paused)
	if st.Version != nil {
		fmt.Fprintf(w, "Version:  %d\n", *st.Version)
	}
	fmt.Fprintf(w, "Rulesets: %d\n", len(st.PrioritizedRulesets))
}
