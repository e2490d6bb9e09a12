package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deixis/mac/internal/container"
	macmcp "github.com/deixis/mac/internal/mcp"
	"github.com/deixis/mac/internal/preflight"
)

func newContainerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "container",
		Short: "Query or start the container system",
	}
	cmd.AddCommand(
		containerOpCmd("version", "Print the container CLI version", func(s *container.System) func(context.Context) (string, error) {
			return s.Version
		}),
		containerOpCmd("status", "Print the container system status", func(s *container.System) func(context.Context) (string, error) {
			return s.Status
		}),
		containerOpCmd("start", "Start the container system", func(s *container.System) func(context.Context) (string, error) {
			return s.Start
		}),
	)
	return cmd
}

func containerOpCmd(use, short string, op func(*container.System) func(context.Context) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out, err := op(a.system)(cmd.Context())
			if err != nil {
				printFailure(cmd, err)
				return err
			}
			if out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
}

// printFailure writes a facade error with its details and remediation.
func printFailure(cmd *cobra.Command, err error) {
	var ce *container.Error
	if !errors.As(err, &ce) {
		return
	}
	cmd.PrintErrln(ce.FullError())
	if ce.RunID != "" {
		cmd.PrintErrf("\nRun `mac history %s` for the raw output.\n", ce.RunID)
	}
}

func newDoctorCmd() *cobra.Command {
	var start bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the container CLI is installed and its system is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rep := (&preflight.Checker{System: a.system, AutoStart: start}).Run(cmd.Context())
			fmt.Fprint(cmd.OutOrStdout(), rep.String())
			return rep.Failure()
		},
	}
	cmd.Flags().BoolVar(&start, "start", false, "start the container system if it is not running")
	return cmd
}

func newGreetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "greet NAME",
		Short: "Print a greeting",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), macmcp.Greet(args[0]))
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history RUN_ID",
		Short: "Show the raw output of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			e, err := a.history.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run: %s\nCommand: %s\n", e.ID, strings.Join(e.Argv, " "))
			if e.LaunchError != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Launch error: %s\n", e.LaunchError)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exit code: %d\n\nStdout:\n%s\nStderr:\n%s\n", e.ExitCode, e.Stdout, e.Stderr)
			return nil
		},
	}
}
