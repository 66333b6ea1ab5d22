// Copyright 2024 The Bit Authors
// This file is part of bit.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit/core/checkout"
	"github.com/alekstar79/bit/core/merge"
)

func newCheckoutCmd(e *env) *cobra.Command {
	var (
		all            bool
		strategyFlag   string
		skipNpmInstall bool
		workspaceOnly  bool
		resetFlag      bool
	)

	cmd := &cobra.Command{
		Use:   "checkout <target> [pattern...]",
		Short: "Check out components to head, latest, reset, or a literal version",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, literal, err := parseTarget(args[0])
			if err != nil {
				return cobraExit2(err)
			}
			patterns := args[1:]
			if len(patterns) > 0 && all {
				return cobraExit2(fmt.Errorf("pattern and --all are mutually exclusive"))
			}
			strategy, err := parseStrategy(strategyFlag)
			if err != nil {
				return cobraExit2(err)
			}

			ids := make([]common.ComponentID, 0, len(patterns))
			for _, p := range patterns {
				ids = append(ids, parseComponentID(p))
			}

			props := checkout.Props{
				Target:         target,
				LiteralVersion: literal,
				IDs:            ids,
				All:            all,
				MergeStrategy:  strategy,
				Reset:          resetFlag,
				WorkspaceOnly:  workspaceOnly,
				Verbose:        e.verbose,
				SkipNpmInstall: skipNpmInstall,
			}

			writer := &fsWriteBack{fs: e.fs, workDir: e.workDir}
			eng := checkout.NewEngine(e.lookup, e.bm, nil, writer, e.log)

			var activeLaneRecord = activeLane(e)
			rep, runErr := eng.Run(cmd.Context(), props, activeLaneRecord)
			printReport(cmd, rep)

			code := checkout.ExitCode(rep, runErr)
			if code != 0 {
				if code == 2 {
					return cobraExit2(runErr)
				}
				if runErr != nil {
					return runErr
				}
				return fmt.Errorf("checkout: %d component(s) failed", len(rep.Failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "operate on every component in scope (or on the active lane)")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "conflict strategy: ours|theirs|manual")
	cmd.Flags().BoolVar(&skipNpmInstall, "skip-npm-install", false, "skip dependency installation in write-back")
	cmd.Flags().BoolVar(&workspaceOnly, "workspace-only", false, "don't hydrate new-from-lane components from the model")
	cmd.Flags().BoolVar(&resetFlag, "reset", false, "discard local modifications instead of merging")
	return cmd
}

func parseTarget(s string) (checkout.Target, common.Ref, error) {
	switch s {
	case "head":
		return checkout.TargetHead, "", nil
	case "latest":
		return checkout.TargetLatest, "", nil
	case "reset":
		return checkout.TargetReset, "", nil
	default:
		if common.Ref(s).Valid() {
			return checkout.TargetLiteralVersion, common.Ref(s), nil
		}
		return 0, "", fmt.Errorf("invalid target %q: must be head, latest, reset, or a literal version hash", s)
	}
}

func parseStrategy(s string) (merge.Strategy, error) {
	switch s {
	case "", "prompt":
		return merge.StrategyPrompt, nil
	case "ours":
		return merge.StrategyOurs, nil
	case "theirs":
		return merge.StrategyTheirs, nil
	case "manual":
		return merge.StrategyManual, nil
	default:
		return "", fmt.Errorf("invalid --strategy %q", s)
	}
}

func parseComponentID(s string) common.ComponentID {
	scope, name := "", s
	if i := strings.Index(s, "/"); i >= 0 {
		scope, name = s[:i], s[i+1:]
	}
	return common.ComponentID{Scope: scope, Name: name}
}

func printReport(cmd *cobra.Command, rep *checkout.Report) {
	if rep == nil {
		return
	}
	for _, id := range rep.Applied {
		fmt.Fprintf(cmd.OutOrStdout(), "applied\t%s\n", id)
	}
	for _, id := range rep.Removed {
		fmt.Fprintf(cmd.OutOrStdout(), "removed\t%s\n", id)
	}
	for key, reason := range rep.Failed {
		fmt.Fprintf(cmd.OutOrStdout(), "failed\t%s\t%s\n", key, reason)
	}
	if rep.NewFromLaneAdded {
		for _, id := range rep.NewFromLane {
			fmt.Fprintf(cmd.OutOrStdout(), "new-from-lane\t%s\n", id)
		}
	}
}

// cobraExit2 marks an error as the §6 exit-code-2 class; main exits with 2
// for it. RunE also wraps checkout.Props.Validate's argument-combination
// errors with it, the ones checkout.ExitCode maps to 2.
type exit2Error struct{ err error }

func (e exit2Error) Error() string { return e.err.Error() }

func cobraExit2(err error) error { return exit2Error{err} }
