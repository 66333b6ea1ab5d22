// Copyright 2024 The Bit Authors
// This file is part of bit.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alekstar79/bit/core/checkout"
)

// newStatusCmd runs the same componentStatusBeforeMergeAttempt classifier
// the checkout engine's step 4 computes, without running the apply
// pipeline — the CLI surface's "run status" escape hatch referenced by the
// merge-pending failure message.
func newStatusCmd(e *env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "status [pattern...]",
		Short: "Show per-component checkout status without applying anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			lane := activeLane(e)
			props := checkout.Props{Target: checkout.TargetHead, All: all || (len(args) == 0 && lane != nil)}
			for _, p := range args {
				props.IDs = append(props.IDs, parseComponentID(p))
			}

			targetIDs := props.IDs
			if props.All {
				if lane != nil {
					targetIDs = lane.ComponentIDs()
				} else {
					for _, en := range e.bm.All() {
						targetIDs = append(targetIDs, en.ID.WithoutVersion())
					}
				}
			}

			for _, id := range targetIDs {
				st := checkout.Classify(props, id, e.lookup)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, statusLabel(st))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "check every component in scope (or the active lane)")
	return cmd
}

func statusLabel(st checkout.ComponentStatus) string {
	switch st.Outcome {
	case checkout.OutcomeFailure:
		return string(st.Reason)
	case checkout.OutcomeShouldBeRemoved:
		return "will be removed"
	case checkout.OutcomeReadyNoMerge:
		return "ready (no merge needed)"
	case checkout.OutcomeReadyNeedsMerge:
		return "ready (three-way merge needed)"
	default:
		return "unknown"
	}
}
