// Copyright 2024 The Bit Authors
// This file is part of bit.
package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/sessioncfg"
	"github.com/alekstar79/bit/core/lane"
	"github.com/alekstar79/bit/core/record"
)

// lanesIndexPath is where the workspace records its known lanes and which
// one, if any, is active — the "minimal active lane pointer" this CLI
// supplements the checkout engine with.
func lanesIndexPath(e *env) string { return filepath.Join(e.workDir, "lanes.json") }

type lanesIndex struct {
	Active string            `json:"active,omitempty"`
	Refs   map[string]string `json:"refs"` // "scope/name" -> lane object ref
}

func loadLanesIndex(e *env) (*lanesIndex, error) {
	idx := &lanesIndex{Refs: map[string]string{}}
	raw, err := afero.ReadFile(e.fs, lanesIndexPath(e))
	if err != nil {
		if ok, _ := afero.Exists(e.fs, lanesIndexPath(e)); !ok {
			return idx, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func saveLanesIndex(e *env, idx *lanesIndex) error {
	raw, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(e.fs, lanesIndexPath(e), raw, 0o644)
}

// activeLane loads the currently active lane's record, or nil if none is
// active — feeds checkout.Engine.Run's "if a lane is active" steps.
func activeLane(e *env) *record.Lane {
	idx, err := loadLanesIndex(e)
	if err != nil || idx.Active == "" {
		return nil
	}
	ref, ok := idx.Refs[idx.Active]
	if !ok {
		return nil
	}
	l, err := record.LoadLane(e.store, common.Ref(ref))
	if err != nil {
		return nil
	}
	return l
}

func newLaneCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "lane", Short: "Create, list or remove lanes"}
	cmd.AddCommand(newLaneCreateCmd(e), newLaneListCmd(e), newLaneRemoveCmd(e))
	return cmd
}

func newLaneCreateCmd(e *env) *cobra.Command {
	var scope string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new lane and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			session := sessioncfg.NewStore(e.fs, filepath.Join(e.workDir, "session.json"))
			if err := session.Load(); err != nil {
				return err
			}
			l, err := lane.Create(name, scope, nil, session, time.Now().UTC().Format(time.RFC3339))
			if err != nil {
				return err
			}
			ref, err := record.Save(e.store, l)
			if err != nil {
				return err
			}
			idx, err := loadLanesIndex(e)
			if err != nil {
				return err
			}
			key := scope + "/" + name
			idx.Refs[key] = string(ref)
			idx.Active = key
			if err := saveLanesIndex(e, idx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created and switched to lane %s\n", key)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "lane scope")
	return cmd
}

func newLaneListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known lanes",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := loadLanesIndex(e)
			if err != nil {
				return err
			}
			for key := range idx.Refs {
				marker := "  "
				if key == idx.Active {
					marker = "* "
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", marker, key)
			}
			return nil
		},
	}
}

func newLaneRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <scope>/<name>",
		Short: "Forget a lane",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := loadLanesIndex(e)
			if err != nil {
				return err
			}
			delete(idx.Refs, args[0])
			if idx.Active == args[0] {
				idx.Active = ""
			}
			return saveLanesIndex(e, idx)
		},
	}
}
