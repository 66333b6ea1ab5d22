// Copyright 2024 The Bit Authors
// This file is part of bit.
package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alekstar79/bit-corelib/objstore"
	"github.com/alekstar79/bit/core/bitmap"
	"github.com/alekstar79/bit/core/workspace"
)

// env bundles the process-wide collaborators every subcommand needs,
// opened lazily from persistent flags (§5 "global state").
type env struct {
	fs        afero.Fs
	workDir   string
	store     *objstore.Store
	bm        *bitmap.Bitmap
	registry  *fileRegistry
	lookup    *workspace.Lookup
	log       *zap.Logger
	verbose   bool
}

func newRootCmd() *cobra.Command {
	var workDir string
	var verbose bool

	root := &cobra.Command{
		Use:           "bit",
		Short:         "Component-oriented version control",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&workDir, "workspace", ".bit", "workspace directory")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	e := &env{}
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		e.workDir = workDir
		if !cmd.Flags().Changed("workspace") {
			if override, ok := loadBitConfig(afero.NewOsFs()); ok {
				e.workDir = override
			}
		}
		e.verbose = verbose
		return e.open()
	}

	root.AddCommand(newCheckoutCmd(e))
	root.AddCommand(newStatusCmd(e))
	root.AddCommand(newLaneCmd(e))
	return root
}

func (e *env) open() error {
	e.fs = afero.NewOsFs()

	var log *zap.Logger
	var err error
	if e.verbose {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	e.log = log

	store, err := objstore.New(e.fs, e.workDir+"/objects")
	if err != nil {
		return err
	}
	e.store = store

	bm, err := bitmap.Open(e.fs, e.workDir+"/bitmap.json")
	if err != nil {
		return err
	}
	e.bm = bm

	reg, err := openFileRegistry(e.fs, e.workDir+"/registry.json")
	if err != nil {
		return err
	}
	e.registry = reg

	workspace.SetDiskHasher(e.hashesDiffer)
	e.lookup = workspace.New(e.store, e.bm, e.registry)
	return nil
}
