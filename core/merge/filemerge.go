// Copyright 2024 The Bit Authors
// This file is part of bit.
//
// Package merge implements the three-way file merger and config merger of
// spec §4.4 and §4.5.
package merge

import (
	"bytes"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Strategy picks how an unequal both-changed file is resolved.
type Strategy string

const (
	// StrategyPrompt invokes the line merger and, on conflict, surfaces
	// markers for the caller to resolve manually.
	StrategyPrompt Strategy = ""
	StrategyOurs   Strategy = "ours"
	StrategyTheirs Strategy = "theirs"
	StrategyManual Strategy = "manual"
)

// FileResult is one file's merge outcome.
type FileResult struct {
	Content  []byte
	Conflict bool
}

// MergeFile applies the per-file decision table of §4.4. base is the file
// content the three-way merge is grounded on — for the ordinary switch
// case this is the true LCA version; for the checkout-with-modifications
// "stash → switch → pop" case (§4.4 special base rule) the caller passes
// the *target* version as base instead, so callers own that rule, not this
// function.
func MergeFile(base, current, other []byte, strategy Strategy) FileResult {
	switch {
	case bytes.Equal(current, base):
		// unchanged locally: adopt other.
		return FileResult{Content: other}
	case bytes.Equal(other, base):
		// changed only locally: keep current.
		return FileResult{Content: current}
	case bytes.Equal(current, other):
		// both changed identically: keep.
		return FileResult{Content: current}
	}

	switch strategy {
	case StrategyOurs:
		return FileResult{Content: current}
	case StrategyTheirs:
		return FileResult{Content: other}
	default:
		merged, conflict := diff3Merge(base, current, other)
		return FileResult{Content: merged, Conflict: conflict}
	}
}

// hunk is a contiguous base-index range [Start,End) replaced by Lines in one
// of the two variants. A pure insertion has Start == End.
type hunk struct {
	Start, End int
	Lines      []string
}

func splitLines(b []byte) []string {
	s := string(b)
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func computeHunks(base, variant []string) []hunk {
	m := difflib.NewMatcher(base, variant)
	var hunks []hunk
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		hunks = append(hunks, hunk{Start: op.I1, End: op.I2, Lines: append([]string(nil), variant[op.J1:op.J2]...)})
	}
	return hunks
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// diff3Merge merges current and other against base, producing diff3-style
// conflict markers (the contract of UNIX merge(1), §6) wherever both sides
// touched an overlapping base range with different results.
func diff3Merge(baseB, currentB, otherB []byte) ([]byte, bool) {
	base := splitLines(baseB)
	current := splitLines(currentB)
	other := splitLines(otherB)

	hunksA := computeHunks(base, current)
	hunksB := computeHunks(base, other)

	var out []string
	conflict := false
	pos, ai, bi := 0, 0, 0

	for pos < len(base) || ai < len(hunksA) || bi < len(hunksB) {
		hasA := ai < len(hunksA) && hunksA[ai].Start == pos
		hasB := bi < len(hunksB) && hunksB[bi].Start == pos

		switch {
		case hasA && !hasB:
			out = append(out, hunksA[ai].Lines...)
			pos = hunksA[ai].End
			ai++
		case hasB && !hasA:
			out = append(out, hunksB[bi].Lines...)
			pos = hunksB[bi].End
			bi++
		case hasA && hasB:
			a, b := hunksA[ai], hunksB[bi]
			if a.End == b.End && linesEqual(a.Lines, b.Lines) {
				out = append(out, a.Lines...)
				pos = a.End
			} else {
				conflict = true
				out = append(out, "<<<<<<< current\n")
				out = append(out, a.Lines...)
				out = append(out, "=======\n")
				out = append(out, b.Lines...)
				out = append(out, ">>>>>>> other\n")
				if a.End > b.End {
					pos = a.End
				} else {
					pos = b.End
				}
			}
			ai++
			bi++
		default:
			out = append(out, base[pos])
			pos++
		}
	}
	return []byte(strings.Join(out, "")), conflict
}
