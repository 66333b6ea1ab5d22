// Copyright 2024 The Bit Authors
// This file is part of bit.
package main

import (
	"fmt"
	"os"
)

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	if _, ok := err.(exit2Error); ok {
		os.Exit(2)
	}
	os.Exit(1)
}
