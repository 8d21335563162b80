// Copyright 2025 The Distill Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/distill/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
