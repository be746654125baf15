// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/jcodagnone/afyamap/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
