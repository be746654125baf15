// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils holds the small text helpers shared by the CLI, the
// server and the viewer.
package textutils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Lower lower-cases s using Unicode case mapping rules.
func Lower(s string) string {
	// Casers keep state, so one per call.
	return cases.Lower(language.Und).String(s)
}

// ContainsFold reports whether substr, already lower-cased, occurs in s
// regardless of case.
func ContainsFold(s, lowerSubstr string) bool {
	return strings.Contains(Lower(s), lowerSubstr)
}

// FormatInt formats an integer with thousands separators for human readability.
func FormatInt(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}
