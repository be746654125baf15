// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Lines returns the text of an HTML fragment, one entry per <br> separated
// line. Whitespace runs are collapsed and empty lines are kept.
func Lines(fragment string) ([]string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		return nil, fmt.Errorf("parsing HTML fragment: %w", err)
	}

	var (
		lines []string
		sb    strings.Builder
	)

	flush := func() {
		lines = append(lines, strings.Join(strings.Fields(sb.String()), " "))
		sb.Reset()
	}

	var walk func(n *html.Node)

	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			flush()
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	for _, n := range nodes {
		walk(n)
	}

	flush()

	return lines, nil
}

// Text returns the text of an HTML fragment with line breaks as separators.
func Text(fragment, sep string) (string, error) {
	lines, err := Lines(fragment)
	if err != nil {
		return "", err
	}

	return strings.Join(lines, sep), nil
}
