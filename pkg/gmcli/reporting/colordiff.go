// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Vendored from github.com/mbrt/gmailctl

// Package reporting renders before/after views of label changes.
package reporting

import (
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

// LabelDiff returns a unified diff between two label name lists, one name
// per line. It is empty when the lists are equal.
func LabelDiff(name string, before, after []string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(before),
		B:        lines(after),
		FromFile: name + " (current)",
		ToFile:   name + " (after)",
		Context:  len(before) + len(after),
	})
}

func lines(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n + "\n"
	}
	return out
}

// ColorizeDiff colors a unified diff. Colors follow color.NoColor, so
// output to a pipe or with --no-color stays plain.
func ColorizeDiff(diff string) string {
	colored := &strings.Builder{}
	diffLines := strings.Split(diff, "\n")
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	for i, line := range diffLines {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			bold.Fprint(colored, line)
		case strings.HasPrefix(line, "@@"):
			cyan.Fprint(colored, line)
		case strings.HasPrefix(line, "-"):
			red.Fprint(colored, line)
		case strings.HasPrefix(line, "+"):
			green.Fprint(colored, line)
		default:
			colored.WriteString(line)
		}
		if i < len(diffLines)-1 {
			colored.WriteString("\n")
		}
	}
	return colored.String()
}
