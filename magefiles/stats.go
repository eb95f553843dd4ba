// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/magefile/mage/sh"
)

// listFormat makes go list print one tab-separated line per package:
// import path, directory, source files, test files.
const listFormat = `{{.ImportPath}}	{{.Dir}}	{{join .GoFiles ","}}	{{join .TestGoFiles ","}}`

type pkgStats struct {
	name      string
	prodLines int
	testLines int
	testFuncs int
}

// Stats prints source lines, test lines and test function counts for every
// package in the module, with a total.
func Stats() error {
	module, err := sh.Output(binGo, "list", "-m")
	if err != nil {
		return err
	}
	out, err := sh.Output(binGo, "list", "-f", listFormat, "./...")
	if err != nil {
		return err
	}

	var all []pkgStats
	total := pkgStats{name: "total"}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			continue
		}
		ps := pkgStats{name: strings.TrimPrefix(strings.TrimPrefix(fields[0], module), "/")}
		if ps.name == "" {
			ps.name = "."
		}
		for _, f := range splitFiles(fields[2]) {
			n, _, err := scanGoFile(filepath.Join(fields[1], f))
			if err != nil {
				return err
			}
			ps.prodLines += n
		}
		for _, f := range splitFiles(fields[3]) {
			n, tests, err := scanGoFile(filepath.Join(fields[1], f))
			if err != nil {
				return err
			}
			ps.testLines += n
			ps.testFuncs += tests
		}
		total.prodLines += ps.prodLines
		total.testLines += ps.testLines
		total.testFuncs += ps.testFuncs
		all = append(all, ps)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "PACKAGE\tPROD\tTEST\tTESTS\t")
	for _, ps := range append(all, total) {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t\n", ps.name, ps.prodLines, ps.testLines, ps.testFuncs)
	}
	return w.Flush()
}

func splitFiles(list string) []string {
	if list == "" {
		return nil
	}
	return strings.Split(list, ",")
}

// scanGoFile returns the number of lines in path and how many of them
// declare a top-level Test function.
func scanGoFile(path string) (lines, tests int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
		if strings.HasPrefix(sc.Text(), "func Test") {
			tests++
		}
	}
	return lines, tests, sc.Err()
}
