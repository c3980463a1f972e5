package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// maxConcurrentLoads is the maximum number of filter lists read at the
	// same time.
	maxConcurrentLoads = 8

	// maxLineLength is the maximum length of a filter list line.
	maxLineLength = 64 * 1024
)

// errNoFilterLists is returned when no filter lists are specified.
const errNoFilterLists errors.Error = "no filter lists specified"

// loadRules reads the filter lists concurrently and returns their lines in the
// order of paths.
func loadRules(paths []string) (lines []string, err error) {
	if len(paths) == 0 {
		return nil, errNoFilterLists
	}

	contents := make([][]string, len(paths))

	g := &errgroup.Group{}
	g.SetLimit(maxConcurrentLoads)
	for i, p := range paths {
		g.Go(func() (readErr error) {
			contents[i], readErr = readLines(p)

			return readErr
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	lines = []string{}
	for _, c := range contents {
		lines = append(lines, c...)
	}

	return lines, nil
}

// readLines returns the lines of the file.
func readLines(path string) (lines []string, err error) {
	// #nosec G304 -- The path is provided by the user.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading filter list: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineLength)
	for s.Scan() {
		lines = append(lines, s.Text())
	}

	err = s.Err()
	if err != nil {
		return nil, fmt.Errorf("reading filter list %q: %w", path, err)
	}

	return lines, nil
}
