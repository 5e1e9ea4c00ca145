// Package padova restructures the flat dumps of the Padova test stand into
// one directory per measurement, the layout used by the CERN data sets.
package padova

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/project8/pmana/Go/logging"
)

// DefaultPattern captures the five digit measurement number of a dump.
const DefaultPattern = `--(\d{5})\.txt$`

var ErrNoCaptureGroup = errors.New("padova: pattern needs a capture group for the measurement number")

type Options struct {
	// Pattern overrides DefaultPattern; its first group is the measurement number.
	Pattern string
	// Move renames files instead of copying them.
	Move bool
}

// Report summarises one reorganisation.
type Report struct {
	Placed       int
	Skipped      []string
	Measurements []string
}

// Format places every *.txt file of input into target/<measurement>/.
// Files whose names do not carry a measurement number are skipped.
func Format(input, target string, opts Options) (Report, error) {
	var report Report

	pattern := opts.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return report, fmt.Errorf("padova: bad pattern %q: %w", pattern, err)
	}
	if re.NumSubexp() < 1 {
		return report, ErrNoCaptureGroup
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return report, err
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		if ok, _ := filepath.Match("*.txt", fileName); !ok {
			continue
		}

		match := re.FindStringSubmatch(fileName)
		if match == nil || match[1] == "" {
			logging.Log.Infof("Skipping unrecognized file: %s", fileName)
			report.Skipped = append(report.Skipped, fileName)
			continue
		}
		measurement := match[1]

		measurementDir := filepath.Join(target, measurement)
		if mkErr := os.MkdirAll(measurementDir, 0755); mkErr != nil {
			return report, fmt.Errorf("padova: unable to create <%s>: %w", measurementDir, mkErr)
		}

		src := filepath.Join(input, fileName)
		dst := filepath.Join(measurementDir, fileName)
		if opts.Move {
			err = os.Rename(src, dst)
		} else {
			err = copyFile(src, dst)
		}
		if err != nil {
			return report, fmt.Errorf("padova: unable to place <%s>: %w", fileName, err)
		}
		logging.Log.Debugf("Placed <%s> in <%s>", fileName, measurementDir)

		report.Placed++
		if !seen[measurement] {
			seen[measurement] = true
			report.Measurements = append(report.Measurements, measurement)
		}
	}
	sort.Strings(report.Measurements)
	return report, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()
	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
