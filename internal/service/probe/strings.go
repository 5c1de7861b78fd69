package probe

import (
	"bufio"
	"errors"
	"io"
	"regexp"
)

const (
	// minRunLength matches the default of strings(1).
	minRunLength = 4
	// maxRunLength bounds the memory held for a single printable run.
	maxRunLength = 64 * 1024
	// runOverlap is kept when a long run is cut so matches across the cut are still found.
	runOverlap = 512
	// readBufferSize is the read-ahead buffer for scanning.
	readBufferSize = 256 * 1024
)

// RuntimePattern matches "<engine>/<version> <runtime>/<major>" and captures the major version.
func RuntimePattern(engineToken, runtimeToken string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(engineToken) + `/[0-9.]* ` + regexp.QuoteMeta(runtimeToken) + `/([0-9]+)`)
}

// FindRuntimeMajor scans the printable runs of r and returns the first captured major version.
func FindRuntimeMajor(r io.Reader, pattern *regexp.Regexp) (string, error) {
	var major string

	err := ScanPrintable(r, func(run []byte, partial bool) bool {
		for _, loc := range pattern.FindAllSubmatchIndex(run, -1) {
			// A match touching the cut may continue past it; the kept overlap rescans it.
			if partial && loc[1] == len(run) {
				continue
			}

			major = string(run[loc[2]:loc[3]])

			return true
		}

		return false
	})
	if err != nil {
		return "", err
	}

	if major == "" {
		return "", ErrRuntimeVersionNotFound
	}

	return major, nil
}

// ScanPrintable calls visit for every run of at least four printable ASCII
// bytes in r, in order, until visit returns true or r is exhausted.
// Runs longer than maxRunLength are delivered in overlapping pieces,
// with partial set for every piece except the last one of the run.
// The slice passed to visit is only valid during the call.
func ScanPrintable(r io.Reader, visit func(run []byte, partial bool) bool) error {
	var (
		reader = bufio.NewReaderSize(r, readBufferSize)
		run    = make([]byte, 0, maxRunLength)
	)

	flush := func() bool {
		stop := len(run) >= minRunLength && visit(run, false)
		run = run[:0]

		return stop
	}

	for {
		b, err := reader.ReadByte()
		if errors.Is(err, io.EOF) {
			flush()

			return nil
		}

		if err != nil {
			return err
		}

		if !isPrintable(b) {
			if flush() {
				return nil
			}

			continue
		}

		run = append(run, b)
		if len(run) < maxRunLength {
			continue
		}

		if visit(run, true) {
			return nil
		}

		run = run[:copy(run, run[len(run)-runOverlap:])]
	}
}

func isPrintable(b byte) bool {
	return b == '\t' || (b >= 0x20 && b < 0x7f)
}
