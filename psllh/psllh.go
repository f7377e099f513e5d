// Package psllh reads the per-site log-likelihood summand files consumed
// by cmd/reprosum, grounded on original_source/src/main.cpp's
// IO::read_psllh / IO::read_binpsllh calls. Two formats are supported,
// selected by file extension: ".psllh" is ASCII, one floating-point
// value per line; ".binpsllh" is a raw stream of little-endian IEEE-754
// float64 values with no header.
package psllh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Read dispatches on filename's extension and loads its summands,
// mirroring main.cpp's ends_with(".psllh") / ends_with(".binpsllh")
// branch.
func Read(filename string) ([]float64, error) {
	switch {
	case strings.HasSuffix(filename, ".psllh"):
		return ReadText(filename)
	case strings.HasSuffix(filename, ".binpsllh"):
		return ReadBinary(filename)
	default:
		return nil, fmt.Errorf("psllh: %q must end with .psllh or .binpsllh", filename)
	}
}

// ReadText parses an ASCII .psllh file, one float64 per line. Blank
// lines are skipped.
func ReadText(filename string) ([]float64, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("psllh: %w", err)
	}
	defer f.Close()

	var values []float64
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("psllh: %s:%d: %w", filename, lineNo, err)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("psllh: %s: %w", filename, err)
	}
	return values, nil
}

// ReadBinary parses a .binpsllh file: a raw sequence of little-endian
// float64 values with no header or length prefix, so the summand count
// is simply the file size divided by 8.
func ReadBinary(filename string) ([]float64, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("psllh: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("psllh: %w", err)
	}
	if info.Size()%8 != 0 {
		return nil, fmt.Errorf("psllh: %s: size %d is not a multiple of 8 bytes", filename, info.Size())
	}

	n := info.Size() / 8
	values := make([]float64, n)
	r := bufio.NewReader(f)
	for i := range values {
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("psllh: %s: truncated at element %d", filename, i)
			}
			return nil, fmt.Errorf("psllh: %s: %w", filename, err)
		}
		values[i] = math.Float64frombits(bits)
	}
	return values, nil
}
