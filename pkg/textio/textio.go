// Package textio parses the whitespace-separated-integer text front end
// and the stepper-file test fixture format (spec §6), in the line-
// oriented scanning idiom the teacher's pkg/config uses for its own
// config files.
package textio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"trajplan/pkg/errors"
	"trajplan/pkg/pool"
)

// JointSpec is one parsed "v_max a_max" line from a program's joint
// header.
type JointSpec struct {
	VMax, AMax float64
}

// Program is a fully parsed text front-end input: a joint configuration
// header followed by a sequence of moves (spec §6 "Text front-end").
type Program struct {
	Joints []JointSpec
	Moves  [][]int
}

// ParseProgram reads the text front-end format: the first line is
// n_joints, the next n_joints lines are "v_max a_max" pairs, and every
// remaining non-blank line is a move of n_joints signed step counts.
func ParseProgram(r io.Reader) (*Program, error) {
	scanner := bufio.NewScanner(r)
	lineNum := 0

	nextFields := func() ([]string, bool, error) {
		for scanner.Scan() {
			lineNum++
			fields := splitFields(scanner.Text())
			if len(fields) == 0 {
				continue
			}
			return fields, true, nil
		}
		if err := scanner.Err(); err != nil {
			return nil, false, errors.ConfigParseError(lineNum, fmt.Sprintf("read error: %v", err))
		}
		return nil, false, nil
	}

	header, ok, err := nextFields()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.ConfigParseError(lineNum, "missing joint count header")
	}
	if len(header) != 1 {
		return nil, errors.ConfigParseError(lineNum, "joint count header must be a single integer")
	}
	n, err := strconv.Atoi(header[0])
	if err != nil || n <= 0 {
		return nil, errors.ConfigParseError(lineNum, fmt.Sprintf("invalid joint count %q", header[0]))
	}

	prog := &Program{Joints: make([]JointSpec, n)}
	for i := 0; i < n; i++ {
		fields, ok, err := nextFields()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.ConfigParseError(lineNum, fmt.Sprintf("expected v_max a_max for joint %d", i))
		}
		if len(fields) != 2 {
			return nil, errors.ConfigParseError(lineNum, fmt.Sprintf("joint %d: expected 2 fields, got %d", i, len(fields)))
		}
		vMax, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, errors.ConfigParseError(lineNum, fmt.Sprintf("joint %d: invalid v_max %q", i, fields[0]))
		}
		aMax, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errors.ConfigParseError(lineNum, fmt.Sprintf("joint %d: invalid a_max %q", i, fields[1]))
		}
		prog.Joints[i] = JointSpec{VMax: vMax, AMax: aMax}
	}

	for {
		fields, ok, err := nextFields()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if len(fields) != n {
			return nil, errors.ConfigParseError(lineNum, fmt.Sprintf("move: expected %d fields, got %d", n, len(fields)))
		}
		move := make([]int, n)
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.ConfigParseError(lineNum, fmt.Sprintf("move: invalid step count %q", f))
			}
			move[i] = v
		}
		prog.Moves = append(prog.Moves, move)
	}

	return prog, nil
}

// ParseStepperFile reads the stepper-file fixture format: lines that
// start with '#' or a space are comments, blank lines are skipped, and
// every other line is n_joints signed integers (spec §6 "Stepper file
// format"). n_joints is inferred from the first data line.
func ParseStepperFile(r io.Reader) ([][]int, error) {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	var moves [][]int
	n := -1

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, " ") {
			continue
		}

		fields := splitFields(line)
		if n < 0 {
			n = len(fields)
		} else if len(fields) != n {
			return nil, errors.ConfigParseError(lineNum, fmt.Sprintf("expected %d fields, got %d", n, len(fields)))
		}

		move := make([]int, len(fields))
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.ConfigParseError(lineNum, fmt.Sprintf("invalid step count %q", f))
			}
			move[i] = v
		}
		moves = append(moves, move)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.ConfigParseError(lineNum, fmt.Sprintf("read error: %v", err))
	}

	return moves, nil
}

// splitFields tokenizes a line on whitespace, appending into a pooled
// string slice to avoid strings.Fields' own allocation, then copies the
// tokens out before returning the slice to the pool.
func splitFields(line string) []string {
	scratch := pool.GetStringSlice()
	defer pool.PutStringSlice(scratch)

	start := -1
	for i, r := range line {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if start >= 0 {
				*scratch = append(*scratch, line[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		*scratch = append(*scratch, line[start:])
	}

	out := make([]string, len(*scratch))
	copy(out, *scratch)
	return out
}

// WriteMove formats a signed move vector as a stepper-file data line.
func WriteMove(w io.Writer, move []int) error {
	parts := make([]string, len(move))
	for i, v := range move {
		parts[i] = strconv.Itoa(v)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, " "))
	return err
}
