package quantum

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LineKind classifies a single line of circuit text
type LineKind int

const (
	// LineBlank is an empty or whitespace-only line
	LineBlank LineKind = iota
	// LineComment starts with the "//" comment marker
	LineComment
	// LineVersion is the OPENQASM version header
	LineVersion
	// LineDeclaration is any line containing "reg" (qreg/creg declarations)
	LineDeclaration
	// LineInstruction is a "<gate> <reg>[<index>]..." line
	LineInstruction
	// LineUnrecognized is everything else; it is skipped silently
	LineUnrecognized
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineComment:
		return "comment"
	case LineVersion:
		return "version"
	case LineDeclaration:
		return "declaration"
	case LineInstruction:
		return "instruction"
	default:
		return "unrecognized"
	}
}

const commentMarker = "//"

var (
	qregRegex        = regexp.MustCompile(`qreg\s+\w+\s*\[\s*(\d+)\s*\]`)
	targetIndexRegex = regexp.MustCompile(`\[(\d+)\]`)
)

// ClassifyLine determines how the extractor treats a line of circuit text.
// Declarations are recognised by the substring "reg" anywhere in the line, so a
// gate line that happens to contain "reg" is treated as a declaration too.
func ClassifyLine(line string) LineKind {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return LineBlank
	case strings.HasPrefix(line, commentMarker):
		return LineComment
	case strings.HasPrefix(line, "OPENQASM"):
		return LineVersion
	case strings.Contains(line, "reg"):
		return LineDeclaration
	}

	fields := strings.Fields(line)
	if len(fields) < 2 || !targetIndexRegex.MatchString(fields[1]) {
		return LineUnrecognized
	}
	return LineInstruction
}

// parseInstruction splits an instruction line into gate symbol and target index. The
// symbol is kept as written; gate names are case-sensitive.
func parseInstruction(line string) (Instruction, bool) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 2 {
		return Instruction{}, false
	}

	m := targetIndexRegex.FindStringSubmatch(fields[1])
	if m == nil {
		return Instruction{}, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return Instruction{}, false
	}

	return Instruction{
		Gate:  fields[0],
		Qubit: idx,
	}, true
}

// registerSize returns the size of the first qreg declaration with a positive size.
// Commented-out declarations don't count.
func registerSize(lines []string) (int, bool) {
	for _, line := range lines {
		if ClassifyLine(line) == LineComment {
			continue
		}
		m := qregRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		return n, true
	}
	return 0, false
}

// Extract scans circuit text and produces the register size and the ordered instruction
// sequence. Malformed lines are skipped; unknown gate symbols are kept and left to the
// evolver.
func Extract(text string, opts Options) (*Program, error) {
	opts = opts.withDefaults()
	lines := strings.Split(text, "\n")

	numQubits, ok := registerSize(lines)
	if !ok {
		numQubits = opts.DefaultQubits
	}
	if numQubits > opts.MaxQubits {
		return nil, errors.Wrapf(ErrTooManyQubits, "register has %d qubits, limit is %d", numQubits, opts.MaxQubits)
	}

	program := &Program{
		NumQubits:    numQubits,
		Instructions: make([]Instruction, 0, len(lines)),
	}
	for _, line := range lines {
		if ClassifyLine(line) != LineInstruction {
			continue
		}
		if in, ok := parseInstruction(line); ok {
			program.Instructions = append(program.Instructions, in)
		}
	}

	return program, nil
}
