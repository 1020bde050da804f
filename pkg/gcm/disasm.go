package gcm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hansbonini/gcmtools/pkg/common"
)

// DefaultObjdump is the objdump binary looked up in PATH
const DefaultObjdump = "objdump"

var objdumpArgs = []string{"-mpowerpc", "-D", "-b", "binary", "-EB", "-M", "750cl"}

const objdumpStartMarker = "<.data>:"

var (
	// ErrObjdumpUnavailable is returned when the objdump binary is not GNU objdump.
	ErrObjdumpUnavailable = errors.New("GNU objdump required")

	// ErrObjdumpOutput is returned when objdump output has no disassembly section.
	ErrObjdumpOutput = errors.New("invalid output from objdump")
)

// Instruction is one disassembled PowerPC instruction
type Instruction struct {
	Offset uint64
	Opcode uint32
	Text   string
}

func (i Instruction) String() string {
	return fmt.Sprintf("%08x: %08x  %s", i.Offset, i.Opcode, i.Text)
}

// Disassembler runs GNU objdump over raw Gekko (PowerPC 750CL) machine code
type Disassembler struct {
	Objdump string
}

// NewDisassembler creates a disassembler using the given objdump binary
// (DefaultObjdump when empty).
func NewDisassembler(objdump string) *Disassembler {
	if objdump == "" {
		objdump = DefaultObjdump
	}
	return &Disassembler{Objdump: objdump}
}

// CheckVersion verifies that the configured binary is GNU objdump
func (d *Disassembler) CheckVersion(ctx context.Context) error {
	out, err := exec.CommandContext(ctx, d.Objdump, "--version").Output()
	if err != nil || !bytes.HasPrefix(out, []byte("GNU objdump")) {
		return fmt.Errorf("%w: %s", ErrObjdumpUnavailable, d.Objdump)
	}
	return nil
}

// Disassemble disassembles the raw binary file at binaryPath
func (d *Disassembler) Disassemble(ctx context.Context, binaryPath string) ([]Instruction, error) {
	if err := d.CheckVersion(ctx); err != nil {
		return nil, err
	}
	args := append(append([]string{}, objdumpArgs...), binaryPath)
	common.LogDebug(common.DebugObjdumpArgs, d.Objdump, args)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.Objdump, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("objdump failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return ParseObjdump(bytes.NewReader(out))
}

// ParseObjdump parses the output of objdump -D. Lines before the disassembly
// of the .data section are skipped; lines that are not instructions are ignored.
func ParseObjdump(r io.Reader) ([]Instruction, error) {
	scanner := bufio.NewScanner(r)
	started := false
	for scanner.Scan() {
		if strings.HasSuffix(strings.TrimSpace(scanner.Text()), objdumpStartMarker) {
			started = true
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !started {
		return nil, ErrObjdumpOutput
	}

	var instructions []Instruction
	for scanner.Scan() {
		if inst, ok := parseInstruction(scanner.Text()); ok {
			instructions = append(instructions, inst)
		}
	}
	return instructions, scanner.Err()
}

// parseInstruction parses a line such as
//
//	0:	94 21 ff f0 	stwu    r1,-16(r1)
func parseInstruction(line string) (Instruction, bool) {
	address, rest, ok := strings.Cut(line, ":")
	if !ok {
		return Instruction{}, false
	}
	offset, err := strconv.ParseUint(strings.TrimSpace(address), 16, 64)
	if err != nil {
		return Instruction{}, false
	}

	fields := strings.Fields(rest)
	if len(fields) < 4 {
		return Instruction{}, false
	}
	opcode, err := hex.DecodeString(strings.Join(fields[:4], ""))
	if err != nil || len(opcode) != 4 {
		return Instruction{}, false
	}
	return Instruction{
		Offset: offset,
		Opcode: binary.BigEndian.Uint32(opcode),
		Text:   strings.Join(fields[4:], " "),
	}, true
}
