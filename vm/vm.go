package vm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Console is the character device the guest program talks to through the in
// and out instructions. The interactive shell implements it; tests plug in
// buffers.
type Console interface {
	// ReadChar blocks until one character of input is available. Returning
	// io.EOF ends the session cleanly.
	ReadChar() (byte, error)

	// WriteChar delivers one character of guest output.
	WriteChar(c byte) error
}

var (
	errProgramHalted = errors.New("vm: program has halted")

	ErrUnknownOpcode    = errors.New("vm: unknown opcode")
	ErrBadAddress       = errors.New("vm: memory address out of range")
	ErrExpectedRegister = errors.New("vm: operand must be a register reference")
	ErrStackUnderflow   = errors.New("vm: pop on empty stack")
	ErrDivisionByZero   = errors.New("vm: division by zero")
	ErrIO               = errors.New("vm: input-output error")
	ErrRomTooLarge      = errors.New("vm: ROM does not fit in memory")
)

type VM struct {
	// The 64 KiB backing store lives on the heap; every word access goes
	// through readWord/writeWord which keep byte offsets even.
	memory    []byte
	registers [NumRegisters]Word
	stack     []Word
	pc        Word
	halted    bool

	// Total instructions retired so far
	count uint64

	// Character device for the in/out instructions
	console Console
}

// NewVirtualMachine returns a VM with zeroed memory and registers, an empty
// stack, and the program counter at address 0.
func NewVirtualMachine(console Console) *VM {
	return &VM{
		memory:  make([]byte, memoryBytes),
		stack:   make([]Word, 0, 64),
		console: console,
	}
}

// LoadROM copies the ROM image verbatim into memory starting at byte 0.
// Trailing memory keeps whatever it held before (zero on a fresh VM).
func (vm *VM) LoadROM(rom []byte) error {
	if len(rom) > len(vm.memory) {
		return fmt.Errorf("%w: %d bytes", ErrRomTooLarge, len(rom))
	}
	copy(vm.memory, rom)
	log.Debugf("loaded %d byte ROM (%d words)", len(rom), len(rom)/2)
	return nil
}

// readWord fetches the word at the given word address.
func (vm *VM) readWord(addr Word) (Word, error) {
	if addr >= memoryWords {
		return 0, fmt.Errorf("%w: read at %d", ErrBadAddress, addr)
	}
	return binary.LittleEndian.Uint16(vm.memory[2*addr:]), nil
}

// writeWord stores a word at the given word address.
func (vm *VM) writeWord(addr, v Word) error {
	if addr >= memoryWords {
		return fmt.Errorf("%w: write at %d", ErrBadAddress, addr)
	}
	binary.LittleEndian.PutUint16(vm.memory[2*addr:], v)
	return nil
}

// resolve interprets a raw operand word: literals stand for themselves,
// register references stand for the register's current value.
func (vm *VM) resolve(w Word) (Word, error) {
	if isLiteral(w) {
		return w, nil
	}
	if isRegister(w) {
		return vm.registers[registerIndex(w)], nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidWord, w)
}

// destRegister validates the raw word as a register reference and returns
// its index. Used for every operand position the write-destination rule
// applies to.
func destRegister(w Word) (int, error) {
	if !isRegister(w) {
		return 0, fmt.Errorf("%w: got raw word %d", ErrExpectedRegister, w)
	}
	return registerIndex(w), nil
}

// PC returns the address of the next instruction.
func (vm *VM) PC() Word { return vm.pc }

// Halted reports whether the halt flag has been set.
func (vm *VM) Halted() bool { return vm.halted }

// InstructionCount returns the number of instructions retired so far.
func (vm *VM) InstructionCount() uint64 { return vm.count }

// Registers returns a snapshot of the register file.
func (vm *VM) Registers() [NumRegisters]Word { return vm.registers }

// Stack returns a copy of the stack, bottom first.
func (vm *VM) Stack() []Word {
	out := make([]Word, len(vm.stack))
	copy(out, vm.stack)
	return out
}

// MemoryImage returns a copy of the full 65,536-byte backing store.
func (vm *VM) MemoryImage() []byte {
	out := make([]byte, len(vm.memory))
	copy(out, vm.memory)
	return out
}

// SetRegister overwrites one register. Only used by tests and state restore.
func (vm *VM) SetRegister(idx int, v Word) {
	vm.registers[idx] = v
}

// String generates a short representation of the VM state.
func (vm *VM) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "{PC:%d halted:%v count:%d registers:%v", vm.pc, vm.halted, vm.count, vm.registers)
	fmt.Fprintf(&sb, " stack(%d):%v}", len(vm.stack), vm.stack)
	return sb.String()
}

// WriteState writes a human-readable multi-line state dump. Diagnose appends
// it to fatal error reports.
func (vm *VM) WriteState(w io.Writer) {
	fmt.Fprintf(w, "pc: %d\n", vm.pc)
	fmt.Fprintf(w, "halted: %v\n", vm.halted)
	fmt.Fprintf(w, "instructions executed: %d\n", vm.count)
	for i, r := range vm.registers {
		fmt.Fprintf(w, "r%d: %d\n", i, r)
	}
	fmt.Fprintf(w, "stack (%d, top last): %v\n", len(vm.stack), vm.stack)
	fmt.Fprintf(w, "next instruction: %s\n", vm.DisassembleAt(vm.pc))
}
