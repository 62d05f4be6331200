package vm

import (
	"errors"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Run steps the VM until it halts or fails. The returned count is the total
// number of instructions retired. An io.EOF from the console is a clean end
// of session, not a failure.
func (vm *VM) Run() (uint64, error) {
	for !vm.halted {
		if err := vm.Step(); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("end of input, stopping the main loop")
				vm.halted = true
				return vm.count, nil
			}
			return vm.count, err
		}
	}
	return vm.count, nil
}

// Diagnose formats a fatal execution error together with the instruction it
// happened at and a state dump, for reporting on stderr.
func (vm *VM) Diagnose(err error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n at instruction: %d: %s\n", err, vm.pc, vm.DisassembleAt(vm.pc))
	vm.WriteState(&sb)
	return sb.String()
}
