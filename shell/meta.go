package shell

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/maskimko/synacor-challenge/maze"
)

// File names the persisting meta-commands write to.
const (
	historyFile    = "history.txt"
	stateFile      = "vm_state.txt"
	memoryDumpFile = "vm_memory_dump.bin"
	recordFile     = "output.txt"
	dotFile        = "maze.dot"
)

const defaultSolveSteps = 100

const defaultDisasmCount = 16

var metaHelp = [][2]string{
	{"/help", "print this list"},
	{"/show_config", "print the session configuration"},
	{"/show_state", "dump VM and solver state"},
	{"/show_history", "print accepted commands in order"},
	{"/save_history", "persist history to " + historyFile},
	{"/show_replay", "print the pending replay queue"},
	{"/show_path", "print the path back to the start"},
	{"/record_output", "mirror guest output to " + recordFile},
	{"/dump_state", "persist the state dump to " + stateFile},
	{"/dump_memory", "persist raw memory to " + memoryDumpFile},
	{"/dump_dot", "export the maze graph to " + dotFile},
	{"/disasm [n]", "disassemble n instructions at the program counter"},
	{"/solve [n]", "let the solver explore for n steps (default 100)"},
}

// dispatchMeta runs one slash command. Everything here is recoverable:
// failures surface as stderr messages and the session continues.
func (s *Shell) dispatchMeta(line string) {
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		warnColor.Fprintln(s.stderr, "empty meta-command; try /help")
		return
	}
	name, args := fields[0], fields[1:]

	switch name {
	case "help":
		for _, entry := range metaHelp {
			metaColor.Fprintf(s.stderr, "%-16s %s\n", entry[0], entry[1])
		}
	case "show_config":
		s.writeConfig(s.stderr)
	case "show_state":
		s.writeState(s.stderr)
	case "show_history":
		for i, h := range s.history {
			metaColor.Fprintf(s.stderr, "%4d %s\n", i+1, h)
		}
	case "save_history":
		payload := strings.Join(s.history, "\n") + "\n"
		s.persist(historyFile, []byte(payload))
	case "show_replay":
		if len(s.replay) == 0 {
			metaColor.Fprintln(s.stderr, "replay queue is empty")
			break
		}
		metaColor.Fprintf(s.stderr, "%s\n", string(s.replay))
	case "show_path":
		steps := s.analyzer.Graph().PathBack(s.analyzer.Head())
		if len(steps) == 0 {
			metaColor.Fprintln(s.stderr, "no rooms observed yet")
			break
		}
		for _, step := range steps {
			metaColor.Fprintf(s.stderr, "[%d] via %q: %s\n", step.ID, step.Edge, firstLine(step.Message))
		}
	case "record_output":
		// Truncates on every invocation
		f, err := os.Create(recordFile)
		if err != nil {
			warnColor.Fprintf(s.stderr, "cannot record output: %v\n", err)
			break
		}
		if s.recording != nil {
			s.recording.Close()
		}
		s.recording = f
		metaColor.Fprintf(s.stderr, "recording guest output to %s\n", recordFile)
	case "dump_state":
		var sb strings.Builder
		s.writeState(&sb)
		s.persist(stateFile, []byte(sb.String()))
	case "dump_memory":
		s.persist(memoryDumpFile, s.machine.MemoryImage())
	case "dump_dot":
		payload := maze.ExportDOT(s.analyzer.Graph(), s.analyzer.Inventory())
		s.persist(dotFile, []byte(payload))
	case "disasm":
		n := parseCount(args, defaultDisasmCount)
		s.machine.Disassemble(s.stderr, s.machine.PC(), n)
	case "solve":
		n := parseCount(args, defaultSolveSteps)
		s.analyzer.Solver().Solve(n)
		metaColor.Fprintf(s.stderr, "solver armed with %d steps\n", n)
	default:
		warnColor.Fprintf(s.stderr, "unknown meta-command %q; try /help\n", "/"+name)
	}
}

func parseCount(args []string, fallback int) int {
	if len(args) == 0 {
		return fallback
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// persist writes a meta-command payload to disk, reporting either way.
func (s *Shell) persist(path string, payload []byte) {
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		warnColor.Fprintf(s.stderr, "cannot write %s: %v\n", path, err)
		return
	}
	metaColor.Fprintf(s.stderr, "wrote %d bytes to %s\n", len(payload), path)
}

// writeConfig prints the session configuration as a "Configuration:" block,
// one tab-indented field per line.
func (s *Shell) writeConfig(w io.Writer) {
	replay := "N/A"
	if s.cfg.ReplayPath != "" {
		replay = s.cfg.ReplayPath
	}
	fmt.Fprintf(w, "Configuration:\n\tROM file: %s\n\treplay file: %s\n\tROM size: %d bytes\n\treplay cmds. qty.: %d\n",
		s.cfg.RomPath, replay, s.cfg.RomSize, s.cfg.ReplayCount)
}

// writeState renders the full VM plus solver state. The same payload backs
// /show_state and /dump_state.
func (s *Shell) writeState(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Register", "Value"})
	table.Append([]string{"pc", fmt.Sprintf("%d", s.machine.PC())})
	for i, r := range s.machine.Registers() {
		table.Append([]string{fmt.Sprintf("r%d", i), fmt.Sprintf("%d", r)})
	}
	table.Render()

	fmt.Fprintf(w, "halted: %v\n", s.machine.Halted())
	fmt.Fprintf(w, "instructions executed: %d\n", s.machine.InstructionCount())
	stack := s.machine.Stack()
	fmt.Fprintf(w, "stack (%d, top last): %v\n", len(stack), stack)
	fmt.Fprintf(w, "next instruction: %s\n", s.machine.DisassembleAt(s.machine.PC()))
	fmt.Fprintf(w, "replay queue: %d chars\n", len(s.replay))
	s.analyzer.WriteState(w)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
