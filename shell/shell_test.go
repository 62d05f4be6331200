package shell

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maskimko/synacor-challenge/maze"
	"github.com/maskimko/synacor-challenge/vm"
)

func newTestShell(t *testing.T, input string) (*Shell, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	analyzer := maze.NewAnalyzer(rand.New(rand.NewSource(1)))
	var stdout, stderr bytes.Buffer
	sh := New(Config{RomPath: "challenge.bin"}, analyzer, strings.NewReader(input), &stdout, &stderr)
	return sh, &stdout, &stderr
}

func readLine(t *testing.T, sh *Shell) string {
	t.Helper()
	var sb strings.Builder
	for {
		c, err := sh.ReadChar()
		require.NoError(t, err)
		if c == '\n' {
			return sb.String()
		}
		sb.WriteByte(c)
	}
}

func TestReadCharDeliversPrintableLine(t *testing.T) {
	sh, _, _ := newTestShell(t, "go north\n")
	assert.Equal(t, "go north", readLine(t, sh))
	assert.Equal(t, []string{"go north"}, sh.History())
}

func TestSlashCommandsNeverReachTheGuest(t *testing.T) {
	sh, _, stderr := newTestShell(t, "/help\nlook\n")
	assert.Equal(t, "look", readLine(t, sh), "the whole slash line plus newline is swallowed")
	assert.Contains(t, stderr.String(), "/show_state")
	assert.Equal(t, []string{"look"}, sh.History(), "meta-commands stay out of history")
}

func TestUnknownMetaCommand(t *testing.T) {
	sh, _, stderr := newTestShell(t, "/frobnicate\nx\n")
	readLine(t, sh)
	assert.Contains(t, stderr.String(), "unknown meta-command")
}

func TestSlashInsideLineIsLiteral(t *testing.T) {
	// Only a slash in the first column starts a meta-command
	sh, _, _ := newTestShell(t, "n/s\n")
	assert.Equal(t, "n/s", readLine(t, sh))
}

func TestControlCharactersAreDropped(t *testing.T) {
	sh, _, _ := newTestShell(t, "a\tb\x01c\n")
	assert.Equal(t, "abc", readLine(t, sh))
}

func TestReplayQueueDrainsBeforeTerminal(t *testing.T) {
	sh, _, _ := newTestShell(t, "from terminal\n")
	sh.QueueReplay([]string{"first", "second"})

	assert.Equal(t, "first", readLine(t, sh))
	assert.Equal(t, "second", readLine(t, sh))
	assert.Equal(t, "from terminal", readLine(t, sh))
	assert.Equal(t, []string{"first", "second", "from terminal"}, sh.History())
}

func TestEmptyLinesStayOutOfHistory(t *testing.T) {
	sh, _, _ := newTestShell(t, "\nlook\n")
	assert.Equal(t, "", readLine(t, sh))
	assert.Equal(t, "look", readLine(t, sh))
	assert.Equal(t, []string{"look"}, sh.History())
}

func TestWriteCharMirrorsToStdoutAndAccumulator(t *testing.T) {
	sh, stdout, _ := newTestShell(t, "")
	for _, c := range []byte("hello") {
		require.NoError(t, sh.WriteChar(c))
	}
	assert.Equal(t, "hello", stdout.String())
	assert.Equal(t, "hello", sh.outBuf.String())
}

func TestOutputFlushFeedsTheGraph(t *testing.T) {
	sh, _, _ := newTestShell(t, "doorway\n")
	for _, c := range []byte("\n== Foothills ==\nmsg\n\nThere is 1 exit:\n- doorway\n\nWhat do you do?\n") {
		require.NoError(t, sh.WriteChar(c))
	}

	// The next input request parses the accumulated response
	readLine(t, sh)
	g := sh.analyzer.Graph()
	require.Equal(t, 1, g.Len())
	assert.Equal(t, "Foothills", g.Node(sh.analyzer.Head()).Title)
}

func TestSolveMetaCommandArmsSolver(t *testing.T) {
	sh, _, stderr := newTestShell(t, "/solve 5\nx\n")
	readLine(t, sh)
	assert.Equal(t, 5, sh.analyzer.Solver().StepsLeft())
	assert.Contains(t, stderr.String(), "solver armed")
}

func TestSolverInjectsCommands(t *testing.T) {
	sh, _, _ := newTestShell(t, "")
	// Feed a room so the solver has a frontier, then arm it
	for _, c := range []byte("== Foothills ==\nmsg\n\nThere is 1 exit:\n- doorway\n\nWhat do you do?\n") {
		require.NoError(t, sh.WriteChar(c))
	}
	sh.analyzer.Solver().Solve(1)

	// No terminal input at all: the line must come from the solver
	assert.Equal(t, "go doorway", readLine(t, sh))
	assert.Equal(t, []string{"go doorway"}, sh.History())
}

func TestSaveHistoryPersists(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	sh, _, _ := newTestShell(t, "look\n/save_history\nx\n")
	readLine(t, sh) // look
	readLine(t, sh) // x, after the meta-command ran

	payload, err := os.ReadFile(historyFile)
	require.NoError(t, err)
	assert.Equal(t, "look\n", string(payload))
}

func TestShowConfig(t *testing.T) {
	sh, _, stderr := newTestShell(t, "/show_config\nx\n")
	readLine(t, sh)
	assert.Contains(t, stderr.String(), "ROM file: challenge.bin")
	assert.Contains(t, stderr.String(), "replay file: N/A")
}

// rom encodes words as the little-endian flat binary the loader expects.
func rom(words ...uint16) []byte {
	buf := make([]byte, 2*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint16(buf[2*i:], w)
	}
	return buf
}

func TestEndToEndEchoProgram(t *testing.T) {
	// Guest program: read one char into r0, write it back, halt
	sh, stdout, _ := newTestShell(t, "A\n")
	machine := vm.NewVirtualMachine(sh)
	require.NoError(t, machine.LoadROM(rom(20, 32768, 19, 32768, 0)))
	sh.AttachVM(machine)

	count, err := machine.Run()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
	assert.Equal(t, "A", stdout.String())
}

func TestEndToEndMetaCommandDuringIn(t *testing.T) {
	// The guest blocks in `in`; a meta-command typed first is handled
	// without the guest noticing
	sh, stdout, stderr := newTestShell(t, "/show_state\nB\n")
	machine := vm.NewVirtualMachine(sh)
	require.NoError(t, machine.LoadROM(rom(20, 32768, 19, 32768, 0)))
	sh.AttachVM(machine)

	_, err := machine.Run()
	require.NoError(t, err)
	assert.Equal(t, "B", stdout.String())
	assert.Contains(t, stderr.String(), "instructions executed")
}
