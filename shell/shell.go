// Package shell mediates all I/O between the terminal and the VM: it feeds
// the guest's in instruction from the replay queue, the solver, or the
// keyboard, mirrors the guest's output, and intercepts slash meta-commands
// so they never reach the guest.
package shell

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"

	"github.com/maskimko/synacor-challenge/maze"
	"github.com/maskimko/synacor-challenge/vm"
)

// Config is the session configuration echoed by /show_config.
type Config struct {
	RomPath     string
	ReplayPath  string
	RomSize     int
	ReplayCount int

	// Interactive is true when stdin is a real terminal
	Interactive bool
}

type Shell struct {
	cfg      Config
	machine  *vm.VM
	analyzer *maze.Analyzer

	stdin  *bufio.Reader
	stdout io.Writer
	stderr io.Writer

	// replay is the FIFO of characters delivered to the guest before any
	// terminal read. Seeded from the replay file, extended by the solver.
	replay []byte

	// lineBuf accumulates the command currently being typed
	lineBuf []byte

	// slash is set when the current line started with '/'; its characters
	// are consumed without ever reaching the guest
	slash bool

	// pending is the last dispatched guest command; it labels the edge of
	// the next parsed response
	pending maze.Command

	// history records accepted guest commands in order
	history []string

	// outBuf accumulates guest output since the last parse
	outBuf bytes.Buffer

	// recording mirrors guest output to a file when /record_output is on
	recording *os.File
}

var (
	metaColor = color.New(color.FgCyan)
	warnColor = color.New(color.FgYellow)
)

func New(cfg Config, analyzer *maze.Analyzer, stdin io.Reader, stdout, stderr io.Writer) *Shell {
	return &Shell{
		cfg:      cfg,
		analyzer: analyzer,
		stdin:    bufio.NewReader(stdin),
		stdout:   stdout,
		stderr:   stderr,
	}
}

// AttachVM hands the shell the machine it serves. Needed by the state and
// memory meta-commands; set once during session wiring.
func (s *Shell) AttachVM(machine *vm.VM) {
	s.machine = machine
}

// QueueReplay appends whole commands to the replay queue, character by
// character with newline separators.
func (s *Shell) QueueReplay(commands []string) {
	for _, cmd := range commands {
		s.pushReplay(cmd)
	}
}

// pushReplay appends one command plus its newline atomically, so the guest
// observes it as one logical line.
func (s *Shell) pushReplay(cmd string) {
	s.replay = append(s.replay, cmd...)
	s.replay = append(s.replay, '\n')
}

// WriteChar receives one character of guest output: terminal, optional
// recording file, and the parser accumulator all see it.
func (s *Shell) WriteChar(c byte) error {
	if _, err := s.stdout.Write([]byte{c}); err != nil {
		return err
	}
	if s.recording != nil {
		if _, err := s.recording.Write([]byte{c}); err != nil {
			warnColor.Fprintf(s.stderr, "recording failed: %v\n", err)
			s.recording.Close()
			s.recording = nil
		}
	}
	s.outBuf.WriteByte(c)
	return nil
}

// ReadChar delivers the next input character to the guest. Before reading it
// flushes the pending output chunk into the graph and, when the solver is
// active, a room has been observed, and the queue is dry, asks it for the
// next command. Slash commands are processed in this loop and never returned.
func (s *Shell) ReadChar() (byte, error) {
	for {
		s.flushResponse()

		if len(s.replay) == 0 && s.analyzer.Solver().Active() && s.analyzer.Head() != maze.NoNode {
			cmd, err := s.analyzer.NextCommand()
			if err != nil {
				warnColor.Fprintf(s.stderr, "%v\n", err)
			} else {
				log.Debugf("solver issues %q (%d steps left)", cmd, s.analyzer.Solver().StepsLeft())
				if s.cfg.Interactive {
					metaColor.Fprintf(s.stderr, "> %s\n", cmd)
				}
				s.pushReplay(cmd)
			}
		}

		c, err := s.nextRawChar()
		if err != nil {
			return 0, err
		}

		if s.slash {
			if c == '\n' {
				line := string(s.lineBuf)
				s.lineBuf = s.lineBuf[:0]
				s.slash = false
				s.dispatchMeta(line)
				// The newline is swallowed along with the command
				continue
			}
			s.lineBuf = append(s.lineBuf, c)
			continue
		}

		switch {
		case c == '/' && len(s.lineBuf) == 0:
			s.slash = true
			s.lineBuf = append(s.lineBuf, c)
		case c == '\n':
			s.dispatchLine()
			return '\n', nil
		case c >= 32 && c <= 126:
			s.lineBuf = append(s.lineBuf, c)
			return c, nil
		default:
			// Control characters and high bytes are dropped
		}
	}
}

// nextRawChar drains the replay queue before touching the terminal.
func (s *Shell) nextRawChar() (byte, error) {
	if len(s.replay) > 0 {
		c := s.replay[0]
		s.replay = s.replay[1:]
		return c, nil
	}
	return s.stdin.ReadByte()
}

// dispatchLine classifies the finished command line and records its side
// effects. The guest receives the terminating newline right after.
func (s *Shell) dispatchLine() {
	line := string(s.lineBuf)
	s.lineBuf = s.lineBuf[:0]

	cmd := maze.Classify(line)
	s.pending = cmd
	if cmd.Kind != maze.CmdEmpty && cmd.Kind != maze.CmdMeta {
		s.history = append(s.history, line)
	}
	s.analyzer.CommandIssued(cmd)
}

// flushResponse parses whatever the guest printed since the last input
// request and applies it to the graph.
func (s *Shell) flushResponse() {
	if s.outBuf.Len() == 0 {
		return
	}
	raw := s.outBuf.String()
	s.outBuf.Reset()
	s.analyzer.Observe(raw, s.pending)
	s.pending = maze.Command{}
}

// History returns the accepted guest commands in order.
func (s *Shell) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// Close releases the recording file if one is open.
func (s *Shell) Close() error {
	if s.recording != nil {
		err := s.recording.Close()
		s.recording = nil
		return err
	}
	return nil
}
