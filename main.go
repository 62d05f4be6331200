package main

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/maskimko/synacor-challenge/maze"
	"github.com/maskimko/synacor-challenge/shell"
	"github.com/maskimko/synacor-challenge/vm"
)

var (
	romPath    string
	replayPath string
	seed       int64
	verbosity  int
)

// configError marks failures in CLI arguments or input files; these exit
// with code 2, runtime failures with 1.
type configError struct{ err error }

func (e configError) Error() string { return e.err.Error() }

func (e configError) Unwrap() error { return e.err }

var rootCmd = &cobra.Command{
	Use:           "synacor-challenge",
	Short:         "Interactive emulator and auto-solver for the Synacor challenge",
	Long:          "Runs the Synacor challenge ROM in a bit-exact 15-bit VM,\nbridges its character I/O to the terminal, and can explore the\ntext adventure on its own. Type /help inside the session for the\nmeta-commands.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&romPath, "rom", "./challenge.bin", "path to the challenge ROM")
	rootCmd.Flags().StringVarP(&replayPath, "replay", "R", "", "file with one command per line to replay before reading the terminal")
	rootCmd.Flags().Int64Var(&seed, "seed", 1, "seed for the solver's maze-escape randomness")
	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v debug, -vv trace)")
}

func run() error {
	switch {
	case verbosity == 1:
		log.SetLevel(log.DebugLevel)
	case verbosity >= 2:
		log.SetLevel(log.TraceLevel)
	}
	log.SetOutput(os.Stderr)

	fmt.Println("Welcome to SYNACOR challenge!")

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return configError{fmt.Errorf("cannot read ROM: %w", err)}
	}
	log.Tracef("successfully read %d bytes from %s", len(rom), romPath)

	var replay []string
	if replayPath != "" {
		replay, err = readReplay(replayPath)
		if err != nil {
			return configError{fmt.Errorf("cannot read replay: %w", err)}
		}
		log.Tracef("successfully read %d lines from %s", len(replay), replayPath)
	}

	cfg := shell.Config{
		RomPath:     romPath,
		ReplayPath:  replayPath,
		RomSize:     len(rom),
		ReplayCount: len(replay),
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	log.Debugf("received configuration %+v", cfg)

	analyzer := maze.NewAnalyzer(rand.New(rand.NewSource(seed)))
	sh := shell.New(cfg, analyzer, os.Stdin, os.Stdout, os.Stderr)
	defer sh.Close()

	machine := vm.NewVirtualMachine(sh)
	if err := machine.LoadROM(rom); err != nil {
		return configError{err}
	}
	sh.AttachVM(machine)
	sh.QueueReplay(replay)

	log.Debug("starting the main loop")
	count, err := machine.Run()
	if err != nil {
		color.New(color.FgRed).Fprint(os.Stderr, machine.Diagnose(err))
		return err
	}
	log.Debugf("executed %d instructions", count)

	fmt.Println("Challenge program finished successfully")
	return nil
}

// readReplay loads the replay file, one command per line.
func readReplay(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var cfgErr configError
		if errors.As(err, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
