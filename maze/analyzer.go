package maze

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Analyzer is the session context for exploration: it owns the graph, the
// inventory, and the solver, and feeds them from the guest's output stream.
// The shell pushes accumulated output chunks in and pulls synthesized
// commands out.
type Analyzer struct {
	graph  *Graph
	inv    *Inventory
	solver *Solver

	// head is the room the player currently stands in
	head NodeID

	// responses counts successfully parsed output chunks
	responses int
}

func NewAnalyzer(rng *rand.Rand) *Analyzer {
	graph := NewGraph()
	inv := NewInventory()
	return &Analyzer{
		graph:  graph,
		inv:    inv,
		solver: NewSolver(graph, inv, rng),
		head:   NoNode,
	}
}

func (a *Analyzer) Graph() *Graph         { return a.graph }
func (a *Analyzer) Inventory() *Inventory { return a.inv }
func (a *Analyzer) Solver() *Solver       { return a.solver }

// Head returns the current room, or NoNode before the first response.
func (a *Analyzer) Head() NodeID { return a.head }

// CommandIssued records the inventory side effects of a dispatched guest
// command. Called by the shell the moment the command line is complete.
func (a *Analyzer) CommandIssued(cmd Command) {
	switch cmd.Kind {
	case CmdTake:
		a.inv.Take(cmd.Arg)
	case CmdDrop:
		a.inv.Drop(cmd.Arg)
	case CmdUse:
		a.inv.Use(cmd.Arg)
	case CmdLookItem:
		a.inv.LookItem(cmd.Arg)
	}
}

// Observe feeds one chunk of guest output, produced in response to cmd, into
// the graph. Parse failures abort only this update; the VM session is never
// disturbed from here.
func (a *Analyzer) Observe(output string, cmd Command) {
	resp, err := ParseResponse(output)
	if err != nil {
		if !errors.Is(err, ErrNothingToParse) {
			log.Warnf("skipping graph update: %v", err)
		}
		return
	}
	a.responses++

	if resp.Misunderstood {
		// The guest rejected the command; the previous room stands
		log.Debugf("guest did not understand %q", cmd.Raw)
		return
	}

	if !resp.IsRoom() {
		a.observeAux(resp, cmd)
		return
	}

	prev := a.head
	edge := ""
	if cmd.IsEdge() {
		edge = cmd.Raw
	}
	id := a.graph.Observe(resp, prev, edge, a.inv)
	if prev != NoNode && edge != "" {
		a.graph.MarkEdgeVisited(prev, edge, a.inv.Hash())
	}
	if cmd.Kind == CmdLook && a.head == id {
		a.graph.Node(id).Aux[cmd.Raw] = resp.Message
	}
	a.head = id
}

// observeAux handles responses with no room title: inventory listings, help
// text, item descriptions, take/drop confirmations.
func (a *Analyzer) observeAux(resp *RoomResponse, cmd Command) {
	if cmd.Kind == CmdInventory || len(resp.Inventory) > 0 {
		a.inv.Reconcile(resp.Inventory)
	}
	n := a.graph.Node(a.head)
	if n == nil {
		return
	}
	if cmd.Raw != "" && cmd.Kind != CmdMeta {
		text := resp.Pretext
		if len(resp.Inventory) > 0 {
			text = strings.Join(resp.Inventory, ", ")
		}
		n.Aux[cmd.Raw] = text
	}
	// Consume the matching candidate so the solver moves on
	if cmd.IsEdge() {
		a.graph.MarkEdgeVisited(a.head, cmd.Raw, a.inv.Hash())
	}
}

// NextCommand asks the solver for the next command to inject.
func (a *Analyzer) NextCommand() (string, error) {
	return a.solver.NextCommand(a.head)
}

// WriteState dumps the whole analyzer for the state meta-commands.
func (a *Analyzer) WriteState(w io.Writer) {
	fmt.Fprintf(w, "responses parsed: %d\n", a.responses)
	if n := a.graph.Node(a.head); n != nil {
		fmt.Fprintf(w, "current room: [%d] %s\n", n.ID, n.Title)
	} else {
		fmt.Fprintln(w, "current room: none")
	}
	a.inv.WriteState(w)
	a.solver.WriteState(w)
	a.graph.WriteState(w)
}
