package maze

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"
)

// ErrSolverBlocked is returned when a room offers no untried candidate, no
// revisitable edge, and no way back. It zeroes the remaining step budget.
var ErrSolverBlocked = errors.New("maze: solver blocked, no candidate edges and no way back")

// defaultVisitCap bounds how often the solver will re-walk an already
// visited movement edge before treating it as worn out.
const defaultVisitCap = 25

// Solver picks the next command to inject while exploration is active. It
// expands the frontier of untried candidates first, falls back to the least
// worn revisitable edge, and finally retreats the way it came.
type Solver struct {
	graph *Graph
	inv   *Inventory

	stepsLeft int
	visitCap  int

	// rng only decides the escape direction in the twisty maze; it is
	// injected so sessions can be reproduced.
	rng *rand.Rand
}

func NewSolver(graph *Graph, inv *Inventory, rng *rand.Rand) *Solver {
	return &Solver{
		graph:    graph,
		inv:      inv,
		visitCap: defaultVisitCap,
		rng:      rng,
	}
}

// Solve adds limit steps to the budget. The solver stays active while the
// budget is positive; each issued command consumes one step.
func (s *Solver) Solve(limit int) {
	s.stepsLeft += limit
	log.Debugf("solver budget now %d steps", s.stepsLeft)
}

// Active reports whether the solver should be asked for the next command.
func (s *Solver) Active() bool { return s.stepsLeft > 0 }

// StepsLeft returns the remaining step budget.
func (s *Solver) StepsLeft() int { return s.stepsLeft }

// NextCommand picks one command for the room at head. A blocked solver
// zeroes its budget and reports ErrSolverBlocked; the shell then returns to
// interactive mode.
func (s *Solver) NextCommand(head NodeID) (string, error) {
	n := s.graph.Node(head)
	if n == nil {
		s.stepsLeft = 0
		return "", fmt.Errorf("%w: no current room", ErrSolverBlocked)
	}

	// A take/drop/use may have changed what we hold; reconcile before
	// deciding anything inventory-sensitive.
	if s.inv.Dirty() {
		s.stepsLeft--
		return "inv", nil
	}

	cmd, err := s.pickEdge(n)
	if err != nil {
		s.stepsLeft = 0
		return "", err
	}
	s.stepsLeft--
	return cmd, nil
}

func (s *Solver) pickEdge(n *Node) (string, error) {
	dangerous := dangerousEdges(n, s.inv)
	invHash := s.inv.Hash()

	// 1. frontier: first untried candidate that survives the filters,
	// walked from the back so textual order is preserved
	for i := len(n.Candidates) - 1; i >= 0; i-- {
		e := n.Candidates[i]
		if n.EdgeVisits[e] > 0 {
			continue
		}
		if dangerous.Contains(e) {
			continue
		}
		if s.redundantItemInteraction(e) {
			continue
		}
		return e, nil
	}

	// 2. revisit: least worn movement edge that still leads somewhere
	// useful under the current inventory
	best := ""
	bestScore := 0
	for _, e := range n.MovementEdges() {
		score := n.EdgeVisits[e] + n.PriorityPenalty[e]
		if score >= s.visitCap {
			continue
		}
		if e == n.LastEdge || dangerous.Contains(e) {
			continue
		}
		if succ, ok := n.EdgeToNode[e]; ok && s.graph.IsCompleted(succ, invHash) {
			continue
		}
		if best == "" || score < bestScore {
			best, bestScore = e, score
		}
	}
	if best != "" {
		return best, nil
	}

	// 3. retreat the way we came
	return s.backCommand(n, dangerous)
}

// redundantItemInteraction filters use/look of a held item that the session
// has already used or inspected at least once.
func (s *Solver) redundantItemInteraction(e string) bool {
	verb, arg, found := strings.Cut(e, " ")
	if !found || (verb != "use" && verb != "look") {
		return false
	}
	return s.inv.Has(arg) && s.inv.UsedOrLooked(arg)
}

// backCommand derives the command that undoes the edge that led into n.
// Even the retreat must stay out of the dark.
func (s *Solver) backCommand(n *Node, dangerous mapset.Set[string]) (string, error) {
	if back := inverseEdge(n.OriginEdge); back != "" && !dangerous.Contains(back) {
		return back, nil
	}
	for _, exit := range n.Exits {
		if exit == "back" && !dangerous.Contains("go back") {
			return "go back", nil
		}
	}
	if strings.Contains(n.Message, twistyMazePhrase) {
		// All alike, so any safe exit is as good as any other
		var safe []string
		for _, exit := range n.Exits {
			if e := "go " + exit; !dangerous.Contains(e) {
				safe = append(safe, e)
			}
		}
		if len(safe) > 0 {
			return safe[s.rng.Intn(len(safe))], nil
		}
	}
	return "", fmt.Errorf("%w: room %d has no retreat", ErrSolverBlocked, n.ID)
}

// inverseEdge maps a movement command to its opposite, or "" when no
// opposite is known.
func inverseEdge(edge string) string {
	switch edge {
	case "go north":
		return "go south"
	case "go south":
		return "go north"
	case "go east":
		return "go west"
	case "go west":
		return "go east"
	}
	return ""
}

// WriteState dumps the solver for the state meta-commands.
func (s *Solver) WriteState(w io.Writer) {
	fmt.Fprintf(w, "solver: steps left %d, visit cap %d\n", s.stepsLeft, s.visitCap)
}
