package maze

import (
	"fmt"
	"io"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"
)

// NodeID indexes a room in the graph arena. Identity of a room is its
// content triple (title, message, sorted exits); the arena maps that to a
// stable small integer so edges and back-pointers are plain id-to-id maps.
type NodeID = int

// NoNode marks a missing reference (no predecessor, unknown successor).
const NoNode NodeID = -1

// roomKey is the content-addressed identity of a room.
type roomKey struct {
	title   string
	message string
	exits   string
}

func keyOf(resp *RoomResponse) roomKey {
	exits := append([]string(nil), resp.Exits...)
	sort.Strings(exits)
	return roomKey{title: resp.Title, message: resp.Message, exits: strings.Join(exits, ",")}
}

// Node carries the mutable exploration metadata of one room.
type Node struct {
	ID      NodeID
	Title   string
	Message string
	Exits   []string
	Things  []string

	// MinSteps is the smallest step count at which the room was observed
	MinSteps int
	// Visits counts observations of this room
	Visits int

	// Origin points at the room we first arrived from, OriginEdge is the
	// command that brought us here. Together they form the back-pointer
	// chain used by path reconstruction and the "go back" fallback.
	Origin     NodeID
	OriginEdge string

	// Candidates holds the not-yet-tried commands for this room, stored
	// reversed so that popping from the back yields textual order.
	Candidates []string

	// EdgeVisits counts how often each edge has been taken. Priority
	// penalties deprioritize edges without conflating the two meanings in
	// one counter.
	EdgeVisits      map[string]int
	PriorityPenalty map[string]int
	LastEdge        string

	// EdgeToNode and NodeToEdge record where each edge led and which edge
	// leads to each known successor.
	EdgeToNode map[string]NodeID
	NodeToEdge map[NodeID]string

	// Aux stores outputs of non-transition interactions (look, help, inv)
	// keyed by the command that produced them.
	Aux map[string]string
}

// MovementEdges returns the visited edges of the node that move between
// rooms, i.e. the "go" commands.
func (n *Node) MovementEdges() []string {
	var out []string
	for e := range n.EdgeVisits {
		if isMovementEdge(e) {
			out = append(out, e)
		}
	}
	sort.Strings(out)
	return out
}

// unvisitedMovementCandidates reports whether any movement command remains
// untried.
func (n *Node) unvisitedMovementCandidates() bool {
	for _, e := range n.Candidates {
		if isMovementEdge(e) {
			return true
		}
	}
	return false
}

func isMovementEdge(e string) bool {
	return strings.HasPrefix(e, "go ")
}

// Graph is the arena of all rooms observed in the session. Rooms are created
// on first observation and never destroyed.
type Graph struct {
	nodes []*Node
	index map[roomKey]NodeID

	// completed maps an inventory hash to the set of rooms whose movement
	// edges have all been visited under that inventory.
	completed map[uint64]mapset.Set[NodeID]
}

func NewGraph() *Graph {
	return &Graph{
		index:     make(map[roomKey]NodeID),
		completed: make(map[uint64]mapset.Set[NodeID]),
	}
}

// Len returns the number of distinct rooms observed.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the room with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || id >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Nodes returns the arena in id order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Observe records one room response. New rooms get a node with a freshly
// derived candidate queue; repeat observations bump counters. When prev and
// edge are known the predecessor's edge maps are updated in both directions.
func (g *Graph) Observe(resp *RoomResponse, prev NodeID, edge string, inv *Inventory) NodeID {
	key := keyOf(resp)
	id, ok := g.index[key]
	if !ok {
		id = len(g.nodes)
		node := &Node{
			ID:              id,
			Title:           resp.Title,
			Message:         resp.Message,
			Exits:           append([]string(nil), resp.Exits...),
			Things:          append([]string(nil), resp.Things...),
			Origin:          prev,
			OriginEdge:      edge,
			Candidates:      deriveCandidates(resp, inv),
			EdgeVisits:      make(map[string]int),
			PriorityPenalty: make(map[string]int),
			EdgeToNode:      make(map[string]NodeID),
			NodeToEdge:      make(map[NodeID]string),
			Aux:             make(map[string]string),
		}
		if prev != NoNode {
			node.MinSteps = g.nodes[prev].MinSteps + 1
		}
		applyPriorityPenalties(node)
		g.nodes = append(g.nodes, node)
		g.index[key] = id
		log.Debugf("new room %d %q reached via %q", id, resp.Title, edge)
	}

	node := g.nodes[id]
	node.Visits++
	if prev != NoNode && edge != "" {
		p := g.nodes[prev]
		if p.MinSteps+1 < node.MinSteps {
			node.MinSteps = p.MinSteps + 1
		}
		p.EdgeToNode[edge] = id
		p.NodeToEdge[id] = edge
	}
	return id
}

// deriveCandidates builds the untried-command queue for a freshly observed
// room: inspect and grab each thing of interest, try and inspect each held
// item, then walk each exit. Reversed so pop-from-back yields textual order.
func deriveCandidates(resp *RoomResponse, inv *Inventory) []string {
	var out []string
	for _, thing := range resp.Things {
		out = append(out, "look "+thing, "take "+thing)
	}
	for _, item := range inv.Items() {
		out = append(out, "use "+item, "look "+item)
	}
	for _, exit := range resp.Exits {
		out = append(out, "go "+exit)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// applyPriorityPenalties deprioritizes edges that should only be taken when
// nothing better remains: re-lighting the lantern and immediately walking
// back out.
func applyPriorityPenalties(n *Node) {
	for _, e := range n.Candidates {
		if e == "use lit lantern" {
			n.PriorityPenalty[e] = 32767
		}
	}
	if back := inverseEdge(n.OriginEdge); back != "" {
		n.PriorityPenalty[back] = 2
	}
}

// MarkEdgeVisited bumps the edge's counter, drops it from the candidate
// queue, and advances completion tracking: a node whose movement edges are
// all tried joins the completion set of the current inventory, provided its
// predecessor is already completed under it.
func (g *Graph) MarkEdgeVisited(id NodeID, edge string, invHash uint64) {
	n := g.Node(id)
	if n == nil {
		return
	}
	n.EdgeVisits[edge]++
	n.LastEdge = edge
	for i, c := range n.Candidates {
		if c == edge {
			n.Candidates = append(n.Candidates[:i], n.Candidates[i+1:]...)
			break
		}
	}
	if !n.unvisitedMovementCandidates() {
		if n.Origin == NoNode || g.IsCompleted(n.Origin, invHash) {
			g.completionSet(invHash).Add(id)
			log.Debugf("room %d completed under inventory %#x", id, invHash)
		}
	}
}

func (g *Graph) completionSet(invHash uint64) mapset.Set[NodeID] {
	set, ok := g.completed[invHash]
	if !ok {
		set = mapset.NewSet[NodeID]()
		g.completed[invHash] = set
	}
	return set
}

// IsCompleted reports whether the room's movement edges were exhausted under
// the given inventory.
func (g *Graph) IsCompleted(id NodeID, invHash uint64) bool {
	set, ok := g.completed[invHash]
	return ok && set.Contains(id)
}

// IsDead reports whether the room and its predecessor are both completed
// under the given inventory; walking back into it gains nothing.
func (g *Graph) IsDead(id NodeID, invHash uint64) bool {
	n := g.Node(id)
	if n == nil || !g.IsCompleted(id, invHash) {
		return false
	}
	return n.Origin == NoNode || g.IsCompleted(n.Origin, invHash)
}

// PathStep is one hop of a reconstructed path.
type PathStep struct {
	ID      NodeID
	Message string
	Edge    string
}

// PathBack reconstructs the predecessor chain from head to the start room,
// most recent hop first.
func (g *Graph) PathBack(head NodeID) []PathStep {
	var steps []PathStep
	seen := make(map[NodeID]bool)
	for id := head; id != NoNode && !seen[id]; {
		seen[id] = true
		n := g.Node(id)
		if n == nil {
			break
		}
		steps = append(steps, PathStep{ID: id, Message: n.Message, Edge: n.OriginEdge})
		id = n.Origin
	}
	return steps
}

// WriteState dumps the graph for the state meta-commands.
func (g *Graph) WriteState(w io.Writer) {
	fmt.Fprintf(w, "rooms observed: %d\n", len(g.nodes))
	for _, n := range g.nodes {
		fmt.Fprintf(w, "[%d] %s (visits %d, min steps %d, %d candidates left)\n",
			n.ID, n.Title, n.Visits, n.MinSteps, len(n.Candidates))
	}
}
