package maze

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roomResponse(title, message string, exits ...string) *RoomResponse {
	return &RoomResponse{Title: title, Message: message, Exits: exits}
}

func TestObserveAssignsStableIdentity(t *testing.T) {
	g := NewGraph()
	inv := NewInventory()

	first := g.Observe(roomResponse("Foothills", "msg", "north", "south"), NoNode, "", inv)
	again := g.Observe(roomResponse("Foothills", "msg", "north", "south"), NoNode, "", inv)
	assert.Equal(t, first, again, "identical triples are the same room")
	assert.Equal(t, 2, g.Node(first).Visits)
	assert.Equal(t, 1, g.Len())

	// Exit order does not affect identity
	reordered := g.Observe(roomResponse("Foothills", "msg", "south", "north"), NoNode, "", inv)
	assert.Equal(t, first, reordered)

	// A different message is a different room
	other := g.Observe(roomResponse("Foothills", "other msg", "north", "south"), NoNode, "", inv)
	assert.NotEqual(t, first, other)
}

func TestObserveLinksPredecessor(t *testing.T) {
	g := NewGraph()
	inv := NewInventory()

	a := g.Observe(roomResponse("A", "start", "north"), NoNode, "", inv)
	b := g.Observe(roomResponse("B", "next", "south"), a, "go north", inv)

	na := g.Node(a)
	require.NotNil(t, na)
	assert.Equal(t, b, na.EdgeToNode["go north"])
	assert.Equal(t, "go north", na.NodeToEdge[b])

	nb := g.Node(b)
	assert.Equal(t, a, nb.Origin)
	assert.Equal(t, "go north", nb.OriginEdge)
	assert.Equal(t, 1, nb.MinSteps)
}

func TestMinStepsKeepsMinimum(t *testing.T) {
	g := NewGraph()
	inv := NewInventory()

	a := g.Observe(roomResponse("A", "start", "north"), NoNode, "", inv)
	b := g.Observe(roomResponse("B", "mid", "south"), a, "go north", inv)
	c := g.Observe(roomResponse("C", "far", "west"), b, "go east", inv)

	// Arriving at C again straight from A must lower its step count
	again := g.Observe(roomResponse("C", "far", "west"), a, "go west", inv)
	require.Equal(t, c, again)
	assert.Equal(t, 1, g.Node(c).MinSteps)
}

func TestCandidateOrder(t *testing.T) {
	inv := NewInventory()
	inv.Take("tablet")
	inv.Reconcile([]string{"tablet"})

	resp := &RoomResponse{
		Title:   "Room",
		Message: "msg",
		Things:  []string{"coin"},
		Exits:   []string{"north", "south"},
	}
	got := deriveCandidates(resp, inv)

	// Reversed storage: popping from the back walks the textual order
	want := []string{"go south", "go north", "look tablet", "use tablet", "take coin", "look coin"}
	assert.Equal(t, want, got)
}

func TestMarkEdgeVisitedAndCompletion(t *testing.T) {
	g := NewGraph()
	inv := NewInventory()
	hash := inv.Hash()

	a := g.Observe(roomResponse("A", "start", "north"), NoNode, "", inv)

	g.MarkEdgeVisited(a, "go north", hash)
	na := g.Node(a)
	assert.Equal(t, 1, na.EdgeVisits["go north"])
	assert.Equal(t, "go north", na.LastEdge)
	assert.NotContains(t, na.Candidates, "go north")

	// Start room has no predecessor, so exhausting its movement edges
	// completes it outright
	assert.True(t, g.IsCompleted(a, hash))
	assert.True(t, g.IsDead(a, hash))

	// Under a different inventory nothing is completed yet
	inv.Take("tablet")
	assert.False(t, g.IsCompleted(a, inv.Hash()))
}

func TestCompletionRequiresCompletedPredecessor(t *testing.T) {
	g := NewGraph()
	inv := NewInventory()
	hash := inv.Hash()

	a := g.Observe(roomResponse("A", "start", "north", "east"), NoNode, "", inv)
	b := g.Observe(roomResponse("B", "next", "south"), a, "go north", inv)

	// B's only movement edge is exhausted, but A still has untried exits
	g.MarkEdgeVisited(b, "go south", hash)
	assert.False(t, g.IsCompleted(b, hash))

	// Finish A, then B's completion can land on the next exhausted edge
	g.MarkEdgeVisited(a, "go north", hash)
	g.MarkEdgeVisited(a, "go east", hash)
	assert.True(t, g.IsCompleted(a, hash))

	g.MarkEdgeVisited(b, "go south", hash)
	assert.True(t, g.IsCompleted(b, hash))
}

func TestPathBack(t *testing.T) {
	g := NewGraph()
	inv := NewInventory()

	a := g.Observe(roomResponse("A", "start", "north"), NoNode, "", inv)
	b := g.Observe(roomResponse("B", "mid", "south", "east"), a, "go north", inv)
	c := g.Observe(roomResponse("C", "end", "west"), b, "go east", inv)

	steps := g.PathBack(c)
	require.Len(t, steps, 3)
	assert.Equal(t, []PathStep{
		{ID: c, Message: "end", Edge: "go east"},
		{ID: b, Message: "mid", Edge: "go north"},
		{ID: a, Message: "start", Edge: ""},
	}, steps)
}

func TestExportDOT(t *testing.T) {
	g := NewGraph()
	inv := NewInventory()

	a := g.Observe(roomResponse("A", "start", "north"), NoNode, "", inv)
	b := g.Observe(roomResponse("B", "next", "south"), a, "go north", inv)
	_ = b

	out := ExportDOT(g, inv)
	assert.True(t, strings.HasPrefix(out, "digraph"))
	assert.Contains(t, out, "room_0")
	assert.Contains(t, out, "room_1")
	assert.Contains(t, out, "go north")
	assert.Contains(t, out, "inventory is empty")
}
