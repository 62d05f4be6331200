package maze

import (
	"regexp"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// The grue heuristic. Without light, walking into a dark passage is fatal,
// so candidate edges leading into the dark are held back until a lit lantern
// is in hand. The phrases and regexes mirror what the adventure actually
// prints; treat them as replaceable policy, not gospel.

const litLantern = "lit lantern"

const (
	gruePhrase       = "you think you hear a Grue"
	lostPhrase       = "become hopelessly lost and are fumbling around"
	twistyMazePhrase = "a twisty maze of little passages, all alike"
)

var (
	eatenByGrueRe = regexp.MustCompile(`likely to be eaten by a .* grue`)

	darkPassageRes = []*regexp.Regexp{
		regexp.MustCompile(`The (?P<direction>.*) passage appears very dark`),
		regexp.MustCompile(`The passage to the (?P<direction>.*) looks very dark`),
	}
)

// darkDirections extracts the directions the room text warns about.
func darkDirections(message string) []string {
	var dirs []string
	for _, re := range darkPassageRes {
		for _, m := range re.FindAllStringSubmatch(message, -1) {
			dirs = append(dirs, m[re.SubexpIndex("direction")])
		}
	}
	return dirs
}

// allEdges is the universe the danger classification runs over: untried
// candidates, edges already taken, and every exit.
func allEdges(n *Node) []string {
	set := mapset.NewSet[string]()
	for _, e := range n.Candidates {
		set.Add(e)
	}
	for e := range n.EdgeVisits {
		set.Add(e)
	}
	for _, exit := range n.Exits {
		set.Add("go " + exit)
	}
	return set.ToSlice()
}

// dangerousEdges classifies the node's edges under the current inventory.
// With a lit lantern everything is safe; without one, dark passages, the
// disorienting dark rooms, and "continue" style commitments are fatal.
func dangerousEdges(n *Node, inv *Inventory) mapset.Set[string] {
	dangerous := mapset.NewSet[string]()
	if inv.Has(litLantern) {
		return dangerous
	}

	edges := allEdges(n)

	if eatenByGrueRe.MatchString(n.Message) || strings.Contains(n.Message, gruePhrase) {
		for _, dir := range darkDirections(n.Message) {
			for _, e := range edges {
				if strings.Contains(e, dir) {
					dangerous.Add(e)
				}
			}
		}
	}
	if strings.Contains(n.Message, lostPhrase) {
		for _, e := range edges {
			if strings.Contains(e, "forward") {
				dangerous.Add(e)
			}
		}
	}
	for _, e := range edges {
		if strings.Contains(e, "continue") {
			dangerous.Add(e)
		}
	}
	return dangerous
}
