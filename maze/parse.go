package maze

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RoomResponse is one parsed chunk of guest output, everything printed
// between two "What do you do?" prompts.
type RoomResponse struct {
	Pretext       string
	Title         string
	Message       string
	Things        []string
	Inventory     []string
	Exits         []string
	Misunderstood bool
}

// IsRoom reports whether the response describes a room. Help text, item
// descriptions, and inventory listings carry no title line.
func (r *RoomResponse) IsRoom() bool {
	return r.Title != ""
}

var (
	ErrNothingToParse = errors.New("maze: response is empty")
	ErrParse          = errors.New("maze: malformed response")
)

var (
	titleRe    = regexp.MustCompile(`^== (.+) ==$`)
	exitsHdrRe = regexp.MustCompile(`^There (?:is|are) ([0-9]+) exits?:$`)
	itemRe     = regexp.MustCompile(`^\s*- (.+)$`)
)

const (
	thingsHeader      = "Things of interest here:"
	inventoryHeader   = "Your inventory:"
	promptLine        = "What do you do?"
	misunderstoodLine = "I don't understand; try 'help' for instructions."
)

// Parser states. The line patterns drive the transitions:
//
//	pretext -(title)-> message -(things hdr)-> things -(exits hdr)-> exits -(prompt)-> done
//
// with the side path pretext -(inventory hdr)-> inventory -(prompt)-> done.
// The misunderstood line sets the Misunderstood flag in any state without
// changing the state. The exits header may follow the message directly when
// a room has no things of interest.
type parseState int

const (
	statePretext parseState = iota
	stateMessage
	stateThings
	stateExits
	stateInventory
	stateDone
)

// ParseResponse segments accumulated guest output into a RoomResponse.
// Lines carrying meta-commands (leading '/') never reach the guest and are
// elided before parsing.
func ParseResponse(raw string) (*RoomResponse, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNothingToParse
	}

	resp := &RoomResponse{}
	state := statePretext
	declaredExits := -1
	var pretext, message []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "/") {
			continue
		}
		if trimmed == promptLine {
			state = stateDone
			continue
		}
		if trimmed == misunderstoodLine {
			resp.Misunderstood = true
			continue
		}
		if state == stateDone {
			// Trailing text after the prompt belongs to the next response;
			// the accumulator is flushed per prompt so this is noise.
			continue
		}

		switch state {
		case statePretext:
			if m := titleRe.FindStringSubmatch(trimmed); m != nil {
				resp.Title = m[1]
				state = stateMessage
				continue
			}
			if trimmed == inventoryHeader {
				state = stateInventory
				continue
			}
			pretext = append(pretext, line)
		case stateMessage:
			if trimmed == thingsHeader {
				state = stateThings
				continue
			}
			if m := exitsHdrRe.FindStringSubmatch(trimmed); m != nil {
				declaredExits, _ = strconv.Atoi(m[1])
				state = stateExits
				continue
			}
			message = append(message, line)
		case stateThings:
			if m := exitsHdrRe.FindStringSubmatch(trimmed); m != nil {
				declaredExits, _ = strconv.Atoi(m[1])
				state = stateExits
				continue
			}
			if m := itemRe.FindStringSubmatch(line); m != nil {
				resp.Things = append(resp.Things, m[1])
				continue
			}
			if trimmed == "" {
				continue
			}
			return nil, fmt.Errorf("%w: unexpected line %q in things section", ErrParse, trimmed)
		case stateExits:
			if m := itemRe.FindStringSubmatch(line); m != nil {
				resp.Exits = append(resp.Exits, m[1])
				continue
			}
			if trimmed == "" {
				continue
			}
			return nil, fmt.Errorf("%w: unexpected line %q in exits section", ErrParse, trimmed)
		case stateInventory:
			if m := itemRe.FindStringSubmatch(line); m != nil {
				resp.Inventory = append(resp.Inventory, m[1])
				continue
			}
			if trimmed == "" {
				continue
			}
			return nil, fmt.Errorf("%w: unexpected line %q in inventory section", ErrParse, trimmed)
		}
	}

	if declaredExits >= 0 && declaredExits != len(resp.Exits) {
		return nil, fmt.Errorf("%w: %d exits declared but %d parsed", ErrParse, declaredExits, len(resp.Exits))
	}

	resp.Pretext = strings.TrimSpace(strings.Join(pretext, "\n"))
	resp.Message = strings.TrimSpace(strings.Join(message, "\n"))
	return resp, nil
}
