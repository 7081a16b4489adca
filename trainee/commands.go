package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/satriahrh/client-talk/domain"
)

type command struct {
	name string
	args []string
}

// parseCommand splits a slash command. ok is false for plain chat input.
func parseCommand(input string) (command, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return command{}, false
	}
	fields := strings.Fields(input[1:])
	if len(fields) == 0 {
		return command{name: "help"}, true
	}
	return command{name: strings.ToLower(fields[0]), args: fields[1:]}, true
}

// parseStartArgs reads "[category|random] [difficulty]".
func parseStartArgs(args []string) (domain.Category, int, error) {
	category := domain.Category("")
	difficulty := domain.DefaultDifficulty

	if len(args) > 2 {
		return "", 0, fmt.Errorf("usage: /start [category|random] [1-5]")
	}
	if len(args) >= 1 && args[0] != "random" {
		if _, ok := domain.LookupCategory(domain.Category(args[0])); !ok {
			return "", 0, fmt.Errorf("unknown category %q", args[0])
		}
		category = domain.Category(args[0])
	}
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < domain.MinDifficulty || n > domain.MaxDifficulty {
			return "", 0, fmt.Errorf("difficulty must be %d-%d", domain.MinDifficulty, domain.MaxDifficulty)
		}
		difficulty = n
	}
	return category, difficulty, nil
}

const helpText = `commands:
  /start [category|random] [1-5]  start a new session
  /categories                     list categories
  /eval                           evaluate (after 3 messages)
  /say <file>                     send a raw 16 kHz LINEAR16 recording
  /abandon                        give up the current session
  /reset                          clear the session
  /quit                           exit
anything else is sent to the client`
