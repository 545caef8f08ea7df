package workflow

import (
	"strconv"
	"strings"
)

// Verb identifies a parsed inbound command.
type Verb string

const (
	VerbApprove  Verb = "approve"
	VerbReject   Verb = "reject"
	VerbSkip     Verb = "skip"
	VerbDetails  Verb = "details"
	VerbFeedback Verb = "feedback"
	VerbRefresh  Verb = "refresh"
	VerbStatus   Verb = "status"
	VerbHistory  Verb = "history"
	VerbTop      Verb = "top"
	VerbSearch   Verb = "search"
	VerbClear    Verb = "clear"
	VerbHelp     Verb = "help"
	VerbStart    Verb = "start"
	VerbChat     Verb = "chat"
)

// Command is one parsed inbound message. Index is 1-based for details and
// feedback; Arg carries the search query, feedback text, or the raw
// message for chat.
type Command struct {
	Verb  Verb
	Index int
	Arg   string
}

// Parse classifies an inbound message. Approval verbs must be the whole
// message; slash commands tolerate a bot-name suffix; anything else is
// chat for the assistant.
func Parse(text string) Command {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{Verb: VerbChat, Arg: ""}
	}

	switch strings.ToLower(trimmed) {
	case "yes":
		return Command{Verb: VerbApprove}
	case "no":
		return Command{Verb: VerbReject}
	case "skip":
		return Command{Verb: VerbSkip}
	}

	fields := strings.Fields(trimmed)
	verb := strings.ToLower(fields[0])
	verb = strings.TrimPrefix(verb, "/")
	if at := strings.Index(verb, "@"); at > 0 {
		verb = verb[:at]
	}

	switch verb {
	case "details", "detail":
		if n, ok := parseIndex(fields); ok {
			return Command{Verb: VerbDetails, Index: n}
		}
	case "feedback":
		if n, ok := parseIndex(fields); ok && len(fields) > 2 {
			return Command{Verb: VerbFeedback, Index: n, Arg: strings.Join(fields[2:], " ")}
		}
	case "refresh":
		return Command{Verb: VerbRefresh}
	case "status":
		return Command{Verb: VerbStatus}
	case "history":
		return Command{Verb: VerbHistory}
	case "top":
		return Command{Verb: VerbTop}
	case "search":
		if len(fields) > 1 {
			return Command{Verb: VerbSearch, Arg: strings.Join(fields[1:], " ")}
		}
	case "clear":
		return Command{Verb: VerbClear}
	case "help":
		return Command{Verb: VerbHelp}
	case "start":
		return Command{Verb: VerbStart}
	}

	return Command{Verb: VerbChat, Arg: trimmed}
}

func parseIndex(fields []string) (int, bool) {
	if len(fields) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
