// internal/workers/agent/dispatch-intent/commands.go
package dispatchintent

import (
	"regexp"
	"strconv"
	"strings"
)

// CommandKind names a literal command that bypasses intent routing.
type CommandKind string

const (
	CommandCancelOrder CommandKind = "cancel_order"
	CommandOrderStatus CommandKind = "order_status"
	CommandSearch      CommandKind = "search"
)

// Command is a literal command parsed from raw text. Problem is set when the
// command was recognised but its argument is unusable.
type Command struct {
	Kind    CommandKind
	OrderID int64
	Query   string
	Problem string
}

var (
	cancelOrderPattern = regexp.MustCompile(`(?i)\bcancel order\b\s*(?:no\.?|number|#)?\s*(\S*)`)
	orderStatusPattern = regexp.MustCompile(`(?i)\border status\b(?:\s+(?:of|for))?\s*(?:no\.?|number|#)?\s*(\S*)`)
	searchPattern      = regexp.MustCompile(`(?i)\bsearch\b(?:\s+for)?\s*(.*)$`)
)

// MatchCommand recognises "cancel order N", "order status N" and
// "search <query>" anywhere in raw.
func MatchCommand(raw string) (Command, bool) {
	if m := cancelOrderPattern.FindStringSubmatch(raw); m != nil {
		return orderCommand(CommandCancelOrder, m[1], "cancel order"), true
	}
	if m := orderStatusPattern.FindStringSubmatch(raw); m != nil {
		return orderCommand(CommandOrderStatus, m[1], "order status"), true
	}
	if m := searchPattern.FindStringSubmatch(raw); m != nil {
		query := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[1]), "?.!"))
		if query == "" {
			return Command{Kind: CommandSearch, Problem: "Please tell me what to search for, e.g. \"search ibuprofen\"."}, true
		}
		return Command{Kind: CommandSearch, Query: query}, true
	}
	return Command{}, false
}

func orderCommand(kind CommandKind, arg, example string) Command {
	arg = strings.TrimRight(arg, "?.!,")
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return Command{Kind: kind, Problem: "Please provide a valid order number, e.g. \"" + example + " 7\"."}
	}
	return Command{Kind: kind, OrderID: id}
}
