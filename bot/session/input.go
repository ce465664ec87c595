package session

import (
	"strconv"
	"strings"
)

// Action classifies re-entrant text input while a selection is pending.
type Action int

const (
	// ActionNone means the input is not for us; other handlers may
	// process it.
	ActionNone Action = iota
	ActionExit
	ActionNextPage
	ActionPrevPage
	ActionSelect
)

// Command is the parsed form of one inbound text.
type Command struct {
	Action Action

	// Index is the 1-based candidate index for ActionSelect.
	Index int
}

// Tokens configures the recognized command words. Matching is exact after
// trimming, case-insensitive for ASCII tokens.
type Tokens struct {
	Exit []string
	Next []string
	Prev []string
}

// DefaultTokens matches the conversational commands users expect: "0" or
// an exit word leaves, page words flip pages, a bare number picks a song.
func DefaultTokens() Tokens {
	return Tokens{
		Exit: []string{"0", "q", "exit", "退出", "取消"},
		Next: []string{"n", "next", "下一页", "下页"},
		Prev: []string{"p", "prev", "上一页", "上页"},
	}
}

// Classify parses text into a Command. Numeric input becomes ActionSelect
// with its value; everything unrecognized is ActionNone.
func Classify(text string, tokens Tokens) Command {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{Action: ActionNone}
	}

	if matchToken(trimmed, tokens.Exit) {
		return Command{Action: ActionExit}
	}
	if matchToken(trimmed, tokens.Next) {
		return Command{Action: ActionNextPage}
	}
	if matchToken(trimmed, tokens.Prev) {
		return Command{Action: ActionPrevPage}
	}

	if n, err := strconv.Atoi(trimmed); err == nil {
		return Command{Action: ActionSelect, Index: n}
	}
	return Command{Action: ActionNone}
}

func matchToken(text string, tokens []string) bool {
	for _, token := range tokens {
		if strings.EqualFold(text, token) {
			return true
		}
	}
	return false
}

// ParseTokens splits a comma-separated config value into token list,
// falling back to defaults when empty.
func ParseTokens(raw string, fallback []string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	if len(tokens) == 0 {
		return fallback
	}
	return tokens
}
