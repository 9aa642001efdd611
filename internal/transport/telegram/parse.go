package telegram

import (
	"strings"

	"planner/internal/task"
	"planner/internal/transport"
)

const usage = `Commands:
/add name | description | YYYY-MM-DD | HH | MM
/tasks - list scheduled tasks
/help - this text`

// parseCommand maps a message text to an Update. ok is false for text that is
// not addressed to the bot (no leading slash).
func parseCommand(text string, to transport.Target) (transport.Update, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return transport.Update{}, false
	}
	cmd, payload, _ := strings.Cut(text, " ")
	// "/add@planner_bot" in groups.
	cmd, _, _ = strings.Cut(strings.ToLower(cmd), "@")

	switch cmd {
	case "/add":
		d := parseAddPayload(payload)
		return transport.Update{Kind: transport.UpdateSubmit, Target: to, Draft: &d}, true
	case "/tasks", "/list":
		return transport.Update{Kind: transport.UpdateList, Target: to}, true
	default:
		// /help, /start and anything unknown.
		return transport.Update{Kind: transport.UpdateHelp, Target: to}, true
	}
}

// parseAddPayload splits "name | description | date | hour | minute".
// Missing trailing parts stay empty and fail validation in the core. A date
// that does not parse as YYYY-MM-DD counts as no date.
func parseAddPayload(payload string) task.Draft {
	parts := strings.Split(payload, "|")
	get := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}

	d := task.Draft{
		Name:        get(0),
		Description: get(1),
		Hour:        get(3),
		Minute:      get(4),
	}
	if raw := get(2); raw != "" {
		if date, err := task.ParseDate(raw); err == nil {
			d.Date = &date
		}
	}
	return d
}

func isOwner(owners []int64, id int64) bool {
	for _, o := range owners {
		if o == id {
			return true
		}
	}
	return false
}
