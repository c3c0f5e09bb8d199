package directive

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xaenox/gideon-bot/internal/models"
)

// Sentinel is the exact completion output that means "do not respond".
// Matched case-insensitively with surrounding whitespace ignored.
const Sentinel = "NO_REPLY"

// The bracket delimiters and JSON field names are a wire contract with the
// completion prompt; changing them breaks deployed conversations.
var (
	scheduleRe = regexp.MustCompile(`(?s)\[SCHEDULE_EVENT\](.*?)\[/SCHEDULE_EVENT\]`)
	updateRe   = regexp.MustCompile(`(?s)\[UPDATE_EVENT\](.*?)\[/UPDATE_EVENT\]`)
	cancelRe   = regexp.MustCompile(`(?s)\[CANCEL_EVENT\](.*?)\[/CANCEL_EVENT\]`)
)

// Parse extracts at most one directive from a completion response. Schedule
// is checked before update before cancel; the first recognized block wins
// and any others are ignored. Text with no block is a verbatim reply, and a
// malformed block degrades to an apology reply rather than an error, so the
// pipeline always has a user-visible outcome.
func Parse(text string) models.Directive {
	if strings.EqualFold(strings.TrimSpace(text), Sentinel) {
		return models.Directive{Kind: models.DirectiveSilence}
	}

	if m := scheduleRe.FindStringSubmatch(text); m != nil {
		var payload models.ScheduleEvent
		if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
			return parseFailure("schedule", m[1], err)
		}
		return models.Directive{Kind: models.DirectiveSchedule, Schedule: &payload}
	}
	if m := updateRe.FindStringSubmatch(text); m != nil {
		var payload models.UpdateEvent
		if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
			return parseFailure("update", m[1], err)
		}
		return models.Directive{Kind: models.DirectiveUpdate, Update: &payload}
	}
	if m := cancelRe.FindStringSubmatch(text); m != nil {
		var payload models.CancelEvent
		if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
			return parseFailure("cancel", m[1], err)
		}
		return models.Directive{Kind: models.DirectiveCancel, Cancel: &payload}
	}

	return models.Directive{Kind: models.DirectiveReply, Reply: text}
}

func parseFailure(operation, block string, err error) models.Directive {
	reply := fmt.Sprintf(
		"Sorry, I understood that as a %s request but couldn't read the details (%v): %s",
		operation, err, strings.TrimSpace(block))
	return models.Directive{Kind: models.DirectiveReply, Reply: reply}
}
