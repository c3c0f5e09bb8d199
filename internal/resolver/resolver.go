package resolver

import (
	"sort"
	"strings"
	"time"

	"github.com/xaenox/gideon-bot/internal/models"
)

// Resolve maps a fuzzy natural-language reference onto one of the guild's
// scheduled events. Precedence, strictly in order:
//
//  1. datetime match (normalized-UTC prefix containment either way, so a
//     hint without milliseconds or with an offset instead of Z still hits),
//     with the title hint, if any, contained in the event name;
//  2. title hint contained in name or description, scanning events with
//     the most recent start time first;
//  3. the only event in the guild, when there is exactly one;
//  4. the most recently starting event.
//
// Equally recent events that both match a title hint resolve to whichever
// the scan reaches first; callers get a best-effort answer, not a guarantee.
// The second result is false only when the guild has no events at all.
func Resolve(events []models.ScheduledEvent, titleHint, datetimeHint string) (models.ScheduledEvent, bool) {
	if len(events) == 0 {
		return models.ScheduledEvent{}, false
	}

	titleHint = strings.TrimSpace(titleHint)
	datetimeHint = strings.TrimSpace(datetimeHint)

	if datetimeHint != "" {
		for _, ev := range events {
			if !datetimeMatches(ev.StartTime, datetimeHint) {
				continue
			}
			if titleHint == "" || containsFold(ev.Name, titleHint) {
				return ev, true
			}
		}
	}

	byRecency := make([]models.ScheduledEvent, len(events))
	copy(byRecency, events)
	sort.SliceStable(byRecency, func(i, j int) bool {
		return byRecency[i].StartTime.After(byRecency[j].StartTime)
	})

	if titleHint != "" {
		for _, ev := range byRecency {
			if containsFold(ev.Name, titleHint) || containsFold(ev.Description, titleHint) {
				return ev, true
			}
		}
	}

	if len(events) == 1 {
		return events[0], true
	}
	return byRecency[0], true
}

// datetimeMatches compares the event start against the hint by prefix
// containment in either direction on the Z-suffixed UTC form, tolerating
// hints that omit seconds or carry a +00:00 style offset.
func datetimeMatches(start time.Time, hint string) bool {
	normalized := start.UTC().Format(time.RFC3339)
	return strings.HasPrefix(normalized, hint) || strings.HasPrefix(hint, strings.TrimSuffix(normalized, "Z"))
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
