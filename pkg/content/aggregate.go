// Package content aggregates an assistant message's event stream into its
// display text and caches the result per message id.
package content

import (
	"sort"
	"strings"

	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
)

// Aggregate reduces an event set into the message's display string. Events
// are sorted by ascending event index regardless of arrival order, and every
// text fragment is concatenated in encounter order. When the events carry no
// text at all, the message's own inline parts serve as the legacy fallback.
// An empty result is a valid loaded state, not an error.
func Aggregate(events []models.Event, msg models.Message) string {
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EventIndex < sorted[j].EventIndex
	})

	var b strings.Builder
	for _, ev := range sorted {
		for _, frag := range ev.Content.TextFragments() {
			b.WriteString(frag)
		}
	}
	if b.Len() == 0 {
		return msg.InlineText()
	}
	return b.String()
}
