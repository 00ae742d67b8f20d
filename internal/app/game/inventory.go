package game

import (
	"github.com/PabloGalante/campfire/internal/app/logfilter"
	"github.com/PabloGalante/campfire/internal/domain"
)

var inventorySnapshots = logfilter.LastMatch(
	logfilter.ByTags("inventory", domain.TagRef{Kind: domain.TagInventory}),
)

// latestInventory returns a copy of the newest inventory snapshot, or an
// empty inventory.
func latestInventory(msgs []*domain.Message) map[string]string {
	items := make(map[string]string)
	for _, s := range inventorySnapshots(msgs) {
		for _, t := range s.Message.Tags {
			if t.Kind != domain.TagInventory || t.Value.Kind != domain.ValueFields {
				continue
			}
			for k, v := range t.Value.Fields {
				items[k] = v
			}
		}
	}
	return items
}
