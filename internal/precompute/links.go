package precompute

import (
	"sort"

	"github.com/musexhq/musex/internal/dimension"
	"github.com/musexhq/musex/internal/spatial"
	"github.com/musexhq/musex/pkg/models"
)

const defaultLinkColor = "#000000"

// deriveLinks emits one link per group label whose membership, taken over
// the original unfiltered entity set and intersected with the surviving
// nodes, contains exactly two entities. Labels with 0, 1 or 3+ survivors
// produce nothing: a link renders a pairwise relationship, e.g. two tracks
// on the same record label.
func deriveLinks(key models.SnapshotKey, entities []models.Entity, position map[string]spatial.Point, normalizer *dimension.Normalizer) []models.GraphLink {
	members := make(map[string][]models.Entity)
	for _, ent := range entities {
		for _, label := range ent.Labels {
			members[label] = append(members[label], ent)
		}
	}

	labels := make([]string, 0, len(members))
	for label := range members {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var links []models.GraphLink
	for _, label := range labels {
		var survivors []models.Entity
		for _, ent := range members[label] {
			if _, ok := position[ent.ID]; ok {
				survivors = append(survivors, ent)
			}
		}
		if len(survivors) != 2 {
			continue
		}

		a, b := survivors[0], survivors[1]
		pa, pb := position[a.ID], position[b.ID]

		color := a.Color
		if color == "" {
			color = defaultLinkColor
		}

		// Endpoint coordinates are stored in raw feature units so the
		// frontend can render the link without a second lookup.
		x1, _ := normalizer.Denormalize(key.DimX, pa.X)
		y1, _ := normalizer.Denormalize(key.DimY, pa.Y)
		x2, _ := normalizer.Denormalize(key.DimX, pb.X)
		y2, _ := normalizer.Denormalize(key.DimY, pb.Y)

		links = append(links, models.GraphLink{
			Source: a.ID,
			Dest:   b.ID,
			Label:  label,
			Color:  color,
			X1:     x1,
			Y1:     y1,
			X2:     x2,
			Y2:     y2,
		})
	}
	return links
}
