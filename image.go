package vtcore

import (
	"image"
)

// placementCacheBudget bounds the decoded pixel memory retained for image
// placements. When the budget is exceeded the oldest placements are dropped.
const placementCacheBudget = 64 << 20

type placement struct {
	imageID     uint32
	placementID uint32
	img         *image.RGBA
	line        int // raw line of the anchor cell
	col         int
	rows        int // covered cell rows
	cols        int
}

func (p *placement) pixelBytes() int {
	return len(p.img.Pix)
}

// Placement is the renderer-facing view of an image anchored to the grid.
type Placement struct {
	ImageID     uint32
	PlacementID uint32
	Image       *image.RGBA
	Col         int
	Row         int // view row of the anchor
	Rows        int
	Cols        int
}

func (b *buffer) addPlacement(p *placement) {
	b.placements = append(b.placements, p)

	total := 0
	for _, pl := range b.placements {
		total += pl.pixelBytes()
	}
	for total > placementCacheBudget && len(b.placements) > 1 {
		total -= b.placements[0].pixelBytes()
		b.placements = b.placements[1:]
	}
}

// shiftPlacements moves anchors up by n raw lines after scrollback eviction,
// dropping placements whose anchor row was evicted.
func (b *buffer) shiftPlacements(n int) {
	if len(b.placements) == 0 {
		return
	}
	kept := b.placements[:0]
	for _, p := range b.placements {
		p.line -= n
		if p.line >= 0 {
			kept = append(kept, p)
		}
	}
	b.placements = kept
}

func (b *buffer) dropPlacementsOnLine(raw int) {
	if len(b.placements) == 0 {
		return
	}
	kept := b.placements[:0]
	for _, p := range b.placements {
		if raw < p.line || raw >= p.line+p.rows {
			kept = append(kept, p)
		}
	}
	b.placements = kept
}

// dropPlacementsInRows removes placements intersecting [top, bottom) raw rows.
func (b *buffer) dropPlacementsInRows(top, bottom int) {
	if len(b.placements) == 0 {
		return
	}
	kept := b.placements[:0]
	for _, p := range b.placements {
		if p.line+p.rows <= top || p.line >= bottom {
			kept = append(kept, p)
		}
	}
	b.placements = kept
}

// dropPlacementsAt removes placements covering a single overwritten cell.
func (b *buffer) dropPlacementsAt(rawLine, col int) {
	if len(b.placements) == 0 {
		return
	}
	kept := b.placements[:0]
	for _, p := range b.placements {
		covered := rawLine >= p.line && rawLine < p.line+p.rows &&
			col >= p.col && col < p.col+p.cols
		if !covered {
			kept = append(kept, p)
		}
	}
	b.placements = kept
}

func (b *buffer) deletePlacements(match func(*placement) bool) {
	kept := b.placements[:0]
	for _, p := range b.placements {
		if !match(p) {
			kept = append(kept, p)
		}
	}
	b.placements = kept
}

// visiblePlacements returns placements intersecting the current view, with
// anchors translated to view coordinates.
func (b *buffer) visiblePlacements() []Placement {
	var result []Placement
	for _, p := range b.placements {
		row := b.convertRawLineToViewLine(p.line) + b.scrollOffset
		if row+p.rows <= 0 || row >= b.viewHeight {
			continue
		}
		result = append(result, Placement{
			ImageID:     p.imageID,
			PlacementID: p.placementID,
			Image:       p.img,
			Col:         p.col,
			Row:         row,
			Rows:        p.rows,
			Cols:        p.cols,
		})
	}
	return result
}
