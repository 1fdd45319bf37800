package vtcore

// shrink rewraps content into a narrower view, splitting long lines into
// wrapped physical lines so logical lines stay reconstructable.
func (b *buffer) shrink(width int) {
	var replace []line

	prevCursor := b.cursorPosition.Line

	for i, l := range b.lines {
		l.shrink(width)

		if l.len() <= width {
			replace = append(replace, l)
			continue
		}

		wrappedLines := l.wrap(width)

		if prevCursor >= i {
			b.cursorPosition.Line += len(wrappedLines) - 1
		}

		replace = append(replace, wrappedLines...)
	}

	if width > 0 {
		b.cursorPosition.Col = b.cursorPosition.Col % width
	}
	b.lines = replace
}

// grow joins wrapped lines back together and re-splits them at the new,
// wider boundary.
func (b *buffer) grow(width int) {
	var replace []line
	var current line

	prevCursor := b.cursorPosition.Line

	for i, l := range b.lines {
		if !l.wrapped {
			if i > 0 {
				replace = append(replace, current)
			}
			current = newLine()
			current.mark = l.mark
		}

		if i == prevCursor {
			b.cursorPosition.Line -= i - len(replace)
		}

		for _, c := range l.cells {
			if len(current.cells) == width {
				replace = append(replace, current)
				current = newLine()
				current.wrapped = true
			}
			current.cells = append(current.cells, c)
		}
	}

	replace = append(replace, current)
	b.lines = replace
}

func (b *buffer) resizeView(width int, height int) {
	if b.viewHeight == 0 {
		b.viewWidth = width
		b.viewHeight = height
		b.bottomMargin = height - 1
		return
	}

	// scroll to bottom
	b.scrollOffset = 0
	depth := b.scrollbackDepth()

	if width < b.viewWidth { // wrap lines if we're shrinking
		b.shrink(width)
		b.grow(width)
	} else if width > b.viewWidth { // unwrap lines if we're growing
		b.grow(width)
	}

	b.viewWidth = width
	b.viewHeight = height
	b.maxLines = depth + height

	if b.cursorPosition.Line >= len(b.lines) {
		b.cursorPosition.Line = len(b.lines) - 1
		if b.cursorPosition.Line < 0 {
			b.cursorPosition.Line = 0
		}
	}

	b.resetVerticalMargins(b.viewHeight)

	// pixel geometry changed underneath them, placements cannot survive
	b.placements = nil
}

func (b *buffer) scrollbackDepth() int {
	depth := b.maxLines - b.viewHeight
	if depth < 0 {
		return 0
	}
	return depth
}
