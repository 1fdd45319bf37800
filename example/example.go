//go:build ignore
// +build ignore

package main

import (
	"log"
	"os"
	"os/exec"

	vtcore "git.sr.ht/~ghost08/vtcore"
	"github.com/gdamore/tcell/v2"
)

// clipboard stores yanks in memory so copy mode and OSC 52 round-trip.
type clipboard struct {
	content string
}

func (c *clipboard) Write(text string) error {
	c.content = text
	return nil
}

func (c *clipboard) Read() (string, error) {
	return c.content, nil
}

func main() {
	f, _ := os.Create("example.log")
	defer f.Close()
	logger := log.New(f, "", log.LstdFlags|log.Lshortfile)
	vtcore.SetLogger(logger.Printf)

	s, err := tcell.NewScreen()
	if err != nil {
		log.Fatal(err)
	}
	if err = s.Init(); err != nil {
		log.Fatal(err)
	}
	s.EnableMouse()
	s.EnablePaste()

	cols, rows := s.Size()
	term := vtcore.New(
		vtcore.WithSize(cols, rows),
		vtcore.WithClipboard(&clipboard{}),
	)

	events := make(chan tcell.Event, 64)
	term.Attach(func(ev tcell.Event) {
		select {
		case events <- ev:
		default:
		}
	})

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	go func() {
		if err := term.Run(exec.Command(shell)); err != nil {
			logger.Println(err)
		}
		s.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	go func() {
		for ev := range events {
			switch ev.(type) {
			case *vtcore.EventRedraw, *vtcore.EventTitle:
				s.PostEvent(tcell.NewEventInterrupt(ev))
			case *vtcore.EventClosed:
				s.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	draw := func() {
		cols, rows := term.Size()
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; {
				c := term.Cell(col, row)
				style := c.Style
				if c.Selected {
					style = style.Reverse(true)
				}
				s.SetContent(col, row, c.Content, c.Combining, style)
				if c.Width > 1 {
					col += c.Width
				} else {
					col++
				}
			}
		}
		if col, row, style, vis := term.Cursor(); vis {
			s.ShowCursor(col, row)
			s.SetCursorStyle(style)
		} else {
			s.HideCursor()
		}
		s.Show()
	}

	for {
		ev := s.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			// Ctrl-Space toggles copy mode, Ctrl-Q quits
			switch {
			case ev.Key() == tcell.KeyCtrlQ:
				term.Close()
				s.Fini()
				return
			case ev.Key() == tcell.KeyCtrlSpace:
				if term.CopyModeState() == vtcore.CopyModeInactive {
					term.EnterCopyMode()
				} else {
					term.ExitCopyMode()
				}
				draw()
				continue
			}
			term.HandleEvent(ev)
			if term.CopyModeState() != vtcore.CopyModeInactive {
				draw()
			}
		case *tcell.EventResize:
			cols, rows := ev.Size()
			term.Resize(cols, rows)
			s.Sync()
		case *tcell.EventPaste, *tcell.EventMouse:
			term.HandleEvent(ev)
		case *tcell.EventInterrupt:
			if ev.Data() == nil {
				s.Fini()
				return
			}
			draw()
		}
	}
}
