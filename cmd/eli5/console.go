package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"eli5/internal/flow"
)

// console prints notices and the final view to a terminal.
type console struct {
	mu      sync.Mutex
	out     io.Writer
	bold    *color.Color
	italic  *color.Color
	success *color.Color
	failure *color.Color
}

func newConsole(out io.Writer) *console {
	return &console{
		out:     out,
		bold:    color.New(color.Bold),
		italic:  color.New(color.Italic),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
	}
}

func (c *console) Notify(n flow.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n.Destructive {
		c.failure.Fprintf(c.out, "✗ %s: %s\n", n.Title, n.Description)
		return
	}
	c.success.Fprintf(c.out, "• %s: %s\n", n.Title, n.Description)
}

func (c *console) Render(v flow.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out)
	c.bold.Fprintf(c.out, "Q: %s\n", v.Question)
	fmt.Fprintf(c.out, "(%s, %s)\n", v.Level, v.Style)
	if v.HasSummary {
		fmt.Fprintln(c.out)
		c.bold.Fprintln(c.out, "Wikipedia summary")
		c.italic.Fprintln(c.out, v.Summary)
	}
	fmt.Fprintln(c.out)
	c.bold.Fprintln(c.out, "Answer")
	fmt.Fprintln(c.out, v.Answer)
}
