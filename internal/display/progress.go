package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ProgressIndicator prints numbered steps of a multi-step operation. Step
// may be called from several goroutines.
type ProgressIndicator struct {
	writer   io.Writer
	total    int
	current  int
	colorize bool
	mu       sync.Mutex
}

// NewProgressIndicator creates a new progress indicator
func NewProgressIndicator(w io.Writer, total int, colorize bool) *ProgressIndicator {
	return &ProgressIndicator{
		writer:   w,
		total:    total,
		colorize: colorize,
	}
}

// Start displays the header message
func (p *ProgressIndicator) Start(label string) {
	fmt.Fprintf(p.writer, "%s:\n", label)
}

// Step displays progress for the current item: [N/Total] item
func (p *ProgressIndicator) Step(item string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	line := fmt.Sprintf("  [%d/%d] %s", p.current, p.total, item)
	if p.colorize {
		line = color.New(color.FgCyan).Sprint(line)
	}
	fmt.Fprintln(p.writer, line)
}

// Complete displays a success line: "✓ <total> <noun>"
func (p *ProgressIndicator) Complete(noun string) {
	mark := "✓"
	if p.colorize {
		mark = color.New(color.FgGreen).Sprint(mark)
	}
	fmt.Fprintf(p.writer, "%s %d %s\n", mark, p.total, noun)
}

// ProgressBar represents an ASCII progress bar with color support
type ProgressBar struct {
	current  int
	total    int
	width    int
	colorize bool
	prefix   string
	mu       sync.RWMutex
}

// NewProgressBar creates a new progress bar; widths below 1 become 10
func NewProgressBar(total, width int, colorize bool) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{
		total:    total,
		width:    width,
		colorize: colorize,
	}
}

// Increment advances the bar by one
func (pb *ProgressBar) Increment() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current++
}

// SetPrefix sets the text rendered before the bar
func (pb *ProgressBar) SetPrefix(prefix string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.prefix = prefix
}

// Percentage returns the progress percentage (0-100)
func (pb *ProgressBar) Percentage() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.percentage()
}

func (pb *ProgressBar) percentage() int {
	if pb.total <= 0 {
		return 0
	}
	return min(max(pb.current*100/pb.total, 0), 100)
}

// Render returns "<prefix>[=====     ] 5/10 (50%)"
func (pb *ProgressBar) Render() string {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	perc := pb.percentage()
	filled := min(perc*pb.width/100, pb.width)
	bar := "[" + strings.Repeat("=", filled) + strings.Repeat(" ", pb.width-filled) + "]"
	result := fmt.Sprintf("%s%s %d/%d (%d%%)", pb.prefix, bar, pb.current, pb.total, perc)

	if pb.colorize {
		if perc < 100 {
			return color.New(color.FgCyan).Sprint(result)
		}
		return color.New(color.FgGreen).Sprint(result)
	}
	return result
}

// Draw rewrites the bar in place on a terminal line
func (pb *ProgressBar) Draw(w io.Writer) {
	fmt.Fprintf(w, "\r%s", pb.Render())
}
