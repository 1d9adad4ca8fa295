// Package notify renders recoverable task errors as terminal notifications.
package notify

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/kiln/internal/ui/output"
	"go.trai.ch/kiln/internal/ui/style"
)

// Notifier writes a bordered block to a terminal and rings the bell.
type Notifier struct {
	mu    sync.Mutex
	w     io.Writer
	box   lipgloss.Style
	title lipgloss.Style
	bell  bool
}

var _ ports.Notifier = (*Notifier)(nil)

// New creates a Notifier writing to w, defaulting to stderr.
func New(w io.Writer) *Notifier {
	if w == nil {
		w = os.Stderr
	}

	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(output.ColorProfile())

	return &Notifier{
		w: w,
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(style.Red).
			Padding(0, 1),
		title: r.NewStyle().Bold(true).Foreground(style.Red),
		bell:  true,
	}
}

// WithoutBell disables the terminal bell.
func (n *Notifier) WithoutBell() *Notifier {
	n.bell = false
	return n
}

// Notify writes the notification block.
func (n *Notifier) Notify(note ports.Notification) {
	body := n.title.Render(style.Cross+" "+note.Title) + "\n" + strings.TrimRight(note.Message, "\n")
	block := n.box.Render(body) + "\n"
	if n.bell {
		block = style.Bell + block
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = io.WriteString(n.w, block)
}
