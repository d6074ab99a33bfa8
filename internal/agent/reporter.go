package agent

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Reporter prints transcript messages as they are appended.
type Reporter struct {
	out       io.Writer
	user      *color.Color
	assistant *color.Color
}

func NewReporter(out io.Writer, colored bool) *Reporter {
	r := &Reporter{
		out:       out,
		user:      color.New(color.FgCyan, color.Bold),
		assistant: color.New(color.FgGreen),
	}
	if !colored {
		r.user.DisableColor()
		r.assistant.DisableColor()
	}
	return r
}

// Attach subscribes the reporter to t.
func (r *Reporter) Attach(t *Transcript) {
	t.Subscribe(r.Print)
}

func (r *Reporter) Print(m ChatMessage) {
	switch m.Sender {
	case SenderUser:
		r.user.Fprintf(r.out, "you> %s\n", m.Text)
	default:
		for _, line := range strings.Split(m.Text, "\n") {
			r.assistant.Fprintf(r.out, "🤖 %s\n", line)
		}
	}
}

// Summary renders the whole transcript, used when a session ends.
func (r *Reporter) Summary(t *Transcript) {
	msgs := t.Messages()
	fmt.Fprintln(r.out, "\n===== SESSION TRANSCRIPT =====")
	if len(msgs) == 0 {
		fmt.Fprintln(r.out, "(no messages)")
	}
	for _, m := range msgs {
		fmt.Fprintf(r.out, "#%d [%s] %s\n", m.ID, m.Sender, m.Text)
	}
	fmt.Fprintln(r.out, "===== END OF TRANSCRIPT =====")
}
