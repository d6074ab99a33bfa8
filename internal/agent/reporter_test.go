package agent

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporterPrintsAppendedMessages(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTranscript()
	r := NewReporter(&buf, false)
	r.Attach(tr)

	tr.Append(SenderUser, "log in")
	tr.Append(SenderAssistant, "Step 1: Enter your username")

	assert.Equal(t, "you> log in\n🤖 Step 1: Enter your username\n", buf.String())

	buf.Reset()
	r.Summary(tr)
	assert.Contains(t, buf.String(), "#1 [user] log in")
	assert.Contains(t, buf.String(), "#2 [assistant] Step 1: Enter your username")
}

func TestTranscriptIsAppendOnly(t *testing.T) {
	tr := NewTranscript()
	first := tr.Append(SenderUser, "a")
	second := tr.Append(SenderAssistant, "b")

	assert.Less(t, first.ID, second.ID)

	msgs := tr.Messages()
	msgs[0].Text = "mutated"
	assert.Equal(t, "a", tr.Messages()[0].Text)
}
