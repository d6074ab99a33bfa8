package agent

import (
	"sync"
	"time"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatMessage is immutable once appended.
type ChatMessage struct {
	ID        int64
	Text      string
	Sender    Sender
	CreatedAt time.Time
}

// Transcript is the append-only chat log of one overlay session.
type Transcript struct {
	mu          sync.Mutex
	lastID      int64
	messages    []ChatMessage
	subscribers []func(ChatMessage)
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Subscribe registers fn to be called after every append, in append order.
func (t *Transcript) Subscribe(fn func(ChatMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers = append(t.subscribers, fn)
}

func (t *Transcript) Append(sender Sender, text string) ChatMessage {
	t.mu.Lock()
	t.lastID++
	msg := ChatMessage{
		ID:        t.lastID,
		Text:      text,
		Sender:    sender,
		CreatedAt: time.Now(),
	}
	t.messages = append(t.messages, msg)
	subs := make([]func(ChatMessage), len(t.subscribers))
	copy(subs, t.subscribers)
	t.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
	return msg
}

func (t *Transcript) Messages() []ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.messages) == 0 {
		return nil
	}
	out := make([]ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
