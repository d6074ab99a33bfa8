package llm

import "context"

type StepType string

const (
	StepTypeID      StepType = "id"
	StepTypeClass   StepType = "class"
	StepTypeName    StepType = "name"
	StepTypeElement StepType = "element"
)

type StepDetails struct {
	Tag   string `json:"tag"`
	ID    string `json:"id,omitempty"`
	Class string `json:"class,omitempty"`
	Name  string `json:"name,omitempty"`
	Text  string `json:"text,omitempty"`
	Other string `json:"other,omitempty"`
}

// StepSpec is one navigation action: where to look and what to do there.
type StepSpec struct {
	Selector    string      `json:"selector"`
	Instruction string      `json:"instruction"`
	Type        StepType    `json:"type"`
	Details     StepDetails `json:"details"`
}

// StepPlan is executed in slice order. An empty plan is a valid answer.
type StepPlan []StepSpec

// NavigationQuery is what the prompt builder renders for the model.
type NavigationQuery struct {
	Text     string
	PageURL  string
	Snapshot string
}

// Backend is a single language-model provider.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator is the narrow contract the executor depends on.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
