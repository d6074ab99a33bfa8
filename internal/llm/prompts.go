package llm

import (
	"fmt"

	"github.com/nbenliogludev/go-nav-guide/internal/snapshot"
)

const DefaultPromptBudget = 10000

const SystemPrompt = "You are an AI assistant that generates precise website navigation steps with CSS selectors and their attributes."

const outputContract = "## Expected JSON Response Format:\n" +
	"Respond with ONLY a JSON object of this exact shape, with no extra text or explanations:\n" +
	"```json\n" +
	`{
  "steps": [
    {
      "selector": "CSS selector for the element",
      "instruction": "Clear instruction for what to do",
      "type": "id | class | name | element",
      "details": {
        "tag": "HTML tag name",
        "id": "id of the element (if available)",
        "class": "CSS class of the element (if available)",
        "name": "name attribute (if available)",
        "text": "visible text content (if applicable)",
        "other": "other attributes if relevant"
      }
    }
  ]
}` + "\n```\n" +
	`
Field rules:
- "selector": a valid CSS selector that matches exactly one element from the provided elements. Required, never empty.
- "instruction": what the user should do with that element, in one sentence. Required, never empty.
- "type": which attribute the selector is built from: "id", "class", "name", or "element" (tag only).
- "details": the attributes of the chosen element copied from the provided elements; omit those that are absent.
`

const navigationTemplate = `Carefully analyze the following webpage elements and generate **step-by-step navigation instructions** based on the user's query.

## Instructions:
- **Understand the user's intent** and find the most relevant elements.
- **Identify the best selectors**: when an element has several usable attributes, prefer **name > id > class**.
- **Ensure correctness**: only use elements that exist in the provided elements JSON.
- **Think step-by-step before answering**: break the navigation down into the order the user must follow.

%s
## Additional Requirements:
- Every step must lead logically towards the final goal.
- If the user has to click, type, or select an option, say so explicitly in the instruction.
- If nothing on the page matches the request, return {"steps": []}.

## Input:
User Query: %s
Website URL: %s
Website Elements JSON:
%s
`

// PromptBuilder renders a NavigationQuery into model instructions. It does
// no I/O and is deterministic for identical input.
type PromptBuilder struct {
	Budget int
}

func NewPromptBuilder(budget int) PromptBuilder {
	if budget <= 0 {
		budget = DefaultPromptBudget
	}
	return PromptBuilder{Budget: budget}
}

// Normalize truncates every field of q to the builder's budget.
func (b PromptBuilder) Normalize(q NavigationQuery) NavigationQuery {
	budget := b.Budget
	if budget <= 0 {
		budget = DefaultPromptBudget
	}
	return NavigationQuery{
		Text:     snapshot.Truncate(q.Text, budget),
		PageURL:  snapshot.Truncate(q.PageURL, budget),
		Snapshot: snapshot.Truncate(q.Snapshot, budget),
	}
}

func (b PromptBuilder) Build(q NavigationQuery) string {
	q = b.Normalize(q)
	return fmt.Sprintf(navigationTemplate, outputContract, q.Text, q.PageURL, q.Snapshot)
}
