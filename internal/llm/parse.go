package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
)

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	anyFenceRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(\\{.*?)```")
)

// ParsePlan extracts the step plan from free-form model output. A response
// with any invalid step is rejected as a whole.
func ParsePlan(raw string) (StepPlan, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return nil, &MalformedResponseError{Reason: err.Error(), Raw: raw}
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &top); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid JSON", Raw: raw, Err: err}
	}

	rawSteps, ok := top["steps"]
	if !ok {
		return nil, &MalformedResponseError{Reason: `missing "steps"`, Raw: raw}
	}
	if !bytes.HasPrefix(bytes.TrimSpace(rawSteps), []byte("[")) {
		return nil, &MalformedResponseError{Reason: `"steps" is not an array`, Raw: raw}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawSteps, &items); err != nil {
		return nil, &MalformedResponseError{Reason: `"steps" is not an array`, Raw: raw, Err: err}
	}

	plan := make(StepPlan, 0, len(items))
	for i, item := range items {
		step, err := decodeStep(item)
		if err != nil {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("step %d", i+1), Raw: raw, Err: err}
		}
		plan = append(plan, step)
	}

	return plan, nil
}

func extractJSON(raw string) (string, error) {
	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), nil
	}
	if m := anyFenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), nil
	}

	// Bare object, possibly with unmatched fence tokens around it.
	text := strings.ReplaceAll(raw, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object found")
	}
	return text[start : end+1], nil
}

func decodeStep(item json.RawMessage) (StepSpec, error) {
	var fields map[string]any
	if err := json.Unmarshal(item, &fields); err != nil {
		return StepSpec{}, fmt.Errorf("not an object: %w", err)
	}
	if fields == nil {
		return StepSpec{}, fmt.Errorf("step is null")
	}

	selector := strings.TrimSpace(stringField(fields, "selector"))
	if selector == "" {
		return StepSpec{}, fmt.Errorf(`missing "selector"`)
	}
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return StepSpec{}, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	instruction := strings.TrimSpace(stringField(fields, "instruction"))
	if instruction == "" {
		return StepSpec{}, fmt.Errorf(`missing "instruction"`)
	}

	step := StepSpec{
		Selector:    selector,
		Instruction: instruction,
		Type:        normalizeStepType(stringField(fields, "type")),
	}

	if details, ok := fields["details"].(map[string]any); ok {
		step.Details = StepDetails{
			Tag:   stringField(details, "tag"),
			ID:    stringField(details, "id"),
			Class: stringField(details, "class"),
			Name:  stringField(details, "name"),
			Text:  stringField(details, "text"),
			Other: stringField(details, "other"),
		}
	}

	return step, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func normalizeStepType(t string) StepType {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "id":
		return StepTypeID
	case "class":
		return StepTypeClass
	case "name":
		return StepTypeName
	default:
		return StepTypeElement
	}
}
