package snapshot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

type Mode string

const (
	ModeStructured Mode = "structured"
	ModeMarkup     Mode = "markup"
)

const interactiveSelector = "a, button, input, select, textarea"

// DefaultMarkers identify nodes injected by navguide itself (chat overlay,
// driver.js tour) that must never reach the model.
// Classes driver.js puts on page nodes during a tour (driver-active on
// <body>, driver-active-element on the target) are not markers.
var DefaultMarkers = []string{
	"navguide-",
	"driver-popover",
	"driver-overlay",
	"driver.js",
}

type Config struct {
	MaxChars int
	Markers  []string
	Mode     Mode
	Logger   *slog.Logger
}

type Extractor struct {
	maxChars int
	markers  []string
	mode     Mode
	policy   *bluemonday.Policy
	logger   *slog.Logger
}

func NewExtractor(cfg Config) *Extractor {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Markers == nil {
		cfg.Markers = DefaultMarkers
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeStructured
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	markers := make([]string, 0, len(cfg.Markers))
	for _, m := range cfg.Markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}

	return &Extractor{
		maxChars: cfg.MaxChars,
		markers:  markers,
		mode:     cfg.Mode,
		policy:   markupPolicy(),
		logger:   cfg.Logger,
	}
}

// markupPolicy keeps the interactive skeleton of a page and the attributes
// a selector can be built from. Everything else is stripped.
func markupPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("a", "button", "input", "select", "option", "textarea", "label", "form")
	p.AllowAttrs("id", "class", "name", "type", "role", "aria-label", "placeholder", "value", "title").Globally()
	p.AllowStandardURLs()
	p.AllowRelativeURLs(true)
	p.AllowAttrs("href").OnElements("a")
	return p
}

// Extract builds a snapshot from the page markup. It never fails: elements
// that cannot be read are omitted, and unparsable markup degrades to the
// sanitized markup form.
func (e *Extractor) Extract(pageURL, html string) *PageSnapshot {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("snapshot: markup parse failed, using sanitized markup", "url", pageURL, "error", err)
		return e.markupSnapshot(pageURL, "", html)
	}

	e.stripArtifacts(doc)
	title := cleanText(doc.Find("title").First().Text())

	if e.mode == ModeMarkup {
		body, err := doc.Find("body").Html()
		if err != nil {
			body = html
		}
		return e.markupSnapshot(pageURL, title, body)
	}

	var elements []Element
	doc.Find(interactiveSelector).Each(func(i int, s *goquery.Selection) {
		el, err := readElement(s)
		if err != nil {
			e.logger.Debug("snapshot: element skipped", "index", i, "error", err)
			return
		}
		elements = append(elements, el)
	})

	text, kept := encodeElements(elements, e.maxChars)
	if kept < len(elements) {
		e.logger.Debug("snapshot: truncated", "kept", kept, "total", len(elements), "budget", e.maxChars)
	}

	return &PageSnapshot{
		URL:       pageURL,
		Title:     title,
		Elements:  elements[:kept],
		Text:      text,
		Truncated: kept < len(elements),
	}
}

func (e *Extractor) markupSnapshot(pageURL, title, markup string) *PageSnapshot {
	clean := strings.TrimSpace(e.policy.Sanitize(markup))
	text := Truncate(clean, e.maxChars)
	return &PageSnapshot{
		URL:       pageURL,
		Title:     title,
		Text:      text,
		Truncated: len(text) < len(clean),
	}
}

func (e *Extractor) stripArtifacts(doc *goquery.Document) {
	doc.Find("[id], [class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		class, _ := s.Attr("class")
		return e.marked(id) || e.marked(class)
	}).Remove()

	doc.Find("script[src], link[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		href, _ := s.Attr("href")
		return e.marked(src) || e.marked(href)
	}).Remove()
}

func (e *Extractor) marked(value string) bool {
	if value == "" {
		return false
	}
	value = strings.ToLower(value)
	for _, m := range e.markers {
		if strings.Contains(value, m) {
			return true
		}
	}
	return false
}

func readElement(s *goquery.Selection) (el Element, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read element: %v", r)
		}
	}()

	if len(s.Nodes) == 0 {
		return Element{}, fmt.Errorf("empty selection")
	}
	node := s.Nodes[0]

	attrs := make(map[string]string, len(node.Attr))
	for _, a := range node.Attr {
		attrs[a.Key] = a.Val
	}

	el = Element{
		Tag:        strings.ToLower(goquery.NodeName(s)),
		ID:         strPtr(strings.TrimSpace(attrs["id"])),
		Name:       strPtr(strings.TrimSpace(attrs["name"])),
		Attributes: attrs,
	}
	if classes := strings.Fields(attrs["class"]); len(classes) > 0 {
		el.Class = classes
	}

	text := cleanText(s.Text())
	for _, fallback := range []string{"aria-label", "placeholder", "value", "title"} {
		if text != "" {
			break
		}
		text = cleanText(attrs[fallback])
	}
	el.Text = strPtr(text)

	return el, nil
}
