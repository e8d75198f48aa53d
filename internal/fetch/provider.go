// Package fetch serves element snapshots from a single static HTML fetch.
// It covers portals whose first render already contains the form markup and
// runs entirely without a browser; anything injected by client scripts after
// load is invisible to it.
package fetch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/services/extraction"
)

// Config holds static-fetch settings
type Config struct {
	TargetURL string
	Timeout   time.Duration
	UserAgent string
}

// DefaultConfig returns fetch settings suitable for the public portal
func DefaultConfig() Config {
	return Config{
		TargetURL: "https://udyamregistration.gov.in/UdyamRegistration.aspx",
		Timeout:   30 * time.Second,
		UserAgent: "openbiz-extractor/1.0",
	}
}

// Provider implements the pipeline's snapshot, hint and evidence interfaces
// over one fetched document
type Provider struct {
	client *resty.Client
	logger *zap.Logger
	config Config

	mu  sync.Mutex
	doc *goquery.Document
}

// New creates a static-fetch provider. The page is fetched lazily on the
// first snapshot and reused for the rest of the run.
func New(logger *zap.Logger, config Config) *Provider {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	client := resty.New().
		SetTimeout(config.Timeout).
		SetHeader("User-Agent", config.UserAgent).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Provider{
		client: client,
		logger: logger,
		config: config,
	}
}

// Snapshot captures every form control in the document in markup order.
// Step scoping follows the same container heuristic as the browser provider;
// without a matching container the whole document is scanned.
func (p *Provider) Snapshot(ctx context.Context, step string) ([]domain.RawElement, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return nil, err
	}

	root := stepRoot(doc, step)

	var elements []domain.RawElement
	root.Find("input, select, textarea, button").Each(func(_ int, sel *goquery.Selection) {
		elements = append(elements, readElement(root, sel))
	})

	p.logger.Debug("captured static snapshot",
		zap.String("step", step),
		zap.Int("elements", len(elements)),
	)
	return elements, nil
}

// AttributeHints reads validation attributes straight from the parsed markup
func (p *Provider) AttributeHints(ctx context.Context, identifier, name string) (*extraction.AttributeHints, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return nil, err
	}

	sel := locate(doc, identifier, name)
	if sel == nil {
		return nil, fmt.Errorf("control %q/%q not found in document", identifier, name)
	}

	hints := &extraction.AttributeHints{
		Pattern:   sel.AttrOr("pattern", ""),
		MinLength: atoiAttr(sel, "minlength"),
		MaxLength: atoiAttr(sel, "maxlength"),
	}
	return hints, nil
}

// inlinePatternRes extract regex literals from client validation script text
var inlinePatternRes = []*regexp.Regexp{
	regexp.MustCompile(`new RegExp\(["']([^"']+)["']`),
	regexp.MustCompile(`\.match\(/((?:[^/\\]|\\.)+)/`),
	regexp.MustCompile(`/((?:[^/\\]|\\.)+)/\.test\(`),
}

// InlinePatterns scans inline scripts mentioning the identifier for regex
// literals
func (p *Provider) InlinePatterns(ctx context.Context, identifier string) ([]string, error) {
	if identifier == "" {
		return nil, nil
	}
	doc, err := p.document(ctx)
	if err != nil {
		return nil, err
	}

	var found []string
	doc.Find("script").Each(func(_ int, script *goquery.Selection) {
		text := script.Text()
		if !strings.Contains(strings.ToLower(text), strings.ToLower(identifier)) {
			return
		}
		for _, re := range inlinePatternRes {
			for _, match := range re.FindAllStringSubmatch(text, -1) {
				found = append(found, match[1])
			}
		}
	})
	return found, nil
}

// DOMHash fingerprints the fetched document for change detection
func (p *Provider) DOMHash(ctx context.Context) (string, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return "", err
	}
	html, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("serializing document: %w", err)
	}
	return domain.HashDOM(html), nil
}

// document fetches and parses the page once, memoizing the result
func (p *Provider) document(ctx context.Context) (*goquery.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc != nil {
		return p.doc, nil
	}

	p.logger.Info("fetching portal page", zap.String("url", p.config.TargetURL))
	resp, err := p.client.R().SetContext(ctx).Get(p.config.TargetURL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", p.config.TargetURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching %s: status %d", p.config.TargetURL, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p.config.TargetURL, err)
	}
	p.doc = doc
	return doc, nil
}

var stepContainers = map[string][]string{
	"step1": {"[id*='Adhar']", "[id*='adhar']", "[id*='Aadhaar']"},
	"step2": {"[id*='Pan']", "[id*='PAN']", "[id*='pan']"},
}

func stepRoot(doc *goquery.Document, step string) *goquery.Selection {
	for _, selector := range stepContainers[step] {
		if candidate := doc.Find(selector).First(); candidate.Length() > 0 {
			// a container must hold controls, otherwise it is just a field
			if candidate.Find("input, select, textarea, button").Length() > 0 {
				return candidate
			}
		}
	}
	return doc.Selection
}

func readElement(root *goquery.Selection, sel *goquery.Selection) domain.RawElement {
	tagName := goquery.NodeName(sel)

	el := domain.RawElement{
		TagKind:      tagName,
		Identifier:   sel.AttrOr("id", ""),
		Name:         sel.AttrOr("name", ""),
		CSSClasses:   sel.AttrOr("class", ""),
		Placeholder:  sel.AttrOr("placeholder", ""),
		CurrentValue: sel.AttrOr("value", ""),
	}

	el.ElementKind = tagName
	if tagName == "input" {
		el.ElementKind = "text"
		if inputType := sel.AttrOr("type", ""); inputType != "" {
			el.ElementKind = inputType
		}
	}

	if _, ok := sel.Attr("required"); ok {
		el.IsRequired = true
	}
	if _, ok := sel.Attr("disabled"); ok {
		el.IsDisabled = true
	}
	if style := sel.AttrOr("style", ""); strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none") {
		el.Hidden = true
	}

	if el.Identifier != "" {
		label := root.Find(`label[for="` + el.Identifier + `"]`).First()
		if label.Length() > 0 {
			el.AssociatedLabel = strings.TrimSpace(label.Text())
		}
	}

	if tagName == "select" {
		el.ElementKind = "select-one"
		sel.Find("option").Each(func(_ int, option *goquery.Selection) {
			el.Options = append(el.Options, domain.Option{
				Value: option.AttrOr("value", ""),
				Text:  strings.TrimSpace(option.Text()),
			})
		})
	}
	if tagName == "button" && el.CurrentValue == "" {
		el.CurrentValue = strings.TrimSpace(sel.Text())
	}

	return el
}

func locate(doc *goquery.Document, identifier, name string) *goquery.Selection {
	selectors := make([]string, 0, 4)
	if identifier != "" {
		selectors = append(selectors, "#"+identifier, `[id$="`+identifier+`"]`)
	}
	if name != "" {
		selectors = append(selectors, `[name="`+name+`"]`, `[name$="`+name+`"]`)
	}
	for _, selector := range selectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

func atoiAttr(sel *goquery.Selection, attr string) int {
	raw, ok := sel.Attr(attr)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
