// Package browser drives a real Chromium session against the registration
// portal. It is the live snapshot source for the extraction pipeline and
// additionally serves per-field attribute hints and inline-script evidence.
package browser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/services/extraction"
)

// Config holds browser session settings
type Config struct {
	TargetURL string
	Headless  bool
	Timeout   time.Duration
	// RateLimit caps attribute-hint reads per second against the live page
	RateLimit float64
}

// DefaultConfig returns browser settings suitable for the public portal
func DefaultConfig() Config {
	return Config{
		TargetURL: "https://udyamregistration.gov.in/UdyamRegistration.aspx",
		Headless:  true,
		Timeout:   30 * time.Second,
		RateLimit: 10,
	}
}

// Provider implements the pipeline's snapshot, hint and evidence interfaces
// on top of a playwright-driven page
type Provider struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	logger  *zap.Logger
	limiter *rate.Limiter
	config  Config
}

// stepContainers lists candidate selectors that scope a snapshot to one
// registration step. The portal renders both steps on a single page; when no
// candidate matches, the whole page is scanned.
var stepContainers = map[string][]string{
	"step1": {"[id*='Adhar' i]", "[id*='Aadhaar' i]"},
	"step2": {"[id*='Pan' i]", "[id*='PAN']"},
}

// New launches a browser session. Callers must Close it.
func New(logger *zap.Logger, config Config) (*Provider, error) {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = DefaultConfig().RateLimit
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(config.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1920,
			Height: 1080,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("creating browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("creating page: %w", err)
	}

	return &Provider{
		pw:      pw,
		browser: browser,
		page:    page,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		config:  config,
	}, nil
}

// Navigate loads the target page and waits for the network to settle
func (p *Provider) Navigate(ctx context.Context) error {
	p.logger.Info("navigating to portal", zap.String("url", p.config.TargetURL))

	if _, err := p.page.Goto(p.config.TargetURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(p.config.Timeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("navigating to %s: %w", p.config.TargetURL, err)
	}

	// portals with heavy inline scripts keep mutating after networkidle
	p.page.WaitForTimeout(1500)
	return nil
}

// Snapshot captures every form control in the step's scope in DOM order
func (p *Provider) Snapshot(ctx context.Context, step string) ([]domain.RawElement, error) {
	root := p.stepRoot(step)

	controls := root.Locator("input, select, textarea, button")
	count, err := controls.Count()
	if err != nil {
		return nil, fmt.Errorf("counting controls for %s: %w", step, err)
	}

	elements := make([]domain.RawElement, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		el, err := p.readElement(root, controls.Nth(i))
		if err != nil {
			p.logger.Debug("skipping unreadable control",
				zap.String("step", step),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		elements = append(elements, el)
	}

	p.logger.Debug("captured snapshot",
		zap.String("step", step),
		zap.Int("elements", len(elements)),
	)
	return elements, nil
}

// stepRoot resolves the container locator for a step, falling back to the
// whole page when no known container is present
func (p *Provider) stepRoot(step string) playwright.Locator {
	for _, selector := range stepContainers[step] {
		candidate := p.page.Locator(selector).First()
		if n, err := candidate.Count(); err == nil && n > 0 {
			return candidate
		}
	}
	return p.page.Locator("body")
}

func (p *Provider) readElement(root playwright.Locator, control playwright.Locator) (domain.RawElement, error) {
	tag, err := control.Evaluate("el => el.tagName.toLowerCase()", nil)
	if err != nil {
		return domain.RawElement{}, fmt.Errorf("reading tag name: %w", err)
	}
	tagName, _ := tag.(string)

	el := domain.RawElement{TagKind: tagName}

	if id, err := control.GetAttribute("id"); err == nil {
		el.Identifier = id
	}
	if name, err := control.GetAttribute("name"); err == nil {
		el.Name = name
	}
	if class, err := control.GetAttribute("class"); err == nil {
		el.CSSClasses = class
	}
	if placeholder, err := control.GetAttribute("placeholder"); err == nil {
		el.Placeholder = placeholder
	}
	if value, err := control.GetAttribute("value"); err == nil {
		el.CurrentValue = value
	}

	el.ElementKind = tagName
	if tagName == "input" {
		el.ElementKind = "text"
		if inputType, err := control.GetAttribute("type"); err == nil && inputType != "" {
			el.ElementKind = inputType
		}
	}

	if required, err := control.GetAttribute("required"); err == nil && required != "" {
		el.IsRequired = true
	}
	if disabled, err := control.GetAttribute("disabled"); err == nil && disabled != "" {
		el.IsDisabled = true
	}
	if visible, err := control.IsVisible(); err == nil {
		el.Hidden = !visible
	}

	if el.Identifier != "" {
		label := root.Locator(`label[for="` + el.Identifier + `"]`).First()
		if n, err := label.Count(); err == nil && n > 0 {
			if text, err := label.TextContent(); err == nil {
				el.AssociatedLabel = strings.TrimSpace(text)
			}
		}
	}

	if tagName == "select" {
		el.ElementKind = "select-one"
		el.Options = p.readOptions(control)
	}
	if tagName == "button" && el.CurrentValue == "" {
		if text, err := control.TextContent(); err == nil {
			el.CurrentValue = strings.TrimSpace(text)
		}
	}

	return el, nil
}

func (p *Provider) readOptions(control playwright.Locator) []domain.Option {
	optionLocators := control.Locator("option")
	count, err := optionLocators.Count()
	if err != nil {
		return nil
	}

	options := make([]domain.Option, 0, count)
	for i := 0; i < count; i++ {
		option := optionLocators.Nth(i)
		var o domain.Option
		if value, err := option.GetAttribute("value"); err == nil {
			o.Value = value
		}
		if text, err := option.TextContent(); err == nil {
			o.Text = strings.TrimSpace(text)
		}
		options = append(options, o)
	}
	return options
}

// AttributeHints reads the live validation attributes of one control. Reads
// are rate limited to keep the hint pass from hammering the page.
func (p *Provider) AttributeHints(ctx context.Context, identifier, name string) (*extraction.AttributeHints, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	control, err := p.locate(identifier, name)
	if err != nil {
		return nil, err
	}

	hints := &extraction.AttributeHints{}
	if pattern, err := control.GetAttribute("pattern"); err == nil {
		hints.Pattern = pattern
	}
	if min, err := control.GetAttribute("minlength"); err == nil {
		hints.MinLength = atoiOrZero(min)
	}
	if max, err := control.GetAttribute("maxlength"); err == nil {
		hints.MaxLength = atoiOrZero(max)
	}
	return hints, nil
}

// inlinePatternRes extract regex literals from client validation script text
var inlinePatternRes = []*regexp.Regexp{
	regexp.MustCompile(`new RegExp\(["']([^"']+)["']`),
	regexp.MustCompile(`\.match\(/((?:[^/\\]|\\.)+)/`),
	regexp.MustCompile(`/((?:[^/\\]|\\.)+)/\.test\(`),
}

// InlinePatterns scans the page's inline scripts for regex literals in
// script blocks that mention the field's identifier
func (p *Provider) InlinePatterns(ctx context.Context, identifier string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if identifier == "" {
		return nil, nil
	}

	content, err := p.page.Content()
	if err != nil {
		return nil, fmt.Errorf("reading page content: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing page content: %w", err)
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

// DOMHash fingerprints the current page content for change detection
func (p *Provider) DOMHash(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := p.page.Content()
	if err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return domain.HashDOM(content), nil
}

// Close tears down the browser session
func (p *Provider) Close() error {
	if p.browser != nil {
		p.browser.Close()
	}
	if p.pw != nil {
		return p.pw.Stop()
	}
	return nil
}

// locate finds a control by its normalized identifier or name. Normalized
// handles are lowercase suffixes of the framework-prefixed DOM ids, so exact
// match is tried first and a case-insensitive suffix match second.
func (p *Provider) locate(identifier, name string) (playwright.Locator, error) {
	selectors := make([]string, 0, 4)
	if identifier != "" {
		selectors = append(selectors,
			"#"+identifier,
			`[id$="`+identifier+`" i]`,
		)
	}
	if name != "" {
		selectors = append(selectors,
			`[name="`+name+`"]`,
			`[name$="`+name+`" i]`,
		)
	}
	for _, selector := range selectors {
		control := p.page.Locator(selector).First()
		if n, err := control.Count(); err == nil && n > 0 {
			return control, nil
		}
	}
	return nil, fmt.Errorf("control %q/%q not found on page", identifier, name)
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
