package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/maplist/internal/interfaces"
	"github.com/ternarybob/maplist/internal/models"
)

// refAttribute tags snapshot candidates so a later click can address them
const refAttribute = "data-maplist-ref"

var keyCodes = map[string]string{
	models.KeyEscape:    kb.Escape,
	models.KeyEnter:     kb.Enter,
	models.KeyHome:      kb.Home,
	models.KeyArrowDown: kb.ArrowDown,
}

// Surface is a chromedp-backed AutomationSurface owning one browser
type Surface struct {
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
	timeout         time.Duration
	logger          arbor.ILogger
	closeOnce       sync.Once
}

var _ interfaces.AutomationSurface = (*Surface)(nil)

// run executes actions against the browser, bounded by timeout and by ctx
func (s *Surface) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 || timeout > s.timeout {
		timeout = s.timeout
	}

	opCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// timedOut reports whether err is an expired bounded wait rather than a page failure
func timedOut(ctx context.Context, err error) bool {
	return ctx.Err() == nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))
}

func queryOption(sel models.Selector) chromedp.QueryOption {
	if sel.XPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (s *Surface) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, s.timeout, chromedp.Navigate(url))
}

func (s *Surface) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, s.timeout, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (s *Surface) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *Surface) SnapshotElements(ctx context.Context, container, candidates string) ([]models.ElementSnapshot, error) {
	var snapshots []models.ElementSnapshot
	if err := s.run(ctx, s.timeout, chromedp.Evaluate(snapshotScript(container, candidates), &snapshots)); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (s *Surface) ClickElement(ctx context.Context, ref int) error {
	selector := fmt.Sprintf(`[%s="%d"]`, refAttribute, ref)
	return s.run(ctx, s.timeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *Surface) Click(ctx context.Context, selector string) error {
	return s.run(ctx, s.timeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *Surface) ClickIfVisible(ctx context.Context, sel models.Selector, timeout time.Duration) (bool, error) {
	by := queryOption(sel)
	if err := s.run(ctx, timeout, chromedp.WaitVisible(sel.Query, by)); err != nil {
		if timedOut(ctx, err) {
			return false, nil
		}
		return false, err
	}
	if err := s.run(ctx, timeout, chromedp.Click(sel.Query, by, chromedp.NodeVisible)); err != nil {
		if timedOut(ctx, err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Surface) PressKey(ctx context.Context, key string) error {
	code, ok := keyCodes[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	return s.run(ctx, s.timeout, chromedp.KeyEvent(code))
}

func (s *Surface) ScrollBy(ctx context.Context, container, feed string, delta int) error {
	return s.scroll(ctx, container, feed, "target.scrollTop += "+strconv.Itoa(delta))
}

func (s *Surface) ScrollToBottom(ctx context.Context, container, feed string) error {
	return s.scroll(ctx, container, feed, "target.scrollTop = target.scrollHeight")
}

func (s *Surface) scroll(ctx context.Context, container, feed, statement string) error {
	script := fmt.Sprintf(`(() => {
		const container = document.querySelector(%s);
		if (!container) return false;
		const target = container.querySelector(%s) || container;
		%s;
		return true;
	})()`, strconv.Quote(container), strconv.Quote(feed), statement)

	var scrolled bool
	if err := s.run(ctx, s.timeout, chromedp.Evaluate(script, &scrolled)); err != nil {
		return err
	}
	if !scrolled {
		return fmt.Errorf("scroll container %s not found", container)
	}
	return nil
}

func (s *Surface) Texts(ctx context.Context, selector string) ([]string, error) {
	var html string
	if err := s.run(ctx, s.timeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	return textsFromHTML(html, selector)
}

func (s *Surface) AttributeIfVisible(ctx context.Context, selector, name string, timeout time.Duration) (string, bool, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery),
	)
	if err != nil {
		if timedOut(ctx, err) {
			return "", false, nil
		}
		return "", false, err
	}
	if len(nodes) == 0 {
		return "", false, nil
	}
	value, ok := nodeAttr(nodes[0], name)
	return value, ok, nil
}

func (s *Surface) TextIfVisible(ctx context.Context, visibleSelector, textSelector string, timeout time.Duration) (string, bool, error) {
	if err := s.run(ctx, timeout, chromedp.WaitVisible(visibleSelector, chromedp.ByQuery)); err != nil {
		if timedOut(ctx, err) {
			return "", false, nil
		}
		return "", false, err
	}

	var result struct {
		Found bool   `json:"found"`
		Text  string `json:"text"`
	}
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return { found: !!el, text: el ? (el.textContent || '') : '' };
	})()`, strconv.Quote(textSelector))
	if err := s.run(ctx, timeout, chromedp.Evaluate(script, &result)); err != nil {
		if timedOut(ctx, err) {
			return "", false, nil
		}
		return "", false, err
	}
	return result.Text, result.Found, nil
}

// Close shuts the browser down and releases its allocator
func (s *Surface) Close() error {
	s.closeOnce.Do(func() {
		s.browserCancel()
		s.allocatorCancel()
		if s.logger != nil {
			s.logger.Debug().Msg("Browser closed")
		}
	})
	return nil
}

// snapshotScript tags every candidate under container with its index and
// reports its text, rendered size and containment
func snapshotScript(container, candidates string) string {
	return fmt.Sprintf(`(() => {
		document.querySelectorAll('[%[1]s]').forEach(el => el.removeAttribute('%[1]s'));
		const container = document.querySelector(%[2]s);
		if (!container) return [];
		return Array.from(container.querySelectorAll(%[3]s)).map((el, i) => {
			el.setAttribute('%[1]s', String(i));
			const box = el.getBoundingClientRect();
			return {
				ref: i,
				text: el.textContent || '',
				width: box.width,
				height: box.height,
				inContainer: container.contains(el),
			};
		});
	})()`, refAttribute, strconv.Quote(container), strconv.Quote(candidates))
}

// textsFromHTML returns the trimmed text of every element matching selector
func textsFromHTML(html, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}
	var texts []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			texts = append(texts, text)
		}
	})
	return texts, nil
}

// nodeAttr reads an attribute from the flat name/value list of a cdp.Node
func nodeAttr(n *cdp.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for i := 0; i+1 < len(n.Attributes); i += 2 {
		if strings.EqualFold(n.Attributes[i], name) {
			return n.Attributes[i+1], true
		}
	}
	return "", false
}
