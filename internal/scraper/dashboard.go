// Package scraper drives an authenticated browser session against the
// Zyda dashboard and turns the rendered order cards into structured
// orders.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/clarastars/zyda-order-sync/internal/browser"
	"github.com/clarastars/zyda-order-sync/internal/config"
	"github.com/clarastars/zyda-order-sync/internal/models"
	"github.com/clarastars/zyda-order-sync/internal/parser"
	"github.com/clarastars/zyda-order-sync/internal/ratelimit"
)

// Selectors are matched best-effort against an unversioned third-party
// UI; they are expected to drift and fail softly where possible.
const (
	loginButtonSelector     = "[data-testid='login-button'], button.login-button"
	emailInputSelector      = "input[type='email'], input[name='email'], input[data-testid='email-input']"
	passwordInputSelector   = "input[type='password'], input[name='password'], input[data-testid='password-input']"
	ordersContainerSelector = ".mb-4.rounded-md.flex.flex-col.gap-3"
	phoneSelector           = "xpath=//div[@role='presentation']//p[contains(@class,'body16')]"
	addressSelector         = "xpath=//span[contains(@style,'direction: ltr')]//p[contains(@class,'body16')]"
	totalCandidateSelector  = "xpath=//p[contains(@class,'heading16_') and contains(text(),'SAR')]"
	orderItemSelector       = ".flex.gap-2"
)

const signInPath = "/sign-in"

type DashboardScraper struct {
	browser *browser.Browser
	parser  *parser.OrderParser
	limiter ratelimit.RateLimiter
	cfg     config.DashboardConfig
	logger  *slog.Logger
}

func NewDashboardScraper(b *browser.Browser, cfg config.DashboardConfig) *DashboardScraper {
	return &DashboardScraper{
		browser: b,
		parser:  parser.NewOrderParser(),
		limiter: ratelimit.NewSimpleRateLimiter(200*time.Millisecond, 600*time.Millisecond),
		cfg:     cfg,
		logger:  slog.Default().With("component", "dashboard_scraper"),
	}
}

// ScrapeOrders runs one full scrape pass: ensure an authenticated
// session, then walk the order cards one by one. The card list is
// re-fetched before every card because opening a detail view
// invalidates prior element handles.
func (s *DashboardScraper) ScrapeOrders(ctx context.Context) ([]models.Order, error) {
	page, err := s.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := s.ensureSession(page); err != nil {
		return nil, err
	}

	return s.scrapeCards(ctx, page)
}

// ensureSession restores a saved session if one is still valid, and
// performs a full login otherwise.
func (s *DashboardScraper) ensureSession(page playwright.Page) error {
	restored, err := s.browser.RestoreCookies(s.cfg.CookieFile)
	if err != nil {
		s.logger.Warn("failed to restore session cookies", "error", err)
	}
	if restored && s.sessionValid(page) {
		s.logger.Info("reusing saved session, no login required")
		return nil
	}

	if err := s.login(page); err != nil {
		return err
	}

	if err := s.browser.SaveCookies(s.cfg.CookieFile); err != nil {
		s.logger.Warn("failed to save session cookies", "error", err)
	}
	return nil
}

// sessionValid checks whether the restored cookies still authenticate
// by loading the orders page and looking for the card container.
func (s *DashboardScraper) sessionValid(page playwright.Page) bool {
	if err := s.browser.NavigateWithRetry(page, s.cfg.OrdersURL, 1); err != nil {
		s.logger.Warn("session check navigation failed", "error", err)
		return false
	}
	if strings.Contains(page.URL(), signInPath) {
		s.logger.Info("saved session expired, redirected to sign-in")
		return false
	}
	if err := s.waitAttached(page, ordersContainerSelector, s.cfg.ElementTimeout); err != nil {
		s.logger.Info("saved session invalid, orders container not found")
		return false
	}
	return true
}

func (s *DashboardScraper) login(page playwright.Page) error {
	s.logger.Info("performing login", "url", s.cfg.SignInURL)

	if err := s.browser.NavigateWithRetry(page, s.cfg.SignInURL, 3); err != nil {
		return fmt.Errorf("failed to open sign-in page: %w", err)
	}

	timeout := playwright.Float(float64(s.cfg.ElementTimeout.Milliseconds()))

	email := page.Locator(emailInputSelector).First()
	if err := email.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: timeout,
	}); err != nil {
		return fmt.Errorf("login form did not appear: %w", err)
	}
	if err := email.Fill(s.cfg.Email); err != nil {
		return fmt.Errorf("failed to fill email: %w", err)
	}

	password := page.Locator(passwordInputSelector).First()
	if err := password.Fill(s.cfg.Password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}

	button := page.Locator(loginButtonSelector).First()
	if err := button.ScrollIntoViewIfNeeded(); err != nil {
		s.logger.Warn("failed to scroll to login button", "error", err)
	}
	if err := button.Click(playwright.LocatorClickOptions{Timeout: timeout}); err != nil {
		// Overlays sometimes intercept the click; force it through.
		if err := button.Click(playwright.LocatorClickOptions{
			Force:   playwright.Bool(true),
			Timeout: timeout,
		}); err != nil {
			return fmt.Errorf("failed to click login button: %w", err)
		}
	}

	if err := s.waitURL(page, func(url string) bool {
		return !strings.Contains(url, signInPath)
	}, s.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("login did not complete, still on %s: %w", page.URL(), err)
	}

	if !strings.Contains(page.URL(), "/orders/current") {
		if err := s.browser.NavigateWithRetry(page, s.cfg.OrdersURL, 3); err != nil {
			return fmt.Errorf("failed to open orders page: %w", err)
		}
	}

	if err := s.waitAttached(page, ordersContainerSelector, s.cfg.ElementTimeout); err != nil {
		return fmt.Errorf("orders container never appeared after login: %w", err)
	}

	s.logger.Info("login successful, orders page ready")
	return nil
}

func (s *DashboardScraper) scrapeCards(ctx context.Context, page playwright.Page) ([]models.Order, error) {
	if err := s.browser.NavigateWithRetry(page, s.cfg.OrdersURL, 3); err != nil {
		return nil, fmt.Errorf("failed to open orders page: %w", err)
	}
	if err := s.waitAttached(page, ordersContainerSelector, s.cfg.ElementTimeout); err != nil {
		return nil, fmt.Errorf("could not find any order cards: %w", err)
	}

	cards, err := page.Locator(ordersContainerSelector).All()
	if err != nil {
		return nil, fmt.Errorf("failed to list order cards: %w", err)
	}
	total := len(cards)
	s.logger.Info("found order cards", "count", total)

	var orders []models.Order

	for idx := 0; idx < total; idx++ {
		if err := ctx.Err(); err != nil {
			return orders, err
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return orders, err
		}

		order, ok := s.scrapeCard(page, idx)
		if ok {
			orders = append(orders, order)
		}
	}

	return orders, nil
}

// scrapeCard opens the card at idx and extracts one order. Returns
// false when the card vanished or carries no phone; both are expected
// conditions, not errors.
func (s *DashboardScraper) scrapeCard(page playwright.Page, idx int) (models.Order, bool) {
	// Re-fetch the list; the previous detail view invalidated handles.
	if idx > 0 {
		if err := s.browser.NavigateWithRetry(page, s.cfg.OrdersURL, 2); err != nil {
			s.logger.Warn("failed to return to orders list", "card", idx+1, "error", err)
			return models.Order{}, false
		}
		if err := s.waitAttached(page, ordersContainerSelector, s.cfg.DetailTimeout); err != nil {
			s.logger.Warn("orders list did not reload", "card", idx+1, "error", err)
			return models.Order{}, false
		}
	}

	cards, err := page.Locator(ordersContainerSelector).All()
	if err != nil || idx >= len(cards) {
		s.logger.Warn("order card no longer present", "card", idx+1, "found", len(cards))
		return models.Order{}, false
	}
	card := cards[idx]

	if err := card.ScrollIntoViewIfNeeded(); err != nil {
		s.logger.Warn("failed to scroll to card", "card", idx+1, "error", err)
	}

	// Label and order key come from the card itself, before opening it.
	html, err := card.InnerHTML()
	if err != nil {
		s.logger.Warn("failed to read card markup", "card", idx+1, "error", err)
		html = ""
	}
	label := s.parser.CardLabel(html)
	key := s.parser.OrderKey(html)
	if key == "" {
		key = fallbackOrderKey(idx)
		s.logger.Warn("order card carries no key, generated fallback", "card", idx+1, "key", key)
	}

	if err := s.openCard(page, card); err != nil {
		s.logger.Warn("failed to open order card", "card", idx+1, "error", err)
		return models.Order{}, false
	}

	order, ok := s.extractOrder(page)
	if !ok {
		s.logger.Warn("skipping order without phone number", "card", idx+1, "key", key)
		return models.Order{}, false
	}

	order.Name = label
	order.OrderKey = key
	order.ScrapedAt = time.Now()

	s.logger.Info("scraped order",
		"card", idx+1,
		"key", order.OrderKey,
		"phone", order.Phone,
		"items", order.UniqueItemCount(),
		"total", order.TotalAmount)
	return order, true
}

// openCard clicks a card and waits for any of the detail view's anchor
// elements to appear.
func (s *DashboardScraper) openCard(page playwright.Page, card playwright.Locator) error {
	if err := card.Click(); err != nil {
		if err := card.Click(playwright.LocatorClickOptions{Force: playwright.Bool(true)}); err != nil {
			return fmt.Errorf("failed to click card: %w", err)
		}
	}

	deadline := time.Now().Add(s.cfg.DetailTimeout)
	for time.Now().Before(deadline) {
		for _, selector := range []string{phoneSelector, addressSelector, totalCandidateSelector} {
			count, err := page.Locator(selector).Count()
			if err == nil && count > 0 {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("order detail view did not appear within %s", s.cfg.DetailTimeout)
}

// extractOrder reads the opened detail view. A missing phone drops the
// order; a missing address or total does not.
func (s *DashboardScraper) extractOrder(page playwright.Page) (models.Order, bool) {
	phone := s.safeText(page, phoneSelector, s.cfg.DetailTimeout)
	if phone == "" {
		return models.Order{}, false
	}

	address := s.safeText(page, addressSelector, s.cfg.DetailTimeout)

	totals := s.innerTexts(page, totalCandidateSelector)
	blocks := s.innerTexts(page, orderItemSelector)

	return models.Order{
		Phone:       phone,
		Address:     address,
		TotalAmount: s.parser.ParseTotal(totals),
		Items:       s.parser.ParseItems(blocks),
	}, true
}

// safeText waits briefly for an element and returns its trimmed text,
// or "" when it never appears. Absence is a value here, not an error.
func (s *DashboardScraper) safeText(page playwright.Page, selector string, timeout time.Duration) string {
	loc := page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		return ""
	}
	text, err := loc.InnerText()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (s *DashboardScraper) innerTexts(page playwright.Page, selector string) []string {
	locators, err := page.Locator(selector).All()
	if err != nil {
		return nil
	}
	var texts []string
	for _, loc := range locators {
		text, err := loc.InnerText()
		if err != nil {
			continue
		}
		texts = append(texts, text)
	}
	return texts
}

func (s *DashboardScraper) waitAttached(page playwright.Page, selector string, timeout time.Duration) error {
	return page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (s *DashboardScraper) waitURL(page playwright.Page, ok func(string) bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ok(page.URL()) {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("condition not met within %s", timeout)
}

func fallbackOrderKey(idx int) string {
	return fmt.Sprintf("zyda_%s_%d", time.Now().Format("20060102150405"), idx)
}
