// Package matchapro drives a headless browser through the portal's SSO login
// and captures the session material the submission client needs.
package matchapro

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/pquerna/otp/totp"

	"matchain-gc/models"
	"matchain-gc/utils"
)

const (
	ssoXPath    = `//a[contains(text(), 'Sign in with SSO BPS')]`
	submitXPath = `//input[@type='submit']`
)

// ErrConnectionAborted is returned when the operator gives up on an unreachable portal.
var ErrConnectionAborted = errors.New("matchapro: operator aborted after connection failures")

// Prompter is the interactive console; *utils.Console satisfies it.
type Prompter interface {
	Banner(lines ...string)
	Ask(prompt string) (string, error)
	Confirm(prompt string) (bool, error)
}

// Options configures an Authenticator.
type Options struct {
	DirURL    string
	Username  string
	Password  string
	OTPSecret string
	UserAgent string
	ChromeBin string
	Headless  bool

	Prompt Prompter
	Logger *utils.Logger
}

// Authenticator implements session.Authenticator with chromedp. Each call
// starts and tears down its own browser.
type Authenticator struct {
	opts   Options
	logger *utils.Logger
	nav    *utils.RetryConfig
}

// New creates an Authenticator.
func New(opts Options) *Authenticator {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Authenticator{
		opts:   opts,
		logger: logger,
		nav: &utils.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   5 * time.Second,
			Retryable:   isConnectionReset,
			Logger:      logger,
		},
	}
}

// ObtainInitialSession performs a full SSO login.
func (a *Authenticator) ObtainInitialSession(ctx context.Context) (*models.SessionMaterial, error) {
	a.logger.Info("[matchapro] --- STARTING NEW BROWSER LOGIN ---")
	var out *models.SessionMaterial
	err := a.withBrowser(ctx, func(bctx context.Context) error {
		if err := a.navigate(bctx); err != nil {
			return err
		}
		if err := a.login(bctx); err != nil {
			return err
		}
		m, err := a.capture(bctx)
		out = m
		return err
	})
	return out, err
}

// RefreshSession reloads the directory page with the existing cookies and
// falls back to a full login when the page carries no submission token.
func (a *Authenticator) RefreshSession(ctx context.Context, existing []models.Cookie) (*models.SessionMaterial, error) {
	a.logger.Info("[matchapro] --- REFRESHING TOKEN WITH BROWSER ---")
	var out *models.SessionMaterial
	err := a.withBrowser(ctx, func(bctx context.Context) error {
		if len(existing) > 0 {
			if err := a.navigate(bctx); err != nil {
				return err
			}
			if err := chromedp.Run(bctx, setCookies(existing, a.logger)); err != nil {
				a.logger.Error("[matchapro] Could not restore old cookies: %v", err)
			}
		}

		a.logger.Debug("[matchapro] Opening %s to check for a token...", a.opts.DirURL)
		if err := a.navigate(bctx); err != nil {
			return err
		}
		if err := utils.Sleep(bctx, 3*time.Second); err != nil {
			return err
		}

		html, err := a.html(bctx)
		if err != nil {
			return err
		}
		if !strings.Contains(html, "gcSubmitToken") {
			a.logger.Warn("[matchapro] gcSubmitToken not found, session probably expired. Logging in again...")
			if err := a.login(bctx); err != nil {
				return err
			}
		} else {
			a.logger.Debug("[matchapro] gcSubmitToken found without a new login")
		}

		m, err := a.capture(bctx)
		out = m
		return err
	})
	return out, err
}

func (a *Authenticator) withBrowser(ctx context.Context, fn func(context.Context) error) error {
	chromeBin := a.opts.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	a.logger.Debug("[matchapro] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", a.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(1280, 900),
		chromedp.UserAgent(a.opts.UserAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	bctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancel()

	return fn(bctx)
}

// navigate opens the directory page, retrying connection resets and then
// asking the operator whether to keep trying.
func (a *Authenticator) navigate(ctx context.Context) error {
	for {
		err := a.nav.Do(ctx, "open "+a.opts.DirURL, func() error {
			return chromedp.Run(ctx, chromedp.Navigate(a.opts.DirURL))
		})
		if err == nil {
			return nil
		}
		if !isConnectionReset(err) || a.opts.Prompt == nil || ctx.Err() != nil {
			return err
		}

		a.opts.Prompt.Banner(
			"COULD NOT REACH THE SERVER (ERR_CONNECTION_RESET)",
			"Check your internet connection or make sure the VPN is connected.",
		)
		retry, perr := a.opts.Prompt.Confirm("Type 'y' to try again, or 'n' to quit: ")
		if perr != nil || !retry {
			a.logger.Error("[matchapro] Operator chose to stop after connection problems")
			return ErrConnectionAborted
		}
		a.logger.Info("[matchapro] Operator chose to retry the connection...")
	}
}

// login walks the SSO flow unless the page already shows a logged-in state.
func (a *Authenticator) login(ctx context.Context) error {
	found, err := a.poll(ctx, 5*time.Second, func(html, _ string) bool {
		return ParsePage(html).HasSSOLink
	})
	if err != nil {
		return err
	}
	if !found {
		a.logger.Info("[matchapro] Already logged in")
		return nil
	}

	a.logger.Info("[matchapro] Clicking Sign in with SSO BPS...")
	step, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = chromedp.Run(step,
		chromedp.Click(ssoXPath, chromedp.BySearch),
		chromedp.WaitVisible(`#username`, chromedp.ByID),
	)
	cancel()
	if err != nil {
		return fmt.Errorf("open SSO form: %w", err)
	}

	a.logger.Info("[matchapro] Entering credentials...")
	if err := chromedp.Run(ctx,
		chromedp.SendKeys(`#username`, a.opts.Username, chromedp.ByID),
		chromedp.SendKeys(`#password`, a.opts.Password, chromedp.ByID),
		chromedp.Click(submitXPath, chromedp.BySearch),
	); err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}

	a.logger.Info("[matchapro] Waiting for login response (OTP or redirect)...")
	if ok, err := a.poll(ctx, 10*time.Second, func(html, url string) bool {
		return url == a.opts.DirURL || ParsePage(html).HasOTPField
	}); err != nil {
		return err
	} else if !ok {
		a.logger.Warn("[matchapro] Timed out waiting for the page after login, checking last state...")
	}

	html, err := a.html(ctx)
	if err != nil {
		return err
	}
	var loc string
	if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
		return fmt.Errorf("read location: %w", err)
	}
	if loc == a.opts.DirURL {
		a.logger.Info("[matchapro] Login succeeded without OTP")
		return nil
	}
	if !ParsePage(html).HasOTPField {
		a.logger.Warn("[matchapro] No OTP prompt and not on the directory page. Current URL: %s", loc)
		return nil
	}
	return a.submitOTP(ctx)
}

func (a *Authenticator) submitOTP(ctx context.Context) error {
	a.logger.Info("[matchapro] OTP page detected")

	code, err := a.otpCode()
	if err != nil {
		return err
	}

	a.logger.Info("[matchapro] Entering OTP code...")
	if err := chromedp.Run(ctx,
		chromedp.SendKeys(otpSelector, code, chromedp.ByQuery),
		chromedp.Submit(otpSelector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("submit OTP: %w", err)
	}

	ok, err := a.poll(ctx, 20*time.Second, func(_, url string) bool { return url == a.opts.DirURL })
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("matchapro: login did not reach %s after OTP", a.opts.DirURL)
	}
	a.logger.Info("[matchapro] Login succeeded after OTP")
	return nil
}

// otpCode derives the code from the TOTP secret, or asks the operator.
func (a *Authenticator) otpCode() (string, error) {
	if a.opts.OTPSecret != "" {
		code, err := totp.GenerateCode(a.opts.OTPSecret, time.Now())
		if err == nil {
			a.logger.Info("[matchapro] OTP generated from secret key")
			return code, nil
		}
		a.logger.Error("[matchapro] Could not generate OTP: %v", err)
	}
	if a.opts.Prompt == nil {
		return "", errors.New("matchapro: OTP required but no secret or console available")
	}
	a.opts.Prompt.Banner("ENTER THE OTP CODE MANUALLY!")
	code, err := a.opts.Prompt.Ask("OTP code: ")
	if err != nil {
		return "", fmt.Errorf("read OTP: %w", err)
	}
	return code, nil
}

// capture reads cookies and tokens from the current page.
func (a *Authenticator) capture(ctx context.Context) (*models.SessionMaterial, error) {
	a.logger.Debug("[matchapro] Reading cookies and CSRF token from browser...")
	if err := utils.Sleep(ctx, 2*time.Second); err != nil {
		return nil, err
	}

	var raw []*network.Cookie
	if err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}

	html, err := a.html(ctx)
	if err != nil {
		return nil, err
	}
	page := ParsePage(html)
	if page.CSRFToken == "" {
		a.logger.Warn("[matchapro] CSRF token not found on the page")
	}
	if page.SubmissionToken == "" {
		a.logger.Warn("[matchapro] gcSubmitToken not found on the page")
	} else {
		a.logger.Debug("[matchapro] Found gcSubmitToken: %s", models.ShortToken(page.SubmissionToken))
	}

	cookies := make([]models.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expiry:   c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return &models.SessionMaterial{
		Cookies:         cookies,
		CSRFToken:       page.CSRFToken,
		SubmissionToken: page.SubmissionToken,
	}, nil
}

func (a *Authenticator) html(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return html, nil
}

// poll evaluates cond against the page every 500ms until it holds or timeout passes.
func (a *Authenticator) poll(ctx context.Context, timeout time.Duration, cond func(html, url string) bool) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		var html, url string
		err := chromedp.Run(ctx,
			chromedp.Location(&url),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err == nil && cond(html, url) {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		if err := utils.Sleep(ctx, 500*time.Millisecond); err != nil {
			return false, err
		}
	}
}

func setCookies(cookies []models.Cookie, logger *utils.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			p := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.Expiry > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expiry), 0))
				p = p.WithExpires(&exp)
			}
			if err := p.Do(ctx); err != nil {
				logger.Debug("[matchapro] Skipping cookie %s: %v", c.Name, err)
			}
		}
		return nil
	})
}

func isConnectionReset(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "ERR_CONNECTION_RESET") || strings.Contains(msg, "ERR_CONNECTION_CLOSED")
}

// findChromeBinary returns the first Chrome/Chromium found on the system, or
// "" to let chromedp use its default lookup.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
