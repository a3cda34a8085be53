package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"tracker-sync/internal/config"
)

var (
	ErrPortalNotConfigured = errors.New("tracking portal is not configured")
	ErrLoginFailed         = errors.New("tracking portal login failed")
	ErrDevicePageNotFound  = errors.New("device listing page not found")
)

const (
	submitValue   = "Login"
	userAgent     = "Mozilla/5.0 (compatible; tracker-sync/1.0)"
	maxBodyBytes  = 8 << 20
	minHomeLength = 100
)

// Field names seen on deployed versions of the portal, most specific first.
var (
	usernameFields = []string{"txtUserName", "txtUsername", "UserName", "Username", "username", "txtUser", "txtLogin", "user", "email"}
	passwordFields = []string{"txtPassword", "txtPass", "Password", "password", "pass", "pwd"}
	submitFields   = []string{"btnLogin", "btnSignIn", "btnSubmit", "LoginButton", "cmdLogin", "submit", "login"}
)

const (
	defaultUsernameField = "txtUserName"
	defaultPasswordField = "txtPassword"
	defaultSubmitField   = "btnLogin"
)

var homePaths = []string{"/Default.aspx", "/Home.aspx", "/Main.aspx", "/Index.aspx", "/"}

var fallbackDevicePaths = []string{
	"/Devices.aspx",
	"/DeviceList.aspx",
	"/Vehicles.aspx",
	"/VehicleList.aspx",
	"/Units.aspx",
	"/Tracking.aspx",
}

var loginErrorMarkers = []string{
	"invalid", "incorrect", "error",
	"خطأ", "غير صحيح", "غير صالح",
	"اسم المستخدم", "كلمة المرور",
}

// PageParser is the HTML side of the login and discovery protocol.
type PageParser interface {
	HiddenFields(html string) url.Values
	FieldNames(html string) map[string]bool
	DeviceLinks(html string) []string
	LooksLikeDeviceListing(html string) bool
}

type DevicePage struct {
	Path string
	HTML string
}

type PortalClient struct {
	cfg        config.PortalConfig
	parser     PageParser
	httpClient *http.Client
	probeRate  rate.Limit
	log        zerolog.Logger
}

func NewPortalClient(cfg *config.Config, parser PageParser, log zerolog.Logger) *PortalClient {
	probeRate := rate.Inf
	if cfg.Portal.ProbeRPS > 0 {
		probeRate = rate.Limit(cfg.Portal.ProbeRPS)
	}
	return &PortalClient{
		cfg:    cfg.Portal,
		parser: parser,
		httpClient: &http.Client{
			Timeout:   cfg.Portal.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		probeRate: probeRate,
		log:       log.With().Str("component", "portal_client").Logger(),
	}
}

// FetchDevicePage logs in with a fresh session and returns the device listing,
// either from the configured path or by discovery.
func (c *PortalClient) FetchDevicePage(ctx context.Context) (*DevicePage, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	sess := NewSession()
	if err := c.Login(ctx, sess); err != nil {
		return nil, err
	}

	if c.cfg.DevicesPath != "" {
		return c.fetchFixed(ctx, sess)
	}
	return c.Discover(ctx, sess)
}

func (c *PortalClient) checkConfigured() error {
	var missing []string
	if c.cfg.BaseURL == "" {
		missing = append(missing, "PORTAL_BASE_URL")
	}
	if c.cfg.Username == "" {
		missing = append(missing, "PORTAL_USERNAME")
	}
	if c.cfg.Password == "" {
		missing = append(missing, "PORTAL_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrPortalNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// Login performs the postback login and leaves the authenticated cookies in sess.
func (c *PortalClient) Login(ctx context.Context, sess *Session) error {
	loginURL := c.resolve(c.cfg.LoginPath)

	page, err := c.send(ctx, c.httpClient, sess, http.MethodGet, loginURL, nil)
	if err != nil {
		return fmt.Errorf("%w: fetch login page: %v", ErrLoginFailed, err)
	}
	if page.status >= http.StatusBadRequest {
		return fmt.Errorf("%w: login page returned status %d", ErrLoginFailed, page.status)
	}

	form := url.Values{}
	for name, values := range c.parser.HiddenFields(page.body) {
		form[name] = append([]string(nil), values...)
	}

	names := c.parser.FieldNames(page.body)
	userField := pickField(names, usernameFields, defaultUsernameField)
	passField := pickField(names, passwordFields, defaultPasswordField)
	submitField := pickField(names, submitFields, defaultSubmitField)

	form.Set(userField, c.cfg.Username)
	form.Set(passField, c.cfg.Password)
	form.Set(submitField, submitValue)

	// The redirect status is the success signal, so it must not be followed.
	noRedirect := *c.httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := c.send(ctx, &noRedirect, sess, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: submit credentials: %v", ErrLoginFailed, err)
	}

	switch {
	case resp.status >= 300 && resp.status < 400:
		c.log.Info().
			Int("status", resp.status).
			Int("cookies", sess.Len()).
			Str("user_field", userField).
			Msg("portal login accepted")
		return nil
	case resp.status == http.StatusOK:
		if loginRejected(resp.body, userField, passField) {
			return fmt.Errorf("%w: portal rejected the credentials", ErrLoginFailed)
		}
		c.log.Info().Int("cookies", sess.Len()).Msg("portal login accepted without redirect")
		return nil
	default:
		return fmt.Errorf("%w: unexpected login status %d", ErrLoginFailed, resp.status)
	}
}

// Discover probes landing pages for navigation links and then tries each
// candidate listing path in order. Probes run one at a time.
func (c *PortalClient) Discover(ctx context.Context, sess *Session) (*DevicePage, error) {
	limiter := rate.NewLimiter(c.probeRate, 1)

	var home *response
	for _, path := range homePaths {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := c.send(ctx, c.httpClient, sess, http.MethodGet, c.resolve(path), nil)
		if err != nil {
			c.log.Warn().Err(err).Str("path", path).Msg("home page probe failed")
			continue
		}
		if utf8.RuneCountInString(page.body) > minHomeLength {
			home = page
			c.log.Debug().Str("path", path).Msg("home page found")
			break
		}
	}

	var candidates []string
	if home != nil {
		for _, link := range c.parser.DeviceLinks(home.body) {
			if target, ok := c.resolveLink(home.url, link); ok {
				candidates = append(candidates, target)
			}
		}
	}
	for _, path := range fallbackDevicePaths {
		candidates = append(candidates, c.resolve(path))
	}
	candidates = dedupe(candidates)

	for _, target := range candidates {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := c.send(ctx, c.httpClient, sess, http.MethodGet, target, nil)
		if err != nil {
			c.log.Warn().Err(err).Str("url", target).Msg("device page probe failed")
			continue
		}
		if page.status < 200 || page.status >= 300 || !c.parser.LooksLikeDeviceListing(page.body) {
			c.log.Debug().Int("status", page.status).Str("url", target).Msg("candidate is not a device listing")
			continue
		}
		c.log.Info().Str("path", page.url.Path).Msg("device listing discovered")
		return &DevicePage{Path: page.url.Path, HTML: page.body}, nil
	}

	return nil, fmt.Errorf("%w after %d candidates; set PORTAL_DEVICES_PATH to the device listing page",
		ErrDevicePageNotFound, len(candidates))
}

func (c *PortalClient) fetchFixed(ctx context.Context, sess *Session) (*DevicePage, error) {
	page, err := c.send(ctx, c.httpClient, sess, http.MethodGet, c.resolve(c.cfg.DevicesPath), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch device page %s: %w", c.cfg.DevicesPath, err)
	}
	if page.status < 200 || page.status >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrDevicePageNotFound, c.cfg.DevicesPath, page.status)
	}
	return &DevicePage{Path: c.cfg.DevicesPath, HTML: page.body}, nil
}

type response struct {
	status int
	body   string
	url    *url.URL
}

// send performs one request with the session cookie and merges any cookies
// the portal sets in return.
func (c *PortalClient) send(ctx context.Context, hc *http.Client, sess *Session, method, target string, body io.Reader) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	sess.apply(req)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	sess.Merge(resp.Header)

	finalURL := req.URL
	if resp.Request != nil {
		finalURL = resp.Request.URL
	}
	return &response{status: resp.StatusCode, body: string(data), url: finalURL}, nil
}

func (c *PortalClient) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// resolveLink turns a discovered href into an absolute URL on the portal host.
func (c *PortalClient) resolveLink(page *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	target := page.ResolveReference(ref)
	target.Fragment = ""
	if target.Host != page.Host {
		return "", false
	}
	return target.String(), true
}

// pickField returns the first candidate present on the form. ASP.NET prefixes
// control names with their naming container, so "ctl00$Main$txtUserName"
// satisfies "txtUserName".
func pickField(names map[string]bool, candidates []string, fallback string) string {
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	for _, candidate := range candidates {
		if names[candidate] {
			return candidate
		}
		for _, name := range sorted {
			if strings.HasSuffix(name, "$"+candidate) {
				return name
			}
		}
	}
	return fallback
}

func loginRejected(body, userField, passField string) bool {
	lower := strings.ToLower(body)
	for _, marker := range loginErrorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.Contains(body, `name="`+userField+`"`) || strings.Contains(body, `name="`+passField+`"`)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
