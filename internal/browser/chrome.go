package browser

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// responseBuffer bounds how many captured API bodies a page holds;
// overflow is dropped rather than blocking the event loop.
const responseBuffer = 64

// ChromeConfig configures the headless-Chrome factory.
type ChromeConfig struct {
	ExecPath    string
	Headless    bool
	UserAgent   string
	NavTimeout  time.Duration
	SettleDelay time.Duration
	// APIPattern selects which network responses get captured.
	APIPattern *regexp.Regexp
}

// ChromeFactory launches headless Chrome sessions.
type ChromeFactory struct {
	cfg ChromeConfig
}

// NewChromeFactory returns a factory with cfg, filling defaults.
func NewChromeFactory(cfg ChromeConfig) *ChromeFactory {
	if cfg.NavTimeout == 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = 3 * time.Second
	}
	return &ChromeFactory{cfg: cfg}
}

// New launches a fresh Chrome instance.
func (f *ChromeFactory) New(ctx context.Context) (Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-software-rasterizer", true),
	)
	if f.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.cfg.ExecPath))
	}
	if f.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser process eagerly so a broken Chrome install
	// fails here and not mid-crawl.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	return &chromeBrowser{
		cfg:           f.cfg,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

type chromeBrowser struct {
	cfg           ChromeConfig
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// Open navigates a new tab to url and waits for the body to render.
// API responses matching the configured pattern are buffered for the
// page's lifetime.
func (b *chromeBrowser) Open(ctx context.Context, url string) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, b.cfg.NavTimeout)

	p := &chromePage{
		ctx:    tabCtx,
		cancel: func() { timeoutCancel(); tabCancel() },
		bodies: make(chan []byte, responseBuffer),
	}

	if b.cfg.APIPattern != nil {
		p.captureResponses(b.cfg.APIPattern)
	}

	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.Sleep(b.cfg.SettleDelay),
	)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	return p, nil
}

func (b *chromeBrowser) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
	bodies chan []byte
}

// captureResponses re-expresses Chrome's callback-style network
// events as a bounded buffer the extraction stage drains after the
// page has loaded. Body retrieval must wait for loadingFinished, so
// matched requests are tracked until that event arrives.
func (p *chromePage) captureResponses(pattern *regexp.Regexp) {
	matched := make(map[network.RequestID]bool)

	chromedp.ListenTarget(p.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if pattern.MatchString(e.Response.URL) {
				matched[e.RequestID] = true
			}
		case *network.EventLoadingFinished:
			if !matched[e.RequestID] {
				return
			}
			delete(matched, e.RequestID)
			reqID := e.RequestID
			go func() {
				c := chromedp.FromContext(p.ctx)
				body, err := network.GetResponseBody(reqID).Do(cdp.WithExecutor(p.ctx, c.Target))
				if err != nil {
					log.Debug().Err(err).Msg("failed to read captured response body")
					return
				}
				select {
				case p.bodies <- body:
				default:
					// Buffer full; drop rather than stall the page.
				}
			}()
		}
	})
}

func (p *chromePage) Text(sel string) (string, error) {
	var out string
	err := chromedp.Run(p.ctx, chromedp.Text(sel, &out, chromedp.ByQuery, chromedp.AtLeast(0)))
	if err != nil {
		return "", fmt.Errorf("text %s: %w", sel, err)
	}
	return out, nil
}

func (p *chromePage) Attr(sel, name string) (string, bool, error) {
	var val string
	var ok bool
	err := chromedp.Run(p.ctx, chromedp.AttributeValue(sel, name, &val, &ok, chromedp.ByQuery, chromedp.AtLeast(0)))
	if err != nil {
		return "", false, fmt.Errorf("attr %s[%s]: %w", sel, name, err)
	}
	return val, ok, nil
}

func (p *chromePage) HTML() (string, error) {
	var out string
	err := chromedp.Run(p.ctx, chromedp.OuterHTML(`html`, &out, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("outer html: %w", err)
	}
	return out, nil
}

func (p *chromePage) WaitVisible(sel string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait visible %s: %w", sel, err)
	}
	return nil
}

func (p *chromePage) Click(sel string) error {
	if err := chromedp.Run(p.ctx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return nil
}

func (p *chromePage) URL() (string, error) {
	var out string
	if err := chromedp.Run(p.ctx, chromedp.Location(&out)); err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	return out, nil
}

// APIResponses drains everything captured so far.
func (p *chromePage) APIResponses() [][]byte {
	var out [][]byte
	for {
		select {
		case b := <-p.bodies:
			out = append(out, b)
		default:
			return out
		}
	}
}

func (p *chromePage) Close() {
	p.cancel()
}
