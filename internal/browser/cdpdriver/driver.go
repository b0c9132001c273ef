// internal/browser/cdpdriver/driver.go
package cdpdriver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/config"
)

const (
	shutdownTimeout = 10 * time.Second
	cleanupTimeout  = 5 * time.Second
)

// Driver runs a single Chrome process over CDP and carves isolated browser
// contexts out of it with Target.createBrowserContext.
type Driver struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	// controllerCtx targets the browser endpoint rather than a tab.
	controllerCtx context.Context

	// Serializes Target.createBrowserContext and Target.createTarget calls.
	contextCreationLock sync.Mutex
	limiter             *rate.Limiter

	initOnce sync.Once
	initErr  error
}

var _ browser.Driver = (*Driver)(nil)

// New creates a chromedp backed driver. The browser is started on first use.
func New(cfg config.BrowserConfig, logger *zap.Logger) *Driver {
	limit := rate.Inf
	if cfg.SlowMo > 0 {
		limit = rate.Every(cfg.SlowMo)
	}
	return &Driver{
		cfg:     cfg,
		logger:  logger.Named("cdpdriver"),
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (d *Driver) Name() string { return config.DriverChromedp }

// execOptions builds the allocator options from the browser configuration.
func (d *Driver) execOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("enable-automation", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if d.cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if d.cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.IgnoreCertErrors)
	}
	if w, h := d.cfg.Viewport["width"], d.cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	for _, arg := range d.cfg.Args {
		key, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

func (d *Driver) initialize(ctx context.Context) error {
	d.initOnce.Do(func() {
		d.logger.Info("Starting Chrome over CDP...")
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), d.execOptions()...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(d.logger.Sugar().Debugf))

		// The first Run launches the process; bound it by the caller's ctx.
		started := make(chan error, 1)
		go func() { started <- chromedp.Run(browserCtx) }()
		select {
		case err := <-started:
			if err != nil {
				browserCancel()
				allocCancel()
				d.initErr = fmt.Errorf("%w: failed to start chrome: %w", browser.ErrUnavailable, err)
				return
			}
		case <-ctx.Done():
			browserCancel()
			allocCancel()
			d.initErr = fmt.Errorf("%w: chrome start aborted: %w", browser.ErrUnavailable, ctx.Err())
			return
		}

		d.allocCancel = allocCancel
		d.browserCtx = browserCtx
		d.browserCancel = browserCancel
		d.controllerCtx = cdp.WithExecutor(browserCtx, chromedp.FromContext(browserCtx).Browser)
		d.logger.Info("Chrome started.")
	})
	return d.initErr
}

// NewContext implements browser.Driver.
func (d *Driver) NewContext(ctx context.Context) (browser.BrowserContext, error) {
	if err := d.initialize(ctx); err != nil {
		return nil, err
	}

	d.contextCreationLock.Lock()
	defer d.contextCreationLock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before creating browser context: %w", err)
	}
	id, err := target.CreateBrowserContext().Do(d.controllerCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	c := &Context{
		id:     string(id),
		bcID:   id,
		driver: d,
		logger: d.logger.With(zap.String("context_id", string(id))),
	}
	c.logger.Debug("Browser context created.")
	return c, nil
}

// newTarget opens a blank tab in the browser context and attaches chromedp to it.
func (d *Driver) newTarget(ctx context.Context, bcID cdp.BrowserContextID) (target.ID, error) {
	d.contextCreationLock.Lock()
	defer d.contextCreationLock.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return target.CreateTarget("about:blank").
		WithBrowserContextID(bcID).
		Do(d.controllerCtx)
}

// attach builds the tab context for an existing target.
func (d *Driver) attach(ctx context.Context, id target.ID) (context.Context, context.CancelFunc, error) {
	tabCtx, cancel := chromedp.NewContext(d.browserCtx, chromedp.WithTargetID(id))
	runCtx, stop := browser.CombineContext(tabCtx, ctx)
	defer stop()
	if err := chromedp.Run(runCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to attach to target %s: %w", id, err)
	}
	return tabCtx, cancel, nil
}

func (d *Driver) closeTarget(id target.ID) {
	if d.controllerCtx == nil || d.controllerCtx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(d.controllerCtx, cleanupTimeout)
	defer cancel()
	if err := target.CloseTarget(id).Do(ctx); err != nil {
		d.logger.Debug("Failed to close target.", zap.String("target_id", string(id)), zap.Error(err))
	}
}

func (d *Driver) disposeContext(id cdp.BrowserContextID) error {
	if d.controllerCtx == nil || d.controllerCtx.Err() != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(d.controllerCtx, cleanupTimeout)
	defer cancel()
	return target.DisposeBrowserContext(id).Do(ctx)
}

// Shutdown implements browser.Driver.
func (d *Driver) Shutdown(ctx context.Context) error {
	if d.browserCtx == nil {
		return nil
	}

	// chromedp.Cancel blocks until the process exits, so race it against a timeout.
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(d.browserCtx) }()

	timeout := time.NewTimer(shutdownTimeout)
	defer timeout.Stop()

	var shutdownErr error
	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			shutdownErr = fmt.Errorf("failed to close chrome: %w", err)
		}
	case <-timeout.C:
		d.logger.Warn("Chrome shutdown timed out, proceeding forcefully.", zap.Duration("timeout", shutdownTimeout))
	case <-ctx.Done():
		shutdownErr = ctx.Err()
	}
	d.browserCancel()
	d.allocCancel()
	d.logger.Info("Chrome shut down.")
	return shutdownErr
}
