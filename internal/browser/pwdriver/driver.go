// internal/browser/pwdriver/driver.go
package pwdriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/config"
)

const playwrightInstallTimeout = 5 * time.Minute

// Driver handles the Playwright driver process and the browser it launches.
type Driver struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	pw      *playwright.Playwright
	browser playwright.Browser

	// Initialization state management
	initOnce sync.Once
	initErr  error
}

var _ browser.Driver = (*Driver)(nil)

// New creates a Playwright backed driver. Launching is deferred until the first context is requested.
func New(cfg config.BrowserConfig, logger *zap.Logger) *Driver {
	d := &Driver{
		cfg:    cfg,
		logger: logger.Named("pwdriver"),
	}
	d.logger.Debug("Playwright driver created (launch deferred).")
	return d
}

// Name implements browser.Driver.
func (d *Driver) Name() string { return config.DriverPlaywright }

// initialize starts the Playwright driver and launches Chromium.
func (d *Driver) initialize(ctx context.Context) error {
	d.initOnce.Do(func() {
		d.logger.Info("Starting Playwright and launching browser...")

		if d.cfg.Install {
			if err := d.ensureInstallation(ctx); err != nil {
				d.initErr = err
				return
			}
		}

		pw, err := playwright.Run()
		if err != nil {
			d.initErr = fmt.Errorf("%w: failed to start playwright driver: %w", browser.ErrUnavailable, err)
			return
		}
		d.pw = pw

		b, err := pw.Chromium.Launch(d.prepareLaunchOptions())
		if err != nil {
			_ = pw.Stop()
			d.initErr = fmt.Errorf("%w: failed to launch browser instance: %w", browser.ErrUnavailable, err)
			return
		}
		d.browser = b

		d.logger.Info("Browser launched.", zap.String("browser_version", b.Version()))
	})
	return d.initErr
}

func (d *Driver) ensureInstallation(ctx context.Context) error {
	d.logger.Info("Verifying Playwright browser installation...")
	installCtx, cancel := context.WithTimeout(ctx, playwrightInstallTimeout)
	defer cancel()

	// Install blocks without a context, so it runs aside and is raced against the deadline.
	installErrChan := make(chan error, 1)
	go func() {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			installErrChan <- fmt.Errorf("failed to install playwright browsers: %w", err)
			return
		}
		installErrChan <- nil
	}()

	select {
	case err := <-installErrChan:
		return err
	case <-installCtx.Done():
		return fmt.Errorf("timeout waiting for Playwright installation: %w", installCtx.Err())
	}
}

func (d *Driver) prepareLaunchOptions() playwright.BrowserTypeLaunchOptions {
	defaultArgs := []string{
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
	}
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(d.cfg.Headless),
		Args:     append(defaultArgs, d.cfg.Args...),
		Timeout:  playwright.Float(60000),
	}
	if d.cfg.SlowMo > 0 {
		opts.SlowMo = playwright.Float(float64(d.cfg.SlowMo.Milliseconds()))
	}
	return opts
}

func (d *Driver) contextOptions() playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(d.cfg.IgnoreTLSErrors),
	}
	if w, h := d.cfg.Viewport["width"], d.cfg.Viewport["height"]; w > 0 && h > 0 {
		opts.Viewport = &playwright.Size{Width: w, Height: h}
	}
	return opts
}

// NewContext implements browser.Driver.
func (d *Driver) NewContext(ctx context.Context) (browser.BrowserContext, error) {
	if err := d.initialize(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bctx, err := d.browser.NewContext(d.contextOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	bctx.SetDefaultTimeout(float64(d.cfg.ActionTimeout.Milliseconds()))

	c := &Context{
		id:            uuid.New().String(),
		bctx:          bctx,
		actionTimeout: d.cfg.ActionTimeout,
	}
	c.logger = d.logger.With(zap.String("context_id", c.id))
	c.logger.Debug("Browser context created.")
	return c, nil
}

// Shutdown implements browser.Driver.
func (d *Driver) Shutdown(ctx context.Context) error {
	if d.pw == nil {
		d.logger.Debug("Driver never launched, nothing to shut down.")
		return nil
	}

	var shutdownErr error
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			d.logger.Error("Failed to close browser instance.", zap.Error(err))
			shutdownErr = fmt.Errorf("failed to close browser: %w", err)
		}
	}
	if err := d.pw.Stop(); err != nil {
		d.logger.Error("Failed to stop Playwright driver.", zap.Error(err))
		if shutdownErr == nil {
			shutdownErr = fmt.Errorf("failed to stop playwright driver: %w", err)
		}
	}
	d.logger.Info("Playwright driver shut down.")
	return shutdownErr
}
