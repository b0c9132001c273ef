package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/crosscheck-cli/internal/browser"
	"github.com/xkilldash9x/crosscheck-cli/internal/config"
)

func testBrowserConfig() config.BrowserConfig {
	return config.NewDefaultConfig().Browser
}

func TestPrepareLaunchOptions(t *testing.T) {
	cfg := testBrowserConfig()
	cfg.Headless = false
	cfg.SlowMo = 250 * time.Millisecond
	cfg.Args = []string{"--lang=fr-FR"}

	d := New(cfg, zaptest.NewLogger(t))
	opts := d.prepareLaunchOptions()

	require.NotNil(t, opts.Headless)
	assert.False(t, *opts.Headless)
	require.NotNil(t, opts.SlowMo)
	assert.Equal(t, 250.0, *opts.SlowMo)
	assert.Contains(t, opts.Args, "--no-sandbox")
	assert.Contains(t, opts.Args, "--lang=fr-FR")
}

func TestPrepareLaunchOptions_NoSlowMo(t *testing.T) {
	d := New(testBrowserConfig(), zaptest.NewLogger(t))
	assert.Nil(t, d.prepareLaunchOptions().SlowMo)
}

func TestContextOptions(t *testing.T) {
	cfg := testBrowserConfig()
	cfg.IgnoreTLSErrors = true
	d := New(cfg, zaptest.NewLogger(t))

	opts := d.contextOptions()
	require.NotNil(t, opts.Viewport)
	assert.Equal(t, 1680, opts.Viewport.Width)
	assert.Equal(t, 900, opts.Viewport.Height)
	assert.True(t, *opts.IgnoreHttpsErrors)

	cfg.Viewport = nil
	assert.Nil(t, New(cfg, zaptest.NewLogger(t)).contextOptions().Viewport)
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))

	timeout := translate(fmt.Errorf("locator.click: %w", playwright.ErrTimeout))
	assert.ErrorIs(t, timeout, browser.ErrTimeout)

	closed := translate(fmt.Errorf("page.goto: %w", playwright.ErrTargetClosed))
	assert.ErrorIs(t, closed, browser.ErrClosed)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

func TestShutdown_NeverLaunched(t *testing.T) {
	d := New(testBrowserConfig(), zaptest.NewLogger(t))
	assert.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, config.DriverPlaywright, d.Name())
}
