// File: cmd/crosscheck/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/crosscheck-cli/cmd"
)

// resetMocks restores the original function implementations.
func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(fmt.Errorf("%w: goBackToBo0: timeout", cmd.ErrRunFailed)))
	assert.Equal(t, 130, exitCode(fmt.Errorf("run aborted: %w", context.Canceled)))
	assert.Equal(t, 2, exitCode(errors.New("invalid configuration")))
}

func TestHandlePanic(t *testing.T) {
	t.Cleanup(resetMocks)

	var (
		written  string
		exitWith = -1
	)
	osWriteFile = func(name string, data []byte, perm fs.FileMode) error {
		assert.Equal(t, panicLogFile, name)
		written = string(data)
		return nil
	}
	osExit = func(code int) { exitWith = code }

	func() {
		defer handlePanic()
		panic("page object registry corrupted")
	}()

	assert.Equal(t, 3, exitWith)
	require.NotEmpty(t, written)
	assert.Contains(t, written, "panic: page object registry corrupted")
	assert.Contains(t, written, "goroutine", "the stack trace is recorded")
}

func TestHandlePanic_WriteFails(t *testing.T) {
	t.Cleanup(resetMocks)

	exitWith := -1
	osWriteFile = func(string, []byte, fs.FileMode) error { return errors.New("read-only filesystem") }
	osExit = func(code int) { exitWith = code }

	func() {
		defer handlePanic()
		panic("boom")
	}()
	assert.Equal(t, 3, exitWith)
}

func TestHandlePanic_NoPanic(t *testing.T) {
	t.Cleanup(resetMocks)

	osExit = func(int) { t.Fatal("exit must not be called without a panic") }
	func() {
		defer handlePanic()
	}()
}
