package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 130, exitCode(fmt.Errorf("build b1: %w", context.Canceled)))
}

func mockExit(t *testing.T) *int {
	t.Helper()
	code := -1
	osExit = func(c int) { code = c }
	t.Cleanup(func() {
		osExit = os.Exit
		osWriteFile = os.WriteFile
	})
	return &code
}

func TestHandlePanic(t *testing.T) {
	t.Run("writes panic log", func(t *testing.T) {
		code := mockExit(t)
		var written string
		osWriteFile = func(name string, data []byte, _ os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = string(data)
			return nil
		}

		func() {
			defer handlePanic()
			panic("summary invariant violated")
		}()

		assert.Equal(t, 2, *code)
		assert.Contains(t, written, "panic: summary invariant violated")
		assert.Contains(t, written, "goroutine")
	})

	t.Run("log write failure", func(t *testing.T) {
		code := mockExit(t)
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }

		func() {
			defer handlePanic()
			panic("boom")
		}()
		assert.Equal(t, 2, *code)
	})

	t.Run("no panic", func(t *testing.T) {
		code := mockExit(t)
		func() {
			defer handlePanic()
		}()
		assert.Equal(t, -1, *code)
	})
}
