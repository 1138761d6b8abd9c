package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitFiltersBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelWarn, &buf)
	t.Cleanup(func() { Init(LevelInfo, nil) })

	Debug("test", "should not appear")
	Info("test", "should not appear either")
	Warn("test", "warn appears")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "warn appears")
}

func TestErrorIncludesErrorAttribute(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, &buf)
	t.Cleanup(func() { Init(LevelInfo, nil) })

	Error("dispatcher", assertError{"boom"}, "dispatch failed")

	out := buf.String()
	require.True(t, strings.Contains(out, "dispatch failed"))
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "subsystem=dispatcher")
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}
