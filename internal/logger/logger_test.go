package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitWithWriter(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	var buf bytes.Buffer
	InitWithWriter(&buf, false)

	Debug("hidden", "k", 1)
	Info("fetched feed", "source", "rss", "items", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=\"fetched feed\"")
	assert.Contains(t, out, "items=3")

	buf.Reset()
	InitWithWriter(&buf, true)
	Debug("visible")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
