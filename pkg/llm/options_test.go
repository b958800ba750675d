package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildOptionsDefaults(t *testing.T) {
	opts := BuildOptions()
	assert.Equal(t, 0.7, opts.Temperature)
	assert.Equal(t, 5, opts.MaxSteps)
	assert.Empty(t, opts.Model)
	assert.False(t, opts.SmoothWords)
}

func TestBuildOptionsOverrides(t *testing.T) {
	opts := BuildOptions(
		WithTemperature(0.2),
		WithMaxTokens(256),
		WithModel("llama3"),
		WithMaxSteps(1),
		WithWordSmoothing(),
	)
	assert.Equal(t, 0.2, opts.Temperature)
	assert.Equal(t, 256, opts.MaxTokens)
	assert.Equal(t, "llama3", opts.Model)
	assert.Equal(t, 1, opts.MaxSteps)
	assert.True(t, opts.SmoothWords)
}
