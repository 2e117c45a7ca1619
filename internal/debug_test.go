package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelevantEnv(t *testing.T) {
	environ := []string{
		"PATH=/usr/bin",
		"BLUR_RADIUS=8",
		"GIN_MODE=release",
		"BLUR_API_KEY=hunter2",
		"BLUR_OVERLAY=white@128",
		"HOME=/root",
	}

	assert.Equal(t, []string{
		"BLUR_API_KEY: ********",
		"BLUR_OVERLAY: white@128",
		"BLUR_RADIUS: 8",
		"GIN_MODE: release",
	}, RelevantEnv(environ))
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Version())
}
