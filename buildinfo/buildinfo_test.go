package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	p := Get()

	assert.NotEmpty(t, p.Version)
	assert.NotEmpty(t, p.BuildTime)
	assert.NotEmpty(t, p.GitCommit)
	assert.NotEmpty(t, p.GoVersion)
}

func TestGet_LdflagsWin(t *testing.T) {
	oldVersion, oldCommit := version, gitCommit
	t.Cleanup(func() {
		version, gitCommit = oldVersion, oldCommit
	})

	version = "v1.2.3"
	gitCommit = "abc123"

	p := Get()
	assert.Equal(t, "v1.2.3", p.Version)
	assert.Equal(t, "abc123", p.GitCommit)
}
