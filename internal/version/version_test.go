package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuild(t *testing.T, v, c, d string) {
	t.Helper()
	oldVersion, oldCommit, oldDate := version, commit, date
	version, commit, date = v, c, d
	t.Cleanup(func() { version, commit, date = oldVersion, oldCommit, oldDate })
}

func TestCurrent_Defaults(t *testing.T) {
	b := Current()
	assert.Equal(t, "dev", b.Version)
	assert.Equal(t, "unknown", b.Commit)
	assert.Equal(t, "unknown", b.Date)
	assert.Equal(t, runtime.Version(), b.GoVersion)
}

func TestCurrent_LinkerValues(t *testing.T) {
	withBuild(t, "v1.2.0", "abc123", "2026-01-23")

	b := Current()
	assert.Equal(t, GetVersion(), b.Version)
	assert.Equal(t, "abc123", b.Commit)
	assert.Equal(t, "2026-01-23", b.Date)
	assert.Equal(t, "version=v1.2.0 commit=abc123 date=2026-01-23 go="+runtime.Version(), b.String())
}
