package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/buildcache/buildcache/internal/core/domain"
)

func TestRewritePathUnderBaseDir(t *testing.T) {
	got := domain.RewritePath("/home/dev/proj/src/main.c", "/home/dev/proj")
	assert.Equal(t, "src/main.c", got)
}

func TestRewritePathOutsideBaseDir(t *testing.T) {
	got := domain.RewritePath("/usr/include/stdio.h", "/home/dev/proj")
	assert.Equal(t, "/usr/include/stdio.h", got)
}

func TestRewritePathDisabledWhenBaseDirEmpty(t *testing.T) {
	got := domain.RewritePath("/home/dev/proj/src/main.c", "")
	assert.Equal(t, "/home/dev/proj/src/main.c", got)
}

func TestRewritePathLeavesRelativeArgsAlone(t *testing.T) {
	got := domain.RewritePath("-DFOO=1", "/home/dev/proj")
	assert.Equal(t, "-DFOO=1", got)
}

func TestParseAccuracyLevelRoundTrip(t *testing.T) {
	for _, s := range []string{"SLOPPY", "DEFAULT", "STRICT"} {
		assert.Equal(t, s, domain.ParseAccuracyLevel(s).String())
	}
}

func TestParseAccuracyLevelUnknownFallsBackToDefault(t *testing.T) {
	assert.Equal(t, domain.AccuracyDefault, domain.ParseAccuracyLevel("bogus"))
}
