package debughook_test

import (
	"testing"
	"time"

	"github.com/stelzch/binary-tree-summation/debughook"
	"github.com/stretchr/testify/assert"
)

func TestShouldDebugPerRankFlagString(t *testing.T) {
	spec := "0100"
	assert.False(t, debughook.ShouldDebug(spec, 0, 4))
	assert.True(t, debughook.ShouldDebug(spec, 1, 4))
	assert.False(t, debughook.ShouldDebug(spec, 2, 4))
	assert.False(t, debughook.ShouldDebug(spec, 3, 4))
}

func TestShouldDebugBareIntegerNamesOneRank(t *testing.T) {
	assert.True(t, debughook.ShouldDebug("2", 2, 4))
	assert.False(t, debughook.ShouldDebug("2", 0, 4))
}

func TestShouldDebugUnparseableSpecDebugsNoRank(t *testing.T) {
	assert.False(t, debughook.ShouldDebug("not-a-number", 0, 3))
	assert.False(t, debughook.ShouldDebug("not-a-number", 1, 3))
}

func TestAttachReturnsImmediatelyWhenNotDebugging(t *testing.T) {
	done := make(chan struct{})
	go func() {
		debughook.Attach(false, 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Attach(false, ...) should return immediately")
	}
}
