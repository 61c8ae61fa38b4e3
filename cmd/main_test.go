package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardReturnsExitCode(t *testing.T) {
	assert.Equal(t, 0, guard(func() int { return 0 }))
	assert.Equal(t, 130, guard(func() int { return 130 }))
}

func TestGuardRecoversPanic(t *testing.T) {
	released := false

	code := guard(func() int {
		defer func() { released = true }()
		var m map[string]int
		m["boom"] = 1
		return 0
	})

	assert.Equal(t, 1, code)
	assert.True(t, released, "deferred cleanup runs before the panic is recovered")
}
