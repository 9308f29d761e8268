//go:build !(darwin || dragonfly || freebsd || netbsd || openbsd)

package keventdir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Unsupported(t *testing.T) {
	w, err := New(nil, Options{})
	assert.Nil(t, w)
	assert.ErrorIs(t, err, ErrUnsupported)
}
