package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"security-hub/internal/logging"
)

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(logging.NewNop(), 3, 0, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	calls = 0
	err = Retry(logging.NewNop(), 3, 0, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}
