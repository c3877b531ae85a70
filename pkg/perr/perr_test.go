package perr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelsWrapAndUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("submit failed: %w", ErrCapacity)
	assert.True(t, errors.Is(wrapped, ErrCapacity))
	assert.False(t, errors.Is(wrapped, ErrDisposed))
}

func TestTimeoutAsAndIs(t *testing.T) {
	err := error(NewTimeout(5, 3))
	var te *Timeout
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 5, te.Requested)
	assert.Equal(t, 3, te.Completed)
	assert.True(t, errors.Is(err, &Timeout{}))
	assert.Contains(t, err.Error(), "5")
	assert.Contains(t, err.Error(), "3")
}

func TestInvalidArgumentAsAndIs(t *testing.T) {
	err := error(NewInvalidArgument("MaxWorkers", "must be >= MinWorkers"))
	var ia *InvalidArgument
	require.True(t, errors.As(err, &ia))
	assert.Equal(t, "MaxWorkers", ia.Field)
	assert.True(t, errors.Is(err, &InvalidArgument{}))
}
