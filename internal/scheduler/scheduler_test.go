package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSpec(t *testing.T) {
	spec, err := cronSpec("02:00")
	require.NoError(t, err)
	assert.Equal(t, "0 2 * * *", spec)

	spec, err = cronSpec("23:45")
	require.NoError(t, err)
	assert.Equal(t, "45 23 * * *", spec)

	spec, err = cronSpec("00:05")
	require.NoError(t, err)
	assert.Equal(t, "5 0 * * *", spec)
}

func TestCronSpecRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "2am", "25:00", "12:60", "12", "12:00:00"} {
		_, err := cronSpec(in)
		assert.Error(t, err, in)
	}
}
