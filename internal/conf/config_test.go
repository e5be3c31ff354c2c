package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muzzleid/muzzle-go/internal/errors"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	settings, err := Defaults()
	require.NoError(t, err)

	assert.InDelta(t, 0.5, settings.Classifier.DisplayThreshold, 1e-9)
	assert.Equal(t, 1024, settings.Media.MaxDimension)
	assert.Equal(t, 85, settings.Media.Quality)
	assert.Equal(t, 256, settings.Media.ThumbnailSize)
	assert.Equal(t, 70, settings.Media.ThumbnailQuality)
	assert.True(t, settings.Output.SQLite.Enabled)
	assert.False(t, settings.Output.MySQL.Enabled)
	require.NoError(t, settings.Validate())
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	t.Parallel()

	settings, err := Defaults()
	require.NoError(t, err)
	settings.Classifier.DisplayThreshold = 1.5

	err = settings.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestValidateRequiresExactlyOneBackend(t *testing.T) {
	t.Parallel()

	settings, err := Defaults()
	require.NoError(t, err)

	settings.Output.MySQL.Enabled = true
	require.Error(t, settings.Validate(), "both backends enabled")

	settings.Output.SQLite.Enabled = false
	settings.Output.MySQL.Enabled = false
	require.Error(t, settings.Validate(), "no backend enabled")
}

func TestValidateRejectsBadMediaSettings(t *testing.T) {
	t.Parallel()

	settings, err := Defaults()
	require.NoError(t, err)
	settings.Media.Quality = 0
	require.Error(t, settings.Validate())

	settings, err = Defaults()
	require.NoError(t, err)
	settings.Media.ThumbnailSize = -1
	require.Error(t, settings.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	settings, err := Defaults()
	require.NoError(t, err)

	path := t.TempDir() + "/config.yaml"
	require.NoError(t, settings.Save(path))
	assert.FileExists(t, path)
}

func TestReliabilityFloorIsFixedPolicy(t *testing.T) {
	t.Parallel()

	// The floor is a compile time constant, not part of Settings.
	assert.InDelta(t, 0.90, ReliabilityFloor, 1e-9)
}
