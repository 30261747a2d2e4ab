package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsValidate(t *testing.T) {
	t.Setenv("RECEIPT_TIMEZONE", "Asia/Tokyo")
	t.Setenv("STORAGE_DRIVER", "local")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Receipt.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestValidateRejectsUnknownTimezone(t *testing.T) {
	cfg := Load()
	cfg.Receipt.Timezone = "Mars/Olympus_Mons"
	assert.Error(t, cfg.Validate())
}
