package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInventoryAvailable(t *testing.T) {
	rec := &InventoryRecord{Stock: 10, Reserved: 3}
	require.Equal(t, 7, rec.Available())

	require.True(t, rec.CanReserve(7))
	require.False(t, rec.CanReserve(8))
	require.True(t, rec.CanReserve(0))
}

func TestNewInventorySKU(t *testing.T) {
	require.Equal(t, "SKU-abcd1234", NewInventorySKU("abcd1234-xxxx"))
	require.Equal(t, "SKU-p1", NewInventorySKU("p1"))
}
