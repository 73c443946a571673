package core_test

import (
	"testing"

	"stock-ledger/internal/core"

	"github.com/stretchr/testify/require"
)

func TestConvertQuantity_SameUnit(t *testing.T) {
	got, err := core.ConvertQuantity(dec("7.5"), "g", "g", nil)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("7.5")))
}

func TestConvertQuantity_MassScale(t *testing.T) {
	got, err := core.ConvertQuantity(dec("2.5"), "kg", "g", nil)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("2500")))

	got, err = core.ConvertQuantity(dec("500"), "mg", "g", nil)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("0.5")))
}

func TestConvertQuantity_VolumeScale(t *testing.T) {
	got, err := core.ConvertQuantity(dec("1.2"), "l", "ml", nil)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("1200")))
}

func TestConvertQuantity_ConversionFactorFallback(t *testing.T) {
	// A "box" of 24 pcs.
	factor := dec("24")
	got, err := core.ConvertQuantity(dec("3"), "box", "pcs", &factor)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("72")))
}

func TestConvertQuantity_CrossDimensionUsesFactor(t *testing.T) {
	// Purchasing flour by the sack (25 kg worth of grams).
	factor := dec("25000")
	got, err := core.ConvertQuantity(dec("2"), "sack", "g", &factor)
	require.NoError(t, err)
	require.True(t, got.Equal(dec("50000")))
}

func TestConvertQuantity_NoConversion(t *testing.T) {
	_, err := core.ConvertQuantity(dec("1"), "l", "g", nil)
	require.Error(t, err)
	require.True(t, core.IsValidation(err))

	zero := dec("0")
	_, err = core.ConvertQuantity(dec("1"), "box", "pcs", &zero)
	require.Error(t, err, "zero factor must not be usable")
}
