package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_OrderIndependentForMaps(t *testing.T) {
	a, err := Fingerprint(DomainReconciliation, map[string]any{"missing": []string{"Z9"}, "matching": []string{}})
	require.NoError(t, err)
	b, err := Fingerprint(DomainReconciliation, map[string]any{"matching": []string{}, "missing": []string{"Z9"}})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_DomainSeparation(t *testing.T) {
	a, err := Fingerprint(DomainReconciliation, "S/N: A1")
	require.NoError(t, err)

	assert.NotEqual(t, a, DescriptionFingerprint("S/N: A1"))
}

func TestFingerprint_SensitiveToOrder(t *testing.T) {
	a, err := Fingerprint(DomainReconciliation, []string{"A1", "B2"})
	require.NoError(t, err)
	b, err := Fingerprint(DomainReconciliation, []string{"B2", "A1"})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFingerprint_Error(t *testing.T) {
	_, err := Fingerprint(DomainReconciliation, 0.5)
	assert.Error(t, err)
}
