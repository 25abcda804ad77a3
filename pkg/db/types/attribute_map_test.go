package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttributeMapJSONRoundTrip(t *testing.T) {
	m := AttributeMap{
		"firmness":  String("medium"),
		"height_cm": Number(24),
		"washable":  Bool(true),
		"materials": StringList("cold foam", "cover"),
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var back AttributeMap
	require.NoError(t, json.Unmarshal(data, &back))

	require.Len(t, back, 4)
	for key, want := range m {
		require.True(t, back[key].Equal(want), "key %s changed across round trip", key)
	}
}

func TestAttributeValueRejectsMixedList(t *testing.T) {
	var v AttributeValue
	err := json.Unmarshal([]byte(`["a", 2]`), &v)
	require.Error(t, err)
}

func TestAttributeMapScanValue(t *testing.T) {
	m := AttributeMap{"firmness": String("firm")}
	raw, err := m.Value()
	require.NoError(t, err)

	var scanned AttributeMap
	require.NoError(t, scanned.Scan(raw))
	require.True(t, scanned["firmness"].Equal(String("firm")))

	var empty AttributeMap
	require.NoError(t, empty.Scan(nil))
	require.Nil(t, empty)
}

func TestAttributeValueIsZero(t *testing.T) {
	require.True(t, String("").IsZero())
	require.True(t, StringList().IsZero())
	require.False(t, Number(0).IsZero())
	require.False(t, Bool(false).IsZero())
}
