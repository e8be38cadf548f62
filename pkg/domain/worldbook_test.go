package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldBookEntry_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantSelective bool
		wantEnabled   bool
	}{
		{"absent flags default on", `{"content":"Dragons breathe fire","keys":["dragon"]}`, true, true},
		{"explicit false kept", `{"content":"x","selective":false,"enabled":false}`, false, false},
		{"mixed", `{"content":"x","enabled":false}`, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e WorldBookEntry
			require.NoError(t, json.Unmarshal([]byte(tt.body), &e))
			assert.Equal(t, tt.wantSelective, e.Selective)
			assert.Equal(t, tt.wantEnabled, e.Enabled)
		})
	}

	var list []WorldBookEntry
	require.NoError(t, json.Unmarshal([]byte(`[{"uid":3,"keys":["a"]}]`), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].UID)
	assert.True(t, list[0].Selective)

	var bad WorldBookEntry
	assert.Error(t, json.Unmarshal([]byte(`{"uid":"x"}`), &bad))
}
