package canonicaljson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	t.Run("sorts object keys", func(t *testing.T) {
		got, err := Marshal(map[string]any{"b": 1, "a": 2, "c": 3})
		require.NoError(t, err)
		assert.Equal(t, `{"a":2,"b":1,"c":3}`, string(got))
	})

	t.Run("nested objects sorted recursively", func(t *testing.T) {
		got, err := Marshal(map[string]any{
			"outer": map[string]any{"z": true, "a": "x"},
		})
		require.NoError(t, err)
		assert.Equal(t, `{"outer":{"a":"x","z":true}}`, string(got))
	})

	t.Run("arrays preserve order", func(t *testing.T) {
		got, err := Marshal([]any{3, 1, 2})
		require.NoError(t, err)
		assert.Equal(t, `[3,1,2]`, string(got))
	})

	t.Run("numbers keep literal form", func(t *testing.T) {
		got, err := Marshal(map[string]any{"n": 10, "f": 1.5})
		require.NoError(t, err)
		assert.Equal(t, `{"f":1.5,"n":10}`, string(got))
	})

	t.Run("equal maps marshal to equal bytes", func(t *testing.T) {
		a, err := Marshal(map[string]any{"x": 1, "y": []any{"a", "b"}})
		require.NoError(t, err)
		b, err := Marshal(map[string]any{"y": []any{"a", "b"}, "x": 1})
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	})

	t.Run("nil and empty values", func(t *testing.T) {
		got, err := Marshal(map[string]any{"v": nil})
		require.NoError(t, err)
		assert.Equal(t, `{"v":null}`, string(got))

		got, err = Marshal(nil)
		require.NoError(t, err)
		assert.Equal(t, `null`, string(got))
	})
}
