package utils_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/pool-admin/internal/utils"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func (p *payload) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestDecodeJSON(t *testing.T) {
	var p payload
	require.NoError(t, utils.DecodeJSON([]byte(`{"name":"pool"}`), &p))
	require.Equal(t, "pool", p.Name)

	require.Error(t, utils.DecodeJSON([]byte(`{"name":""}`), &payload{}))
	require.Error(t, utils.DecodeJSON([]byte(`{"name":42}`), &payload{}))
	require.Error(t, utils.DecodeJSON([]byte(``), &payload{}))
	require.Error(t, utils.DecodeJSON([]byte(`{"name":"a"} {"name":"b"}`), &payload{}))

	var raw map[string]any
	require.NoError(t, utils.DecodeJSON([]byte(`{"anything":true}`), &raw))
	require.NoError(t, utils.DecodeJSON([]byte(`ignored`), nil))
}

func TestValueAndPtr(t *testing.T) {
	require.Equal(t, 0, utils.Value[int](nil))
	require.Equal(t, "x", utils.Value(utils.Ptr("x")))
}
