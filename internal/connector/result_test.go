package connector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createdPayload struct {
	ID string `json:"id"`
}

func TestRun_Success(t *testing.T) {
	res := Run("create_thing", func() (createdPayload, error) {
		return createdPayload{ID: "abc123"}, nil
	})
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.Equal(t, "abc123", res.Value.ID)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"id":"abc123"}`, string(raw))
}

func TestRun_ErrorBecomesFailure(t *testing.T) {
	res := Run("create_thing", func() (createdPayload, error) {
		return createdPayload{}, NewAuthenticationError("token revoked", nil)
	})
	assert.False(t, res.Success)
	assert.Equal(t, "create_thing failed: authentication error: token revoked", res.Error)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"create_thing failed: authentication error: token revoked"}`, string(raw))
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	res := Run("explode", func() (createdPayload, error) {
		panic("boom")
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "explode failed")
	assert.Contains(t, res.Error, "boom")
}

func TestResultMarshal_NonObjectPayload(t *testing.T) {
	raw, err := json.Marshal(Ok([]string{"a", "b"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":["a","b"]}`, string(raw))
}

func TestFail_NilError(t *testing.T) {
	res := Fail[createdPayload]("op", nil)
	assert.Equal(t, "op failed: unknown error", res.Error)
}
