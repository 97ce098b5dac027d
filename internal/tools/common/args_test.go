package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr bool
	}{
		{name: "absent", input: nil, want: nil},
		{name: "single string", input: "a@example.com", want: []string{"a@example.com"}},
		{name: "comma separated", input: "a@example.com, b@example.com,,", want: []string{"a@example.com", "b@example.com"}},
		{name: "array", input: []any{"id1", " id2 ", ""}, want: []string{"id1", "id2"}},
		{name: "array with non-string", input: []any{"id1", 2.0}, wantErr: true},
		{name: "number", input: 4.0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StringList(map[string]any{"to": tt.input}, "to")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInt(t *testing.T) {
	args := map[string]any{"f": 25.0, "s": "7", "bad": "x", "empty": ""}

	n, err := Int(args, "f", 10)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = Int(args, "s", 10)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = Int(args, "missing", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = Int(args, "empty", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = Int(args, "bad", 10)
	assert.ErrorContains(t, err, "bad must be a number")
}

func TestBool(t *testing.T) {
	args := map[string]any{"b": true, "s": "false"}
	assert.True(t, Bool(args, "b", false))
	assert.False(t, Bool(args, "s", true))
	assert.True(t, Bool(args, "missing", true))

	assert.Nil(t, OptionalBool(args, "missing"))
	require.NotNil(t, OptionalBool(args, "s"))
	assert.False(t, *OptionalBool(args, "s"))
}

func TestTime(t *testing.T) {
	args := map[string]any{
		"ts":   "2024-03-01T09:30:00+01:00",
		"date": "2024-03-01",
		"bad":  "yesterday",
	}

	ts, err := Time(args, "ts")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), ts.UTC())
	assert.False(t, IsDate(args, "ts"))

	d, err := Time(args, "date")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), d)
	assert.True(t, IsDate(args, "date"))

	zero, err := Time(args, "missing")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = Time(args, "bad")
	assert.Error(t, err)
}

func TestRawJSON(t *testing.T) {
	args := map[string]any{
		"obj":  map[string]any{"property": "Status"},
		"text": `{"and":[]}`,
		"bad":  `{"and":`,
	}

	raw, err := RawJSON(args, "obj")
	require.NoError(t, err)
	assert.JSONEq(t, `{"property":"Status"}`, string(raw))

	raw, err = RawJSON(args, "text")
	require.NoError(t, err)
	assert.JSONEq(t, `{"and":[]}`, string(raw))

	raw, err = RawJSON(args, "missing")
	require.NoError(t, err)
	assert.Nil(t, raw)

	_, err = RawJSON(args, "bad")
	assert.Error(t, err)

	var out map[string]string
	ok, err := Decode(args, "obj", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Status", out["property"])
}

func TestAccountFromArgs(t *testing.T) {
	assert.Equal(t, "work", AccountFromArgs(map[string]any{"account": " work "}))
	assert.Empty(t, AccountFromArgs(map[string]any{}))
	assert.Empty(t, AccountFromArgs(map[string]any{"account": 3}))
}
