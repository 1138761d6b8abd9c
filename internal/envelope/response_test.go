package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessPreservesCallerSuppliedMetadataOrder(t *testing.T) {
	resp := Success("ok", []Metadata{
		{Key: "z", Value: 1},
		{Key: "a", Value: 2},
		{Key: "m", Value: 3},
	})
	assert.Equal(t, []string{"z", "a", "m"}, resp.MetadataKeys())
	assert.Equal(t, map[string]interface{}{"z": 1, "a": 2, "m": 3}, resp.Metadata)
}

func TestSuccessWithNilMetadataHasEmptyKeys(t *testing.T) {
	resp := Success("ok", nil)
	assert.Empty(t, resp.MetadataKeys())
}

func TestSuccessRepeatedKeyKeepsFirstPositionButLastValue(t *testing.T) {
	resp := Success("ok", []Metadata{
		{Key: "a", Value: 1},
		{Key: "b", Value: 2},
		{Key: "a", Value: 3},
	})
	assert.Equal(t, []string{"a", "b"}, resp.MetadataKeys())
	assert.Equal(t, 3, resp.Metadata["a"])
}

func TestFailureBuildsWithCauseMessage(t *testing.T) {
	resp := Failure(StatusNotFound, assertErr("missing"), "")
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, "missing", resp.Message)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
