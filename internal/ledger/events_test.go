package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(t *testing.T, src string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(src), &m))
	return m
}

func TestDecodeEvent_ImageRegistered(t *testing.T) {
	out := fields(t, `{
		"imageId": "7",
		"sha256Hash": "0xabc123",
		"pHash": "0xdef456",
		"ipfsHash": "QmFoo",
		"artist": "0xartist",
		"requireRoyalty": "true",
		"isDerivative": false
	}`)

	ev, ok := decodeEvent("ImageRegistered(uint256,bytes32,bytes16,string,address,bool,bool)", out)
	require.True(t, ok)

	reg, ok := ev.(ImageRegistered)
	require.True(t, ok)
	assert.Equal(t, int64(7), reg.ImageID)
	assert.Equal(t, "abc123", reg.SHA256, "0x marker must be stripped")
	assert.Equal(t, "def456", reg.PHash)
	assert.Equal(t, "QmFoo", reg.IPFSHash)
	assert.True(t, reg.RequireRoyalty)
	assert.False(t, reg.IsDerivative)
}

func TestDecodeEvent_PostLiked(t *testing.T) {
	out := fields(t, `{"imageId": 3, "liker": "0xbob", "totalLikes": "12"}`)

	ev, ok := decodeEvent("PostLiked(uint256,address,uint256)", out)
	require.True(t, ok)

	liked, ok := ev.(PostLiked)
	require.True(t, ok)
	assert.Equal(t, int64(3), liked.ImageID)
	assert.Equal(t, "0xbob", liked.Liker)
	assert.Equal(t, int64(12), liked.TotalLikes)
}

func TestDecodeEvent_RoyaltyPaid(t *testing.T) {
	out := fields(t, `{"imageId": "9", "payer": "0xcarol"}`)

	ev, ok := decodeEvent("RoyaltyPaid(uint256,address)", out)
	require.True(t, ok)

	paid, ok := ev.(RoyaltyPaid)
	require.True(t, ok)
	assert.Equal(t, int64(9), paid.ImageID)
	assert.Equal(t, "0xcarol", paid.Payer)
}

func TestDecodeEvent_UnknownSignature(t *testing.T) {
	_, ok := decodeEvent("Transfer(address,address,uint256)", fields(t, `{}`))
	assert.False(t, ok)
}

func TestDecodeEvent_MissingFieldsAreZero(t *testing.T) {
	ev, ok := decodeEvent("ImageRegistered(...)", fields(t, `{}`))
	require.True(t, ok)

	reg := ev.(ImageRegistered)
	assert.Zero(t, reg.ImageID)
	assert.Empty(t, reg.SHA256)
	assert.False(t, reg.RequireRoyalty)
}

func TestParseBoolOutput(t *testing.T) {
	b, err := parseBoolOutput(json.RawMessage(`true`))
	require.NoError(t, err)
	assert.True(t, b)

	b, err = parseBoolOutput(json.RawMessage(`"false"`))
	require.NoError(t, err)
	assert.False(t, b)

	_, err = parseBoolOutput(json.RawMessage(`{"nested": 1}`))
	assert.Error(t, err)
}
