package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		Host:        srv.URL,
		Namespace:   "default",
		ImageAPI:    "imageApi",
		LikeAPI:     "likeApi",
		IPFSGateway: "https://ipfs.example.com",
	}, zap.NewNop())
}

func TestSubmitRegisterOriginal(t *testing.T) {
	var gotBody map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/namespaces/default/apis/imageApi/invoke/registerImage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"id":"op-1","tx":"tx-123"}`))
	})

	txID, err := c.SubmitRegisterOriginal(context.Background(), RegisterInput{
		SHA256:         "aa",
		PHash:          "bb",
		IPFSHash:       "QmX",
		RequireRoyalty: true,
	}, "0xkey")
	require.NoError(t, err)
	assert.Equal(t, "tx-123", txID)

	input := gotBody["input"].(map[string]any)
	assert.Equal(t, "0xaa", input["sha256Hash"], "hashes go on the wire with the 0x marker")
	assert.Equal(t, "0xbb", input["pHash"])
	assert.Equal(t, true, input["requireRoyalty"])
	assert.Equal(t, "0xkey", gotBody["key"])
}

func TestGetTransaction_NotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.GetTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestGetTransaction_Found(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/namespaces/default/transactions/tx-9", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"tx-9","type":"blockchain_invoke"}`))
	})

	tx, err := c.GetTransaction(context.Background(), "tx-9")
	require.NoError(t, err)
	assert.Equal(t, "tx-9", tx.ID)
}

func TestServerErrorIsLedgerUnavailable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.SubmitLikePost(context.Background(), 1, "0xkey")
	assert.ErrorIs(t, err, ErrLedgerUnavailable)
}

func TestClientErrorIsNotRetryable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad input"}`))
	})

	_, err := c.SubmitLikePost(context.Background(), 1, "0xkey")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLedgerUnavailable)
}

func TestHasLiked_StringOutput(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/namespaces/default/apis/likeApi/query/hasLiked", r.URL.Path)
		_, _ = w.Write([]byte(`{"output":"true"}`))
	})

	liked, err := c.HasLiked(context.Background(), 4, "0xbob")
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestUploadBlob(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/namespaces/default/data":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			assert.Equal(t, "cat.png", hdr.Filename)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"data-1"}`))
		case "/api/v1/namespaces/default/data/data-1/blob/publish":
			_, _ = w.Write([]byte(`{"blob":{"public":"QmPublic"}}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	ref, err := c.UploadBlob(context.Background(), []byte("png bytes"), "cat.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "QmPublic", ref.Hash)
	assert.Equal(t, "https://ipfs.example.com/ipfs/QmPublic", ref.Link)
}
