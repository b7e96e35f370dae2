package detaapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeQueryResponse(t *testing.T) {
	body := []byte(`{"items":[{"key":"a","n":1},{"key":"b","n":2}],"paging":{"size":2,"last":"b"}}`)
	resp, err := DecodeQueryResponse(body)
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Paging.Size)
	assert.Equal(t, "b", resp.Paging.Last)
}

func TestDecodeQueryResponseFinalPageOmitsLast(t *testing.T) {
	resp, err := DecodeQueryResponse([]byte(`{"items":[],"paging":{"size":0}}`))
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Empty(t, resp.Paging.Last)
}

func TestDecodePutResponse(t *testing.T) {
	body := []byte(`{"processed":{"items":[{"key":"a"}]},"failed":{"items":[{"key":"b"}]}}`)
	resp, err := DecodePutResponse(body)
	require.NoError(t, err)
	assert.Len(t, resp.Processed, 1)
	assert.Len(t, resp.Failed, 1)
}

func TestDecodePutResponseMissingBlocks(t *testing.T) {
	resp, err := DecodePutResponse([]byte(`{"processed":{"items":[{"key":"a"}]}}`))
	require.NoError(t, err)
	assert.Len(t, resp.Processed, 1)
	assert.Empty(t, resp.Failed)
}

func TestDecodeItem(t *testing.T) {
	item, err := DecodeItem([]byte(`{"key":"a","n":1}`))
	require.NoError(t, err)
	assert.Equal(t, "a", item["key"])

	for _, body := range [][]byte{nil, []byte("  "), []byte("null")} {
		item, err := DecodeItem(body)
		require.NoError(t, err)
		assert.Nil(t, item)
	}

	_, err = DecodeItem([]byte(`[1,2]`))
	assert.Error(t, err)
}
