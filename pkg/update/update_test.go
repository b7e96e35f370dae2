package update_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/detaorm/base_sdk_go/pkg/update"
)

func TestMergeUnionsMappingsAndConcatenatesLists(t *testing.T) {
	merged := update.Merge(
		update.Set(map[string]any{"name": "x"}),
		update.Set(map[string]any{"role": "admin"}),
		update.Increment(map[string]float64{"count": 2}),
		update.Increment(map[string]float64{"views": 1}),
		update.Append(map[string][]any{"tags": {"a"}}),
		update.Append(map[string][]any{"tags": {"b", "c"}}),
		update.Prepend(map[string][]any{"tags": {"z"}}),
		update.Delete("old"),
		update.Delete("older", "oldest"),
	)

	assert.Equal(t, map[string]any{"name": "x", "role": "admin"}, merged.Set)
	assert.Equal(t, map[string]float64{"count": 2, "views": 1}, merged.Increment)
	assert.Equal(t, map[string][]any{"tags": {"a", "b", "c"}}, merged.Append)
	assert.Equal(t, map[string][]any{"tags": {"z"}}, merged.Prepend)
	assert.Equal(t, []string{"old", "older", "oldest"}, merged.Delete)
}

func TestMergeLaterSetWinsOnSamePath(t *testing.T) {
	merged := update.Merge(
		update.Set(map[string]any{"name": "first"}),
		update.Set(map[string]any{"name": "second"}),
	)
	assert.Equal(t, map[string]any{"name": "second"}, merged.Set)
}

func TestOperationsWireBodyHasExactlyFiveKeys(t *testing.T) {
	merged := update.Merge(update.Increment(map[string]float64{"count": 1}))

	data, err := json.Marshal(merged)
	require.NoError(t, err)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Len(t, body, 5)
	for _, key := range []string{"set", "increment", "append", "prepend", "delete"} {
		assert.Contains(t, body, key)
	}
	assert.JSONEq(t, `{"count":1}`, string(body["increment"]))
	assert.JSONEq(t, `{}`, string(body["set"]))
	assert.JSONEq(t, `[]`, string(body["delete"]))
}

func TestMergeEmpty(t *testing.T) {
	assert.True(t, update.Merge().Empty())
	assert.False(t, update.Merge(update.Delete("x")).Empty())
}
