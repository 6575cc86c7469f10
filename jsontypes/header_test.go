package jsontypes

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weavevalidator/validator/types"
)

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func hash32Bytes(fill byte) []byte {
	b := make([]byte, 32)
	b[0] = fill
	return b
}

func hash48Bytes(fill byte) []byte {
	b := make([]byte, 48)
	b[0] = fill
	return b
}

func checkpointArray(n int, start byte) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = b64(hash32Bytes(start + byte(i)))
	}
	return out
}

func minimalWireJSON(t *testing.T) []byte {
	t.Helper()

	lastStep := checkpointArray(types.NumCheckpointsInVDFStep, 1)
	checkpoints := checkpointArray(3, 100)

	doc := map[string]interface{}{
		"indep_hash":     b64(hash48Bytes(0x01)),
		"previous_block": b64(hash48Bytes(0x02)),
		"height":         "100",
		"timestamp":      "1700000000",
		"nonce":          "0",

		"reward_addr": b64(hash32Bytes(0x03)),
		"tx_root":     b64(hash32Bytes(0x04)),
		"wallet_list": b64(hash32Bytes(0x05)),

		"hash_preimage":     b64(hash32Bytes(0x06)),
		"hash_list_merkle":  b64(hash32Bytes(0x07)),

		"diff":                     "115792089237316195423570985008687907853269984665640564039457584007913129639935",
		"cumulative_diff":          "1000",
		"previous_cumulative_diff": "900",
		"last_retarget":            "1699999000",

		"block_size":  "262144",
		"weave_size":  "524288",
		"reward_pool": "0",

		"packing_2_5_threshold":            "0",
		"packing_2_6_threshold":            "0",
		"strict_data_split_threshold":      "0",
		"merkle_rebase_support_threshold":  "0",

		"usd_to_ar_rate":           []string{"1", "1"},
		"scheduled_usd_to_ar_rate": []string{"1", "1"},

		"tags": []map[string]string{
			{"name": b64([]byte("content-type")), "value": b64([]byte("text/plain"))},
		},
		"txs": []string{b64(hash32Bytes(0x08))},

		"reward":       "0",
		"recall_byte":  "0",
		"recall_byte2": "0",

		"reward_key": b64([]byte{0xde, 0xad, 0xbe, 0xef}),

		"partition_number": "0",
		"nonce_limiter_info": map[string]interface{}{
			"output":                out(),
			"global_step_number":    "5000",
			"prev_output":           b64(hash32Bytes(0x09)),
			"seed":                  b64(hash48Bytes(0x0a)),
			"next_seed":             b64(hash48Bytes(0x0b)),
			"zone_upper_bound":      "1000000",
			"next_zone_upper_bound": "2000000",
			"last_step_checkpoints": lastStep,
			"checkpoints":           checkpoints,
		},

		"previous_solution_hash": b64(hash32Bytes(0x0c)),

		"price_per_gib_minute":           "1",
		"scheduled_price_per_gib_minute": "1",
		"reward_history_hash":            b64(hash32Bytes(0x0d)),

		"debt_supply":                     "0",
		"kryder_plus_rate_multiplier":     "1",
		"kryder_plus_rate_multiplier_latch": "0",
		"denomination":                    "1",
		"redenomination_height":           "0",

		"poa": map[string]string{
			"chunk":     b64([]byte("chunk-bytes")),
			"tx_path":   b64([]byte("tx-path-bytes")),
			"data_path": b64([]byte("data-path-bytes")),
		},
		"poa2": map[string]string{
			"chunk":     "",
			"tx_path":   "",
			"data_path": "",
		},

		"chunk_hash":              b64(hash32Bytes(0x0e)),
		"block_time_history_hash": b64(hash32Bytes(0x0f)),

		"signature": b64([]byte{0x01, 0x02, 0x03}),
	}

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	return out
}

func out() string { return b64(hash32Bytes(0x10)) }

func TestDecodeBasicFields(t *testing.T) {
	data := minimalWireJSON(t)
	h, err := Decode(data)
	require.NoError(t, err)

	require.Equal(t, uint64(100), h.Height)
	require.Equal(t, uint64(1700000000), h.Timestamp)
	require.Equal(t, types.BytesToHash48(hash48Bytes(0x01)), h.IndepHash)
	require.Equal(t, types.BytesToHash48(hash48Bytes(0x02)), h.PreviousBlock)
	require.Equal(t, "1000", h.CumulativeDiff.Dec())
	require.Equal(t, "262144", h.BlockSize.Dec())
	require.Len(t, h.Tags, 1)
	require.Equal(t, []byte("content-type"), h.Tags[0].Name)
	require.Len(t, h.Txs, 1)
}

func TestDecodeReversesCheckpointOrder(t *testing.T) {
	data := minimalWireJSON(t)
	h, err := Decode(data)
	require.NoError(t, err)

	// The wire's last_step_checkpoints is newest-first; index 0 on the
	// wire (fill byte 1) must land at the tail of the CORE's chronological
	// array, and the wire's tail (fill byte 25) must land at index 0.
	require.Equal(t, types.BytesToHash32(hash32Bytes(25)), h.NonceLimiterInfo.LastStepCheckpoints[0])
	require.Equal(t, types.BytesToHash32(hash32Bytes(1)), h.NonceLimiterInfo.LastStepCheckpoints[types.NumCheckpointsInVDFStep-1])

	require.Len(t, h.NonceLimiterInfo.Checkpoints, 3)
	require.Equal(t, types.BytesToHash32(hash32Bytes(102)), h.NonceLimiterInfo.Checkpoints[0])
	require.Equal(t, types.BytesToHash32(hash32Bytes(100)), h.NonceLimiterInfo.Checkpoints[2])
}

func TestDecodeOptionalChunk2HashAbsent(t *testing.T) {
	data := minimalWireJSON(t)
	h, err := Decode(data)
	require.NoError(t, err)
	require.Nil(t, h.Chunk2Hash)
}

func TestDecodeRejectsTruncatedHash(t *testing.T) {
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(minimalWireJSON(t), &doc))
	doc["indep_hash"] = b64([]byte{0x01, 0x02})

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = Decode(data)
	require.Error(t, err)
}

func TestDecodeRejectsWrongCheckpointCount(t *testing.T) {
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(minimalWireJSON(t), &doc))
	ni := doc["nonce_limiter_info"].(map[string]interface{})
	ni["last_step_checkpoints"] = checkpointArray(3, 1)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = Decode(data)
	require.Error(t, err)
}
