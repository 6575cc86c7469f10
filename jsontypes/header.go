package jsontypes

import (
	"encoding/json"
	"fmt"

	"github.com/weavevalidator/validator/types"
)

type wireTag struct {
	Name  b64Bytes `json:"name"`
	Value b64Bytes `json:"value"`
}

type wirePoa struct {
	Chunk    b64Bytes `json:"chunk"`
	TxPath   b64Bytes `json:"tx_path"`
	DataPath b64Bytes `json:"data_path"`
}

type wireNonceLimiterInfo struct {
	Output              b64Bytes   `json:"output"`
	GlobalStepNumber    decUint64  `json:"global_step_number"`
	PrevOutput          b64Bytes   `json:"prev_output"`
	Seed                b64Bytes   `json:"seed"`
	NextSeed            b64Bytes   `json:"next_seed"`
	ZoneUpperBound      decUint64  `json:"zone_upper_bound"`
	NextZoneUpperBound  decUint64  `json:"next_zone_upper_bound"`
	LastStepCheckpoints []b64Bytes `json:"last_step_checkpoints"`
	Checkpoints         []b64Bytes `json:"checkpoints"`
	VDFDifficulty       *decUint64 `json:"vdf_difficulty,omitempty"`
	NextVDFDifficulty   *decUint64 `json:"next_vdf_difficulty,omitempty"`
}

type wireDoubleSigningProof struct {
	PubKey     b64Bytes   `json:"pub_key"`
	Sig1       b64Bytes   `json:"sig1"`
	CDiff1     *decString `json:"cdiff1"`
	PrevCDiff1 *decString `json:"prev_cdiff1"`
	Preimage1  b64Bytes   `json:"preimage1"`
	Sig2       b64Bytes   `json:"sig2"`
	CDiff2     *decString `json:"cdiff2"`
	PrevCDiff2 *decString `json:"prev_cdiff2"`
	Preimage2  b64Bytes   `json:"preimage2"`
}

// wireHeader mirrors the JSON object served by an Arweave node for a
// block header: base64url byte strings, decimal-ASCII big integers, and
// the VDF checkpoint arrays in descending (newest first) order.
type wireHeader struct {
	IndepHash     b64Bytes `json:"indep_hash"`
	PreviousBlock b64Bytes `json:"previous_block"`
	Height        decUint64 `json:"height"`
	Timestamp     decUint64 `json:"timestamp"`
	Nonce         decUint64 `json:"nonce"`

	RewardAddr b64Bytes `json:"reward_addr"`
	TxRoot     b64Bytes `json:"tx_root"`
	WalletList b64Bytes `json:"wallet_list"`

	HashPreimage   b64Bytes `json:"hash_preimage"`
	HashListMerkle b64Bytes `json:"hash_list_merkle"`

	Diff                   decString `json:"diff"`
	CumulativeDiff         decString `json:"cumulative_diff"`
	PreviousCumulativeDiff decString `json:"previous_cumulative_diff"`
	LastRetarget           decUint64 `json:"last_retarget"`

	BlockSize  decString `json:"block_size"`
	WeaveSize  decString `json:"weave_size"`
	RewardPool decString `json:"reward_pool"`

	Packing25Threshold           decString `json:"packing_2_5_threshold"`
	Packing26Threshold           decString `json:"packing_2_6_threshold"`
	StrictDataSplitThreshold     decString `json:"strict_data_split_threshold"`
	MerkleRebaseSupportThreshold decString `json:"merkle_rebase_support_threshold"`

	USDToARRate          [2]decUint64 `json:"usd_to_ar_rate"`
	ScheduledUSDToARRate [2]decUint64 `json:"scheduled_usd_to_ar_rate"`

	Tags []wireTag  `json:"tags"`
	Txs  []b64Bytes `json:"txs"`

	Reward      decString `json:"reward"`
	RecallByte  decString `json:"recall_byte"`
	RecallByte2 decString `json:"recall_byte2"`

	RewardKey b64Bytes `json:"reward_key"`

	PartitionNumber  decUint64            `json:"partition_number"`
	NonceLimiterInfo wireNonceLimiterInfo `json:"nonce_limiter_info"`

	PreviousSolutionHash b64Bytes `json:"previous_solution_hash"`

	PricePerGiBMinute          decString `json:"price_per_gib_minute"`
	ScheduledPricePerGiBMinute decString `json:"scheduled_price_per_gib_minute"`
	RewardHistoryHash          b64Bytes  `json:"reward_history_hash"`

	DebtSupply                    decString `json:"debt_supply"`
	KryderPlusRateMultiplier      decString `json:"kryder_plus_rate_multiplier"`
	KryderPlusRateMultiplierLatch decString `json:"kryder_plus_rate_multiplier_latch"`
	Denomination                  decString `json:"denomination"`
	RedenominationHeight          decUint64 `json:"redenomination_height"`

	DoubleSigningProof *wireDoubleSigningProof `json:"double_signing_proof,omitempty"`

	Poa  wirePoa `json:"poa"`
	Poa2 wirePoa `json:"poa2"`

	ChunkHash  b64Bytes `json:"chunk_hash"`
	Chunk2Hash b64Bytes `json:"chunk2_hash,omitempty"`

	BlockTimeHistoryHash b64Bytes `json:"block_time_history_hash"`

	Signature b64Bytes `json:"signature"`
}

// reverseB64ToHash32 returns bs's elements in reverse order, each decoded to a
// Hash32. The wire lists last_step_checkpoints/checkpoints newest-first;
// types.NonceLimiterInfo stores them chronologically (see its doc
// comment), so Decode un-reverses them once, here, rather than leaving
// every downstream consumer to reason about wire order.
func reverseB64ToHash32(bs []b64Bytes) ([]types.Hash32, error) {
	out := make([]types.Hash32, len(bs))
	for i, b := range bs {
		h, err := b.hash32()
		if err != nil {
			return nil, err
		}
		out[len(bs)-1-i] = h
	}
	return out, nil
}

// Decode parses a single JSON block header object into a types.BlockHeader.
func Decode(data []byte) (*types.BlockHeader, error) {
	var w wireHeader
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("jsontypes: decode header: %w", err)
	}
	return fromWire(&w)
}

func fromWire(w *wireHeader) (*types.BlockHeader, error) {
	h := &types.BlockHeader{}

	var err error
	if h.IndepHash, err = w.IndepHash.hash48(); err != nil {
		return nil, fmt.Errorf("indep_hash: %w", err)
	}
	if h.PreviousBlock, err = w.PreviousBlock.hash48(); err != nil {
		return nil, fmt.Errorf("previous_block: %w", err)
	}
	h.Height = uint64(w.Height)
	h.Timestamp = uint64(w.Timestamp)
	h.Nonce = uint64(w.Nonce)

	if h.RewardAddr, err = w.RewardAddr.hash32(); err != nil {
		return nil, fmt.Errorf("reward_addr: %w", err)
	}
	if h.TxRoot, err = w.TxRoot.hash32(); err != nil {
		return nil, fmt.Errorf("tx_root: %w", err)
	}
	if h.WalletList, err = w.WalletList.hash32(); err != nil {
		return nil, fmt.Errorf("wallet_list: %w", err)
	}
	if h.HashPreimage, err = w.HashPreimage.hash32(); err != nil {
		return nil, fmt.Errorf("hash_preimage: %w", err)
	}
	if h.HashListMerkle, err = w.HashListMerkle.hash32(); err != nil {
		return nil, fmt.Errorf("hash_list_merkle: %w", err)
	}

	h.Diff = w.Diff.uint256Ptr()
	h.CumulativeDiff = w.CumulativeDiff.uint256Ptr()
	h.PreviousCumulativeDiff = w.PreviousCumulativeDiff.uint256Ptr()
	h.LastRetarget = uint64(w.LastRetarget)

	h.BlockSize = w.BlockSize.uint256Ptr()
	h.WeaveSize = w.WeaveSize.uint256Ptr()
	h.RewardPool = w.RewardPool.uint256Ptr()

	h.Packing25Threshold = w.Packing25Threshold.uint256Ptr()
	h.Packing26Threshold = w.Packing26Threshold.uint256Ptr()
	h.StrictDataSplitThreshold = w.StrictDataSplitThreshold.uint256Ptr()
	h.MerkleRebaseSupportThreshold = w.MerkleRebaseSupportThreshold.uint256Ptr()

	h.USDToARRate = [2]uint64{uint64(w.USDToARRate[0]), uint64(w.USDToARRate[1])}
	h.ScheduledUSDToARRate = [2]uint64{uint64(w.ScheduledUSDToARRate[0]), uint64(w.ScheduledUSDToARRate[1])}

	h.Tags = make([]types.Tag, len(w.Tags))
	for i, t := range w.Tags {
		h.Tags[i] = types.Tag{Name: []byte(t.Name), Value: []byte(t.Value)}
	}
	h.Txs = make([][]byte, len(w.Txs))
	for i, tx := range w.Txs {
		h.Txs[i] = []byte(tx)
	}

	h.Reward = w.Reward.uint256Ptr()
	h.RecallByte = w.RecallByte.uint256Ptr()
	h.RecallByte2 = w.RecallByte2.uint256Ptr()

	h.RewardKey = []byte(w.RewardKey)

	h.PartitionNumber = uint64(w.PartitionNumber)
	if h.NonceLimiterInfo, err = fromWireNonceLimiterInfo(&w.NonceLimiterInfo); err != nil {
		return nil, fmt.Errorf("nonce_limiter_info: %w", err)
	}

	if h.PreviousSolutionHash, err = w.PreviousSolutionHash.hash32(); err != nil {
		return nil, fmt.Errorf("previous_solution_hash: %w", err)
	}

	h.PricePerGiBMinute = w.PricePerGiBMinute.uint256Ptr()
	h.ScheduledPricePerGiBMinute = w.ScheduledPricePerGiBMinute.uint256Ptr()
	if h.RewardHistoryHash, err = w.RewardHistoryHash.hash32(); err != nil {
		return nil, fmt.Errorf("reward_history_hash: %w", err)
	}

	h.DebtSupply = w.DebtSupply.uint256Ptr()
	h.KryderPlusRateMultiplier = w.KryderPlusRateMultiplier.uint256Ptr()
	h.KryderPlusRateMultiplierLatch = w.KryderPlusRateMultiplierLatch.uint256Ptr()
	h.Denomination = w.Denomination.uint256Ptr()
	h.RedenominationHeight = uint64(w.RedenominationHeight)

	if w.DoubleSigningProof != nil {
		h.DoubleSigningProof = &types.DoubleSigningProof{
			PubKey:     []byte(w.DoubleSigningProof.PubKey),
			Sig1:       []byte(w.DoubleSigningProof.Sig1),
			CDiff1:     w.DoubleSigningProof.CDiff1.uint256Ptr(),
			PrevCDiff1: w.DoubleSigningProof.PrevCDiff1.uint256Ptr(),
			Preimage1:  []byte(w.DoubleSigningProof.Preimage1),
			Sig2:       []byte(w.DoubleSigningProof.Sig2),
			CDiff2:     w.DoubleSigningProof.CDiff2.uint256Ptr(),
			PrevCDiff2: w.DoubleSigningProof.PrevCDiff2.uint256Ptr(),
			Preimage2:  []byte(w.DoubleSigningProof.Preimage2),
		}
	}

	h.Poa = types.PoaData{Chunk: []byte(w.Poa.Chunk), TxPath: []byte(w.Poa.TxPath), DataPath: []byte(w.Poa.DataPath)}
	h.Poa2 = types.PoaData{Chunk: []byte(w.Poa2.Chunk), TxPath: []byte(w.Poa2.TxPath), DataPath: []byte(w.Poa2.DataPath)}

	if h.ChunkHash, err = w.ChunkHash.hash32(); err != nil {
		return nil, fmt.Errorf("chunk_hash: %w", err)
	}
	if len(w.Chunk2Hash) > 0 {
		hh, err := w.Chunk2Hash.hash32()
		if err != nil {
			return nil, fmt.Errorf("chunk2_hash: %w", err)
		}
		h.Chunk2Hash = &hh
	}

	if h.BlockTimeHistoryHash, err = w.BlockTimeHistoryHash.hash32(); err != nil {
		return nil, fmt.Errorf("block_time_history_hash: %w", err)
	}

	h.Signature = []byte(w.Signature)
	// reward_addr doubles as the block's mining address; the wire only
	// carries the one field.
	h.MiningAddress = h.RewardAddr

	return h, nil
}

func fromWireNonceLimiterInfo(w *wireNonceLimiterInfo) (types.NonceLimiterInfo, error) {
	var ni types.NonceLimiterInfo
	var err error

	if ni.Output, err = w.Output.hash32(); err != nil {
		return ni, fmt.Errorf("output: %w", err)
	}
	ni.GlobalStepNumber = uint64(w.GlobalStepNumber)
	if ni.PrevOutput, err = w.PrevOutput.hash32(); err != nil {
		return ni, fmt.Errorf("prev_output: %w", err)
	}
	if ni.Seed, err = w.Seed.hash48(); err != nil {
		return ni, fmt.Errorf("seed: %w", err)
	}
	if ni.NextSeed, err = w.NextSeed.hash48(); err != nil {
		return ni, fmt.Errorf("next_seed: %w", err)
	}
	ni.ZoneUpperBound = uint64(w.ZoneUpperBound)
	ni.NextZoneUpperBound = uint64(w.NextZoneUpperBound)

	if len(w.LastStepCheckpoints) != types.NumCheckpointsInVDFStep {
		return ni, fmt.Errorf("last_step_checkpoints: expected %d entries, got %d", types.NumCheckpointsInVDFStep, len(w.LastStepCheckpoints))
	}
	lastStep, err := reverseB64ToHash32(w.LastStepCheckpoints)
	if err != nil {
		return ni, fmt.Errorf("last_step_checkpoints: %w", err)
	}
	copy(ni.LastStepCheckpoints[:], lastStep)

	if ni.Checkpoints, err = reverseB64ToHash32(w.Checkpoints); err != nil {
		return ni, fmt.Errorf("checkpoints: %w", err)
	}

	if w.VDFDifficulty != nil {
		v := uint64(*w.VDFDifficulty)
		ni.VDFDifficulty = &v
	}
	if w.NextVDFDifficulty != nil {
		v := uint64(*w.NextVDFDifficulty)
		ni.NextVDFDifficulty = &v
	}
	return ni, nil
}
