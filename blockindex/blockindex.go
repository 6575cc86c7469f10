// Package blockindex maintains the in-memory height -> {block_hash,
// weave_size, tx_root} mapping the PoA validator consults to find the
// tx_root covering a recall byte that falls before the current block. It
// is append-only: a single writer extends the tail on successful
// validation of a contiguous range, while any number of validators read a
// stable snapshot concurrently.
package blockindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/weavevalidator/validator/types"
	"github.com/weavevalidator/validator/verrors"
)

// Item is one entry of the index: the block at a given height (implicit in
// its position) together with the weave_size immediately after it and its
// tx_root.
type Item struct {
	BlockHash types.Hash48
	WeaveSize uint64
	TxRoot    types.Hash32
}

const (
	recordSize = 48 + 16 + 32 // block_hash || weave_size(u128 BE) || tx_root
	magic      = "BIX0"
)

// cacheSize bounds the recent-lookup cache; validation workloads re-query a
// handful of hot offsets (the current recall range) far more than cold
// history.
const cacheSize = 4096

// Bounds describes the block a recall offset falls within.
type Bounds struct {
	Height           uint64
	BlockStartOffset uint64
	BlockEndOffset   uint64
	TxRoot           types.Hash32
}

// Index is the ordered, append-only block index. One backing slice serves
// both height lookup (position == height-1) and offset lookup (binary
// search on WeaveSize); no secondary copy of the records is kept.
type Index struct {
	mu    sync.RWMutex
	items []Item
	cache *lru.Cache[uint64, int]
}

// New returns an empty index ready to be populated via Append.
func New() *Index {
	c, _ := lru.New[uint64, int](cacheSize)
	return &Index{cache: c}
}

// Len returns the number of items currently held.
func (idx *Index) Len() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return uint64(len(idx.items))
}

// ItemAt returns the item for the given 1-based height, stored at position
// height-1; height 0 or a height past the tail reports false.
func (idx *Index) ItemAt(height uint64) (Item, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if height == 0 || height > uint64(len(idx.items)) {
		return Item{}, false
	}
	return idx.items[height-1], true
}

// GetBounds returns the Bounds of the unique item whose range
// [prev.WeaveSize, WeaveSize) contains offset. It runs in O(log n).
func (idx *Index) GetBounds(offset uint64) (Bounds, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if pos, ok := idx.cache.Get(offset); ok && pos < len(idx.items) && idx.items[pos].WeaveSize > offset {
		return idx.boundsAt(pos), nil
	}

	pos := sort.Search(len(idx.items), func(i int) bool {
		return idx.items[i].WeaveSize > offset
	})
	if pos >= len(idx.items) {
		return Bounds{}, verrors.BlockIndexMiss(int64(offset), fmt.Errorf("offset %d beyond indexed weave size", offset))
	}

	idx.cache.Add(offset, pos)
	return idx.boundsAt(pos), nil
}

func (idx *Index) boundsAt(pos int) Bounds {
	var start uint64
	if pos > 0 {
		start = idx.items[pos-1].WeaveSize
	}
	return Bounds{
		Height:           uint64(pos + 1),
		BlockStartOffset: start,
		BlockEndOffset:   idx.items[pos].WeaveSize,
		TxRoot:           idx.items[pos].TxRoot,
	}
}

// AppendTo serializes the index's current contents to w as the fixed
// record layout: magic, big-endian count, then each item as block_hash(48)
// || weave_size(16, BE) || tx_root(32).
func (idx *Index) AppendTo(w io.Writer) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(idx.items)))
	if _, err := bw.Write(countBuf[:]); err != nil {
		return err
	}
	for _, it := range idx.items {
		var rec [recordSize]byte
		copy(rec[0:48], it.BlockHash.Bytes())
		var wsBuf [16]byte
		binary.BigEndian.PutUint64(wsBuf[8:], it.WeaveSize)
		copy(rec[48:64], wsBuf[:])
		copy(rec[64:96], it.TxRoot.Bytes())
		if _, err := bw.Write(rec[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadFrom builds a new Index by reading the fixed record layout AppendTo
// writes. It validates the magic and the declared count
// against the bytes actually present.
func LoadFrom(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)

	var hdr [8]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("blockindex: reading header: %w", err)
	}
	if string(hdr[0:4]) != magic {
		return nil, fmt.Errorf("blockindex: bad magic %q", hdr[0:4])
	}
	count := binary.BigEndian.Uint32(hdr[4:8])

	items := make([]Item, 0, count)
	for {
		var rec [recordSize]byte
		_, err := io.ReadFull(br, rec[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("blockindex: reading record %d: %w", len(items), err)
		}
		items = append(items, Item{
			BlockHash: types.BytesToHash48(rec[0:48]),
			WeaveSize: binary.BigEndian.Uint64(rec[48+8 : 64]),
			TxRoot:    types.BytesToHash32(rec[64:96]),
		})
	}
	if uint32(len(items)) != count {
		return nil, fmt.Errorf("blockindex: header declared %d records, found %d", count, len(items))
	}

	idx := New()
	idx.items = items
	return idx, nil
}

// Append adds items to the tail of the index. It is the sole mutation
// entry point; callers must serialize their own calls (a single writer),
// matching the reader-writer discipline the orchestrator assumes.
func (idx *Index) Append(items ...Item) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	last := uint64(0)
	if len(idx.items) > 0 {
		last = idx.items[len(idx.items)-1].WeaveSize
	}
	for _, it := range items {
		if it.WeaveSize < last {
			return fmt.Errorf("blockindex: weave_size must be non-decreasing: %d < %d", it.WeaveSize, last)
		}
		last = it.WeaveSize
	}
	idx.items = append(idx.items, items...)
	return nil
}
