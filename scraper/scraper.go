// Package scraper fetches block-index ranges from an Arweave HTTP gateway
// and feeds them into a blockindex.Index. It is the external collaborator
// spec.md delegates retry and network concerns to; the CORE never retries
// on its own.
package scraper

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/weavevalidator/validator/blockindex"
	"github.com/weavevalidator/validator/log"
	"github.com/weavevalidator/validator/types"
)

// wireItem mirrors the JSON object a node's /block_index range endpoint
// serves for each height: {hash, weave_size, tx_root}, hash/tx_root as
// base64url strings and weave_size as a decimal-ASCII string.
type wireItem struct {
	Hash      string `json:"hash"`
	WeaveSize string `json:"weave_size"`
	TxRoot    string `json:"tx_root"`
}

func (w wireItem) toItem() (blockindex.Item, error) {
	hashBytes, err := base64.RawURLEncoding.DecodeString(w.Hash)
	if err != nil {
		return blockindex.Item{}, fmt.Errorf("scraper: invalid hash: %w", err)
	}
	if len(hashBytes) != 48 {
		return blockindex.Item{}, fmt.Errorf("scraper: expected 48 byte hash, got %d", len(hashBytes))
	}
	txRootBytes, err := base64.RawURLEncoding.DecodeString(w.TxRoot)
	if err != nil {
		return blockindex.Item{}, fmt.Errorf("scraper: invalid tx_root: %w", err)
	}
	if len(txRootBytes) != 32 {
		return blockindex.Item{}, fmt.Errorf("scraper: expected 32 byte tx_root, got %d", len(txRootBytes))
	}
	weaveSize, err := strconv.ParseUint(w.WeaveSize, 10, 64)
	if err != nil {
		return blockindex.Item{}, fmt.Errorf("scraper: invalid weave_size %q: %w", w.WeaveSize, err)
	}
	return blockindex.Item{
		BlockHash: types.BytesToHash48(hashBytes),
		WeaveSize: weaveSize,
		TxRoot:    types.BytesToHash32(txRootBytes),
	}, nil
}

// Client fetches block-index ranges from a single Arweave gateway.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries uint64
}

// NewClient returns a Client targeting baseURL (e.g. "https://arweave.net"),
// with a 30s request timeout and up to 3 retries per range, matching the
// original scraper's bounded-retry behavior.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		MaxRetries: 3,
	}
}

// FetchRange retrieves the block-index entries for heights [start, end),
// in the CORE's chronological order (ascending height), ready to hand to
// blockindex.Index.Append. The node serves the range in descending height
// order; FetchRange reverses it once, here, rather than leaving the
// reversal to every caller.
func (c *Client) FetchRange(ctx context.Context, start, end uint64) ([]blockindex.Item, error) {
	url := fmt.Sprintf("%s/block_index/%d/%d", c.BaseURL, start, end)

	var wire []wireItem
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("scraper: build request: %w", err))
		}
		// Requests the weave_size/tx_root fields in the response.
		req.Header.Set("x-block-format", "1")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			log.Debugf("scraper: request to %s failed: %s", url, err)
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			err := fmt.Errorf("scraper: %s returned status %d: %s", url, resp.StatusCode, body)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		var parsed []wireItem
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("scraper: decode %s: %w", url, err))
		}
		wire = parsed
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.MaxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}

	items := make([]blockindex.Item, len(wire))
	for i, w := range wire {
		it, err := w.toItem()
		if err != nil {
			return nil, err
		}
		// wire order is descending height; reverse into ascending.
		items[len(wire)-1-i] = it
	}
	return items, nil
}

// FillIndex fetches [idx.Len(), targetHeight) in range-sized chunks and
// appends each fully-fetched chunk to idx. A failure partway through
// leaves idx at its last successfully appended height, matching spec.md's
// "partial write leaves the cache at its previous consistent tail"
// recovery rule.
func (c *Client) FillIndex(ctx context.Context, idx *blockindex.Index, targetHeight uint64, rangeSize uint64) error {
	if rangeSize == 0 {
		rangeSize = 1000
	}
	for start := idx.Len(); start < targetHeight; start += rangeSize {
		end := start + rangeSize
		if end > targetHeight {
			end = targetHeight
		}
		items, err := c.FetchRange(ctx, start, end)
		if err != nil {
			return fmt.Errorf("scraper: fetch range [%d,%d): %w", start, end, err)
		}
		if err := idx.Append(items...); err != nil {
			return fmt.Errorf("scraper: append range [%d,%d): %w", start, end, err)
		}
		log.Infof("scraper: indexed heights [%d,%d)", start, end)
	}
	return nil
}
