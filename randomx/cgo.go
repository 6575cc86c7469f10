//go:build cgo

package randomx

//#cgo CFLAGS: -I./lib
//#cgo LDFLAGS: -L${SRCDIR}/lib -lrandomx -lstdc++ -lm -lpthread
//#include <stdlib.h>
//#include "lib/randomx.h"
import "C"

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/weavevalidator/validator/types"
)

const hashSize = C.RANDOMX_HASH_SIZE

// Flags mirror the RandomX C flags used when allocating a cache/dataset
// and creating a VM. FlagFullMEM trades a one-time dataset build (~2GB)
// for much faster per-hash throughput; the validator always builds the
// full dataset since it verifies many chunks per block.
const (
	FlagDefault    C.randomx_flags = 0
	FlagLargePages C.randomx_flags = 1
	FlagHardAES    C.randomx_flags = 2
	FlagFullMEM    C.randomx_flags = 4
	FlagJIT        C.randomx_flags = 8
	FlagSecure     C.randomx_flags = 16
)

// dataset is the shared, immutable, per-epoch-key working set. Building it
// is the expensive part (seconds); hashing against it is cheap. Pool keeps
// one alive per key so concurrent validations of blocks in the same epoch
// share it.
type dataset struct {
	cache *C.randomx_cache
	ds    *C.randomx_dataset
	flags C.randomx_flags
}

func buildDataset(key []byte, flags C.randomx_flags) (*dataset, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("randomx: key must not be empty")
	}
	cache := C.randomx_alloc_cache(flags)
	if cache == nil {
		return nil, fmt.Errorf("randomx: failed to allocate cache")
	}
	C.randomx_init_cache(cache, unsafe.Pointer(&key[0]), C.size_t(len(key)))

	ds := C.randomx_alloc_dataset(flags)
	if ds == nil {
		C.randomx_release_cache(cache)
		return nil, fmt.Errorf("randomx: failed to allocate dataset")
	}

	count := uint32(C.randomx_dataset_item_count())
	workers := uint32(runtime.NumCPU())
	var wg sync.WaitGroup
	for i := uint32(0); i < workers; i++ {
		a := (count * i) / workers
		b := (count * (i + 1)) / workers
		wg.Add(1)
		go func(start, n uint32) {
			defer wg.Done()
			C.randomx_init_dataset(ds, cache, C.ulong(start), C.ulong(n))
		}(a, b-a)
	}
	wg.Wait()

	return &dataset{cache: cache, ds: ds, flags: flags}, nil
}

func (d *dataset) release() {
	C.randomx_release_dataset(d.ds)
	C.randomx_release_cache(d.cache)
}

// Pool caches one dataset per epoch key, evicting the least recently used
// once more than poolSize distinct keys have been seen. Datasets are ~2GB
// each, so the pool is kept intentionally small.
type Pool struct {
	mu       sync.Mutex
	flags    C.randomx_flags
	datasets *lru.Cache[string, *dataset]
}

const poolSize = 2

// NewPool returns a dataset pool using the given flag set (FlagFullMEM is
// forced on: the validator always builds the full dataset).
func NewPool(hardAES, jit bool) *Pool {
	flags := FlagDefault | FlagFullMEM
	if hardAES {
		flags |= FlagHardAES
	}
	if jit {
		flags |= FlagJIT
	}
	c, _ := lru.NewWithEvict[string, *dataset](poolSize, func(_ string, d *dataset) {
		d.release()
	})
	return &Pool{flags: flags, datasets: c}
}

func (p *Pool) get(key []byte) (*dataset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := string(key)
	if d, ok := p.datasets.Get(k); ok {
		return d, nil
	}
	d, err := buildDataset(key, p.flags)
	if err != nil {
		return nil, err
	}
	p.datasets.Add(k, d)
	return d, nil
}

// cgoVM is the cgo-backed VM implementation. It is not safe for concurrent
// use; callers needing parallel hashing take one cgoVM per worker from the
// same Pool.
type cgoVM struct {
	vm *C.randomx_vm
}

// NewVM creates a VM bound to the dataset for key, building that dataset
// if it is not already resident in pool.
func NewVM(pool *Pool, key []byte) (VM, error) {
	d, err := pool.get(key)
	if err != nil {
		return nil, err
	}
	vm := C.randomx_create_vm(d.flags, d.cache, d.ds)
	if vm == nil {
		return nil, fmt.Errorf("randomx: failed to create vm")
	}
	return &cgoVM{vm: vm}, nil
}

func (v *cgoVM) Hash(input []byte) (types.Hash32, error) {
	if v.vm == nil {
		return types.Hash32{}, fmt.Errorf("randomx: vm closed")
	}
	var in unsafe.Pointer
	if len(input) > 0 {
		in = C.CBytes(input)
		defer C.free(in)
	}
	out := C.CBytes(make([]byte, hashSize))
	defer C.free(out)
	C.randomx_calculate_hash(v.vm, in, C.size_t(len(input)), out)
	return types.BytesToHash32(C.GoBytes(out, hashSize)), nil
}

// EntropyScratchpad runs programCount RandomX programs seeded from input
// and returns the raw scratchpad left behind, via the calculate/next/last
// streaming API so the scratchpad is never reset between programs.
func (v *cgoVM) EntropyScratchpad(input []byte, programCount uint32) ([]byte, error) {
	if v.vm == nil {
		return nil, fmt.Errorf("randomx: vm closed")
	}
	if programCount == 0 {
		return nil, fmt.Errorf("randomx: programCount must be > 0")
	}

	in := C.CBytes(input)
	defer C.free(in)
	C.randomx_calculate_hash_first(v.vm, in, C.size_t(len(input)))

	for i := uint32(1); i < programCount; i++ {
		out := C.CBytes(make([]byte, hashSize))
		C.randomx_calculate_hash_next(v.vm, in, C.size_t(len(input)), out)
		C.free(out)
	}

	buf := make([]byte, ScratchpadSize)
	cbuf := C.CBytes(buf)
	defer C.free(cbuf)
	C.randomx_vm_get_scratchpad(v.vm, cbuf)
	return C.GoBytes(cbuf, C.int(ScratchpadSize)), nil
}

func (v *cgoVM) Close() {
	if v.vm != nil {
		C.randomx_destroy_vm(v.vm)
		v.vm = nil
	}
}
