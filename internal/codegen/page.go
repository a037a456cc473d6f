package codegen

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/aerojs/aerojs-core/pkg/errors"
)

// pageSize is the allocation granularity for code regions; mmap rounds
// any request up to a multiple of it regardless, so requests are
// pre-rounded here to keep CodeCache's accounting exact.
const pageSize = 4096

// maxCodeRegion caps a single function's reserved code region (spec
// §4.8: "capped at 1 MiB").
const maxCodeRegion = 1 << 20

// CodeRegion is one executable allocation returned to a JIT compile
// call. Code must be written into it (via Emitter.Finalize's bytes)
// before Protect is called — the page starts out writable and
// non-executable and flips to executable and read-only, never both at
// once (W^X).
type CodeRegion struct {
	mem  []byte
	used int
}

// Bytes exposes the writable region for copying emitted machine code
// into, before Protect is called.
func (r *CodeRegion) Bytes() []byte { return r.mem }

// EntryPoint returns the native entry address once the region has been
// protected read+execute.
func (r *CodeRegion) EntryPoint() uintptr {
	if len(r.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&r.mem[0]))
}

// CodeCache allocates and reclaims executable code regions for the
// baseline and tracing JITs (spec §4.8/§5 point 3: "the JIT code cache
// allocator may serve allocations from multiple threads; allocation
// and eviction are mutually exclusive"). Grounded on
// launix-de/memcp/scm/jit.go's execBuf (mmap PROT_READ|PROT_WRITE,
// MAP_PRIVATE|MAP_ANON, then mprotect to PROT_READ|PROT_EXEC), adapted
// to use golang.org/x/sys/unix rather than raw syscall for a more
// portable mmap/mprotect surface, matching the pack's lower-level repos
// (spec §4.8 domain-stack note).
type CodeCache struct {
	mu      sync.Mutex
	regions []*CodeRegion
	used    int
	budget  int
}

// NewCodeCache creates a cache enforcing budget bytes of resident code
// (spec §4.9's tracer memory budget; the baseline JIT shares the same
// allocator without a budget by passing 0, meaning unlimited).
func NewCodeCache(budget int) *CodeCache {
	return &CodeCache{budget: budget}
}

// Reserve allocates a code region sized heuristically at
// max(256, bytecodeSize*10) bytes, capped at 1 MiB (spec §4.8).
func (c *CodeCache) Reserve(bytecodeSize int) (*CodeRegion, error) {
	size := bytecodeSize * 10
	if size < 256 {
		size = 256
	}
	if size > maxCodeRegion {
		size = maxCodeRegion
	}
	return c.reserveBytes(size)
}

func (c *CodeCache) reserveBytes(size int) (*CodeRegion, error) {
	rounded := ((size + pageSize - 1) / pageSize) * pageSize

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.budget > 0 && c.used+rounded > c.budget {
		return nil, errors.New(errors.KindOther, errors.Position{}, "code cache budget exceeded")
	}

	mem, err := unix.Mmap(-1, 0, rounded, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.New(errors.KindOther, errors.Position{}, "mmap code region: %v", err)
	}
	region := &CodeRegion{mem: mem}
	c.regions = append(c.regions, region)
	c.used += rounded
	return region, nil
}

// Protect finalizes a region's contents (len(code) bytes, already
// written into region.Bytes()) and flips it read+execute.
func (c *CodeCache) Protect(region *CodeRegion) error {
	region.used = len(region.mem)
	if err := unix.Mprotect(region.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return errors.New(errors.KindOther, errors.Position{}, "mprotect code region: %v", err)
	}
	return nil
}

// Release returns a region's pages to the OS, used both when emission
// fails (spec §4.8: "on emission failure the code region is returned
// to the cache") and during §4.9 trace eviction.
func (c *CodeCache) Release(region *CodeRegion) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.regions {
		if r == region {
			c.regions = append(c.regions[:i], c.regions[i+1:]...)
			break
		}
	}
	c.used -= len(region.mem)
	return unix.Munmap(region.mem)
}

// UsedBytes reports the cache's current resident byte count, the
// counter §4.9's eviction policy subtracts from.
func (c *CodeCache) UsedBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}
