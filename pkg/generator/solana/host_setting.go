package solana

import (
	"fmt"
	"io"

	"github.com/holiman/uint256"
)

// LocalWorkSize is the fixed work-group size used for every dispatch.
const LocalWorkSize = 32

// HostSetting owns the 256-bit search counter and the per-round sizing.
//
// key32 is a big-endian integer. Its low IterationBytes bytes are always zero on the
// host: the device writes each work-item's index there, so the host counter only ever
// moves the bytes above them.
type HostSetting struct {
	iterationBits  int
	iterationBytes int
	globalWorkSize uint64
	localWorkSize  int
	key32          [32]byte
	kernelSource   string
	stride         *uint256.Int
}

// NewHostSetting seeds a counter from r with the low iteration bytes zeroed.
func NewHostSetting(iterationBits int, kernelSource string, r io.Reader) (*HostSetting, error) {
	if iterationBits < 1 || iterationBits > 63 {
		return nil, fmt.Errorf("iteration bits %d out of range", iterationBits)
	}

	h := HostSetting{
		iterationBits:  iterationBits,
		iterationBytes: (iterationBits + 7) / 8,
		globalWorkSize: 1 << iterationBits,
		localWorkSize:  LocalWorkSize,
		kernelSource:   kernelSource,
	}

	if _, err := io.ReadFull(r, h.key32[:32-h.iterationBytes]); err != nil {
		return nil, fmt.Errorf("seeding key32: %w", err)
	}

	// When the bits do not fill whole bytes, 2^bits would land inside the zeroed
	// region and be erased, so the counter steps over the whole region instead.
	h.stride = new(uint256.Int).Lsh(uint256.NewInt(1), uint(8*h.iterationBytes))

	return &h, nil
}

// Advance moves key32 past the range claimed by the current round. Overflow wraps
// around 2^256.
//
// The step is 2^(8*IterationBytes), not 2^IterationBits. The two agree when the bits
// are a multiple of 8; otherwise the larger step keeps the high bytes moving and skips
// the index values the devices never reach.
func (h *HostSetting) Advance() {
	current := new(uint256.Int).SetBytes32(h.key32[:])
	next := new(uint256.Int).Add(current, h.stride)
	h.key32 = next.Bytes32()
	clear(h.key32[32-h.iterationBytes:])
}

// Snapshot captures the values a round dispatches with.
func (h *HostSetting) Snapshot() Round {
	return Round{
		Key32:          h.key32,
		IterationBytes: h.iterationBytes,
		GlobalWorkSize: h.globalWorkSize,
		LocalWorkSize:  h.localWorkSize,
	}
}

// Key32 returns a copy of the current counter.
func (h *HostSetting) Key32() [32]byte {
	return h.key32
}

// IterationBits returns the number of low-order bits enumerated on the device.
func (h *HostSetting) IterationBits() int {
	return h.iterationBits
}

// IterationBytes returns ceil(IterationBits/8).
func (h *HostSetting) IterationBytes() int {
	return h.iterationBytes
}

// GlobalWorkSize returns 2^IterationBits.
func (h *HostSetting) GlobalWorkSize() uint64 {
	return h.globalWorkSize
}

// LocalWorkSize returns the work-group size.
func (h *HostSetting) LocalWorkSize() int {
	return h.localWorkSize
}

// KernelSource returns the specialized program text this setting was created for.
func (h *HostSetting) KernelSource() string {
	return h.kernelSource
}

// Round is an immutable view of a HostSetting for one round of dispatches. Workers
// receive it by value so the counter itself stays owned by the orchestrator.
type Round struct {
	Key32          [32]byte
	IterationBytes int
	GlobalWorkSize uint64
	LocalWorkSize  int
}

// WorkItems returns the number of work-items each of chunks slices receives: an equal
// share of the global work size, rounded down to whole work-groups.
func (r Round) WorkItems(chunks int) uint64 {
	if chunks < 1 {
		chunks = 1
	}
	per := r.GlobalWorkSize / uint64(chunks)
	local := uint64(r.LocalWorkSize)
	if local == 0 {
		return per
	}
	return per / local * local
}

// Candidate writes the private key seed examined by work-item index into dst: key32
// with index stored big-endian in its low IterationBytes bytes.
func (r Round) Candidate(dst *[32]byte, index uint64) {
	*dst = r.Key32
	for i := 0; i < r.IterationBytes; i++ {
		dst[31-i] = byte(index >> (8 * i))
	}
}
