// Package sizeclass implements the size-class model:
// a fixed mapping from byte sizes to a small number of size classes and
// the slab geometry for each class.
//
// The (exp, mantissa) decomposition and the reciprocal-multiplier trick
// below generalize a single-band roundup/BitLen pair into a
// multi-intermediate-bits table, so each power-of-two band is divided
// into several linearly-spaced size classes instead of one.
package sizeclass

import (
	"github.com/cznic/mathutil"

	"github.com/cznic-labs/snmalloc-go/internal/config"
)

// T identifies one size class. Class 0 is config.MinAllocSize.
type T uint8

// Class holds the static geometry of one small size class.
type Class struct {
	Size              int // exact object size in bytes
	SlabSize          int // power-of-two slab size
	ObjectsPerSlab    int
	WakeThreshold     int // max(1, ObjectsPerSlab/8)
	ReciprocalMul     uint64
	ReciprocalShift   uint
}

var table []Class

// roundup rounds n up to the next multiple of m. m must be a power of two.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << mathutil.BitLen(n-1)
}

func init() {
	table = buildTable()
}

// buildTable constructs every size class from config.MinAllocSize up to
// config.MaxSmallSizeclassSize, subdividing each power-of-two band into
// 1<<IntermediateBits linearly spaced classes using an (exp,mantissa)
// scheme: within the band [2^k, 2^(k+1)) consecutive classes are
// 2^k>>IntermediateBits apart (never less than config.MinAllocSize).
func buildTable() []Class {
	var classes []Class
	step := config.MinAllocSize

	size := config.MinAllocSize
	for size <= config.MaxSmallSizeclassSize {
		classes = append(classes, makeClass(size))
		step = (1 << (mathutil.BitLen(size) - 1)) >> config.IntermediateBits
		if step < config.MinAllocSize {
			step = config.MinAllocSize
		}
		size += step
	}
	_ = step
	return classes
}

func makeClass(size int) Class {
	slab := minSlabSizeFor(size)
	objs := slab / size
	wake := objs / 8
	if wake < 1 {
		wake = 1
	}
	mul, shift := reciprocal(uint64(size))
	return Class{
		Size:            size,
		SlabSize:        slab,
		ObjectsPerSlab:  objs,
		WakeThreshold:   wake,
		ReciprocalMul:   mul,
		ReciprocalShift: shift,
	}
}

// minSlabSizeFor picks the smallest power-of-two slab size that is at
// least config.MinChunkSize and holds a reasonable minimum object count
// (snmalloc aims for >= 8 objects per slab where the class size allows).
func minSlabSizeFor(size int) int {
	slab := config.MinChunkSize
	for slab/size < 8 && slab < config.MinChunkSize*64 {
		slab <<= 1
	}
	if slab < config.MinChunkSize {
		slab = config.MinChunkSize
	}
	return slab
}

// reciprocal computes a multiplier/shift pair such that for any offset
// o < 2^24 (every slab is at most 1 MiB) and any size <= 2^16,
// (o*mul)>>shift == o/size. Used by index_in_slab and external_pointer
// to avoid integer division on the hot path.
func reciprocal(size uint64) (uint64, uint) {
	if size == 0 {
		return 0, 0
	}
	const shift = 40
	mul := (uint64(1)<<shift + size - 1) / size
	return mul, shift
}

// SizeToSizeclass maps a request n>0 to the smallest class whose exact
// size is >= n. Callers must have already checked IsSmall(n).
func SizeToSizeclass(n int) T {
	lo, hi := 0, len(table)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if table[mid].Size >= n {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return T(lo)
}

// SizeclassToSize is the inverse lookup.
func SizeclassToSize(sc T) int {
	if int(sc) >= len(table) {
		return 0
	}
	return table[sc].Size
}

// Lookup returns the static geometry for a size class.
func Lookup(sc T) Class { return table[sc] }

// Count returns the number of distinct small size classes.
func Count() int { return len(table) }

// IsSmall reports whether n takes the small-size-class fast path.
func IsSmall(n int) bool { return n > 0 && n <= config.MaxSmallSizeclassSize }

// IndexInSlab computes the object index within a slab from a byte offset
// using the class's reciprocal multiplier, without integer division.
func IndexInSlab(sc T, offset uintptr) int {
	c := table[sc]
	return int((uint64(offset) * c.ReciprocalMul) >> c.ReciprocalShift)
}

// RemainingInObject returns the number of bytes from offset to the end
// of the object offset falls within.
func RemainingInObject(sc T, offset uintptr) int {
	c := table[sc]
	idx := IndexInSlab(sc, offset)
	objStart := idx * c.Size
	return c.Size - (int(offset) - objStart)
}
