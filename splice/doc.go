// Package splice partitions a byte sequence into interleaved channels.
//
// Channel k of a C-channel split receives every byte whose index i satisfies
// i mod C == k, in ascending index order:
//
//	Input:    [1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11]   (C = 3)
//	Channels: [1, 4, 7, 10] [2, 5, 8, 11] [3, 6, 9]
//
// This is the usual way to unpack multi-channel sample data such as audio
// frames, packed sensor readings or struct-of-array layouts.
//
// Three strategies produce identical results and differ only in how they
// walk memory:
//
//   - Splice (Sequential) makes a single pass and appends each byte to its
//     channel. It has the lowest fixed cost and wins on tiny inputs.
//   - SpliceStepped (Stepped) makes one strided pass per channel. Each pass
//     has a fixed start and stride, which the compiler handles well.
//   - SpliceParallel (Parallel) runs the per-channel passes concurrently.
//     It wins once the input no longer fits in a single core's cache.
//
// Auto and Selector choose between them by input size using Thresholds.
// The break-even points depend on the machine; cmd/splicebench measures them.
//
// Every strategy returns exactly C freshly allocated buffers. The input is
// never modified or retained, and the package holds no global state.
package splice
