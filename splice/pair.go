package splice

import "encoding/binary"

// pairCutover is the input size below which extractPair uses the byte loop.
// Shorter inputs do not fill enough 16-byte blocks to pay for the setup.
const pairCutover = 32

// extractPair fills dst with the even (k == 0) or odd (k == 1) bytes of
// data. It is the two-channel case of extract, working a 16-byte block of
// input into 8 bytes of output per step.
//
// Input:  [a0, b0, a1, b1, a2, b2, a3, b3, a4, b4, a5, b5, a6, b6, a7, b7]
// Output: [a0, a1, a2, a3, a4, a5, a6, a7] for k == 0
//
// len(dst) must be ChannelLen(len(data), 2, k).
func extractPair(dst, data []byte, k int) {
	j := 0
	if len(data) >= pairCutover {
		shift := uint(8 * k)
		for ; 2*j+16 <= len(data); j += 8 {
			lo := binary.LittleEndian.Uint64(data[2*j:])
			hi := binary.LittleEndian.Uint64(data[2*j+8:])
			binary.LittleEndian.PutUint64(dst[j:], evenBytes(lo>>shift)|evenBytes(hi>>shift)<<32)
		}
	}
	for ; j < len(dst); j++ {
		dst[j] = data[k+2*j]
	}
}

// evenBytes packs bytes 0, 2, 4 and 6 of v into the low 32 bits.
func evenBytes(v uint64) uint64 {
	v &= 0x00FF00FF00FF00FF
	v = (v | v>>8) & 0x0000FFFF0000FFFF
	v = (v | v>>16) & 0x00000000FFFFFFFF
	return v
}
