// Package predictor implements the byte delta predictor applied to channel
// planes before compression.
//
// Within one channel, consecutive samples are usually close in value, so
// replacing each byte with its difference from the previous one turns a
// slowly varying plane into runs of small numbers that compress well.
// Applied to the interleaved stream, the same predictor would mix
// unrelated channels and gain little; that is why it runs per plane.
package predictor

// Encode replaces every byte after the first with its difference from
// its predecessor, in place. Arithmetic wraps modulo 256.
func Encode(data []byte) {
	if len(data) < 2 {
		return
	}

	prev := data[0]
	for i := 1; i < len(data); i++ {
		cur := data[i]
		data[i] = cur - prev
		prev = cur
	}
}

// Decode reverses Encode in place: each byte becomes the running sum of
// itself and all earlier bytes.
func Decode(data []byte) {
	if len(data) < 2 {
		return
	}

	// Unrolled by 8; every step depends on the previous one.
	i := 1
	for ; i+7 < len(data); i += 8 {
		data[i] += data[i-1]
		data[i+1] += data[i]
		data[i+2] += data[i+1]
		data[i+3] += data[i+2]
		data[i+4] += data[i+3]
		data[i+5] += data[i+4]
		data[i+6] += data[i+5]
		data[i+7] += data[i+6]
	}
	for ; i < len(data); i++ {
		data[i] += data[i-1]
	}
}

// EncodePlanes applies Encode to each plane independently.
func EncodePlanes(planes [][]byte) {
	for _, p := range planes {
		Encode(p)
	}
}

// DecodePlanes applies Decode to each plane independently.
func DecodePlanes(planes [][]byte) {
	for _, p := range planes {
		Decode(p)
	}
}
