package splice

// MaxChannelLen returns ceil(n/channels), the length of the longest channel
// when n bytes are split into the given number of channels.
// It returns 0 when n <= 0 or channels < 1.
func MaxChannelLen(n, channels int) int {
	if n <= 0 || channels < 1 {
		return 0
	}
	un, uc := uint64(n), uint64(channels)
	each := un / uc
	if un%uc != 0 {
		each++
	}
	return int(each)
}

// ChannelLen returns the number of bytes channel k receives when n bytes are
// split into the given number of channels: ceil((n-k)/channels) for k < n,
// and 0 otherwise.
func ChannelLen(n, channels, k int) int {
	if channels < 1 || k < 0 || k >= channels || k >= n {
		return 0
	}
	return int((uint64(n-k)-1)/uint64(channels) + 1)
}
