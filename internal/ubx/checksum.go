package ubx

// Checksum computes the UBX 8-bit Fletcher checksum over data.
//
// Two wrapping accumulators: ckA sums every byte, ckB sums every
// intermediate value of ckA. Weak by modern standards, but it is what the
// receiver speaks and it is adequate for low-bandwidth link integrity.
func Checksum(data []byte) (ckA, ckB byte) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}
