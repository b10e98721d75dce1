package util

// Zeroize overwrites data with zeros.
func Zeroize(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
