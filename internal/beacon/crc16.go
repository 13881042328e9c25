package beacon

// CRC16CCITT computes CRC-16/CCITT (poly 0x1021, init 0x0000, no input/
// output reflection, no final XOR) over data. No third-party CRC library in
// this codebase's dependency pack implements this variant, so it is
// hand-rolled per the documented polynomial.
func CRC16CCITT(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
