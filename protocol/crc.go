package protocol

// CRCFunc computes the checksum appended to every frame.
type CRCFunc func(data []byte) uint32

const (
	crcPolynomial = 0x04C11DB7
	crcInitial    = 0xFFFFFFFF
)

var crcTable = makeCRCTable()

func makeCRCTable() (t [256]uint32) {
	for i := range t {
		crc := uint32(i) << 24
		for b := 0; b < 8; b++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}

// CRC32 is CRC-32/MPEG-2: MSB first, no reflection, no final xor. This is
// the reset configuration of the board's hardware CRC unit, so both ends agree
// whichever implementation computes it.
func CRC32(data []byte) uint32 {
	crc := uint32(crcInitial)
	for _, b := range data {
		crc = (crc << 8) ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}
