package n64

import "github.com/snksoft/crc"

// CRC-32/CKSUM: polynomial 0x04C11DB7, MSB first, initial value 0, final
// XOR 0xFFFFFFFF. The message length is not folded in.
var cksumParams = &crc.Parameters{
	Width:      32,
	Polynomial: 0x04C11DB7,
	ReflectIn:  false,
	ReflectOut: false,
	Init:       0x00000000,
	FinalXor:   0xFFFFFFFF,
}

var cksumTable = crc.NewTable(cksumParams)

// Cksum computes the CRC used to fingerprint IPL3 boot code.
func Cksum(data []byte) uint32 {
	return uint32(cksumTable.CalculateCRC(data))
}
