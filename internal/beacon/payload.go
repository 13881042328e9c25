package beacon

import (
	"encoding/binary"
	"fmt"
)

// rfuSizes maps beacon spreading factor to (RFU1, RFU2) byte counts, per
// the reference forwarder's beacon_RFU1_size/beacon_RFU2_size table.
var rfuSizes = map[int][2]int{
	8:  {1, 3},
	9:  {2, 0},
	10: {3, 1},
	12: {5, 3},
}

const (
	latLonScale = 1 << 23
	latLonClamp = 0x7FFFFF
)

// fixedFieldsSize counts the fixed fields that follow RFU1 in a beacon payload:
// time(4) + crc1(2) + infodesc(1) + lat(3) + lon(3) + crc2(2) = 15 bytes,
// bracketed by the SF-dependent RFU1/RFU2 padding.
const fixedFieldsSize = 15

// Size returns the total beacon payload size, in bytes, for a given
// spreading factor.
func Size(sf int) (int, error) {
	rfu, ok := rfuSizes[sf]
	if !ok {
		return 0, fmt.Errorf("beacon: unsupported spreading factor SF%d", sf)
	}
	return rfu[0] + fixedFieldsSize + rfu[1], nil
}

func encodeCoord(degrees, maxDegrees float64) [3]byte {
	v := int32(degrees * latLonScale / maxDegrees)
	if v > latLonClamp {
		v = latLonClamp
	}
	if v < -latLonClamp-1 {
		v = -latLonClamp - 1
	}
	var b [3]byte
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	return b
}

// Build assembles a complete beacon payload for the given spreading factor.
// gpsSeconds is the GPS time (seconds) this beacon announces; lat/lon are
// decimal degrees.
func Build(sf int, gpsSeconds uint32, infodesc uint8, lat, lon float64) ([]byte, error) {
	rfu, ok := rfuSizes[sf]
	if !ok {
		return nil, fmt.Errorf("beacon: unsupported spreading factor SF%d", sf)
	}
	rfu1n, rfu2n := rfu[0], rfu[1]

	buf := make([]byte, rfu1n+4+2+1+3+3+rfu2n+2)
	offset := rfu1n // RFU1 is left zeroed

	binary.LittleEndian.PutUint32(buf[offset:offset+4], gpsSeconds)
	crc1 := CRC16CCITT(buf[:offset+4])
	binary.LittleEndian.PutUint16(buf[offset+4:offset+6], crc1)

	infoOffset := offset + 6
	buf[infoOffset] = infodesc

	latBytes := encodeCoord(lat, 90)
	lonBytes := encodeCoord(lon, 180)
	copy(buf[infoOffset+1:infoOffset+4], latBytes[:])
	copy(buf[infoOffset+4:infoOffset+7], lonBytes[:])
	// RFU2 (zeroed) occupies buf[infoOffset+7 : infoOffset+7+rfu2n]

	crc2Start := infoOffset
	crc2End := infoOffset + 7 + rfu2n
	crc2 := CRC16CCITT(buf[crc2Start:crc2End])
	binary.LittleEndian.PutUint16(buf[crc2End:crc2End+2], crc2)

	return buf, nil
}
