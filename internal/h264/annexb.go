// Package h264 provides minimal Annex-B elementary stream inspection.
package h264

import "strconv"

// NAL unit types used by the pipeline.
const (
	NALTypeSlice = 1
	NALTypeIDR   = 5
	NALTypeSEI   = 6
	NALTypeSPS   = 7
	NALTypePPS   = 8
	NALTypeAUD   = 9
)

// NALType returns the nal_unit_type of a NAL unit without start code.
func NALType(nal []byte) uint8 {
	if len(nal) == 0 {
		return 0
	}
	return nal[0] & 0x1F
}

// SplitAnnexB splits an Annex-B byte stream into NAL units, stripping start codes.
// Returns nil if the stream contains no start code.
func SplitAnnexB(data []byte) [][]byte {
	var nalus [][]byte

	start := -1
	i := 0
	for i+3 <= len(data) {
		// 3-byte start code 00 00 01 (a 4-byte code ends with the same three bytes)
		if data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 {
			if start >= 0 {
				nalus = appendNAL(nalus, data[start:trimZeros(data, start, i)])
			}
			i += 3
			start = i
			continue
		}
		i++
	}

	if start >= 0 && start < len(data) {
		nalus = appendNAL(nalus, data[start:])
	}

	return nalus
}

// trimZeros returns the end of the NAL unit that precedes a start code at pos,
// dropping the leading zero of a 4-byte start code and trailing_zero_8bits.
func trimZeros(data []byte, from, pos int) int {
	end := pos
	for end > from && data[end-1] == 0 {
		end--
	}
	return end
}

func appendNAL(nalus [][]byte, nal []byte) [][]byte {
	if len(nal) == 0 {
		return nalus
	}
	return append(nalus, nal)
}

// HasStartCode reports whether data begins with an Annex-B start code.
func HasStartCode(data []byte) bool {
	if len(data) >= 3 && data[0] == 0 && data[1] == 0 && data[2] == 1 {
		return true
	}
	return len(data) >= 4 && data[0] == 0 && data[1] == 0 && data[2] == 0 && data[3] == 1
}

// Types returns the NAL unit types of an Annex-B stream in order.
func Types(data []byte) []uint8 {
	nalus := SplitAnnexB(data)
	types := make([]uint8, 0, len(nalus))
	for _, nal := range nalus {
		types = append(types, NALType(nal))
	}
	return types
}

// ContainsIDR reports whether the stream carries an IDR slice.
func ContainsIDR(data []byte) bool {
	for _, t := range Types(data) {
		if t == NALTypeIDR {
			return true
		}
	}
	return false
}

// ParameterSets returns the first SPS and PPS found in the stream.
func ParameterSets(data []byte) (sps, pps []byte) {
	for _, nal := range SplitAnnexB(data) {
		switch NALType(nal) {
		case NALTypeSPS:
			if sps == nil {
				sps = nal
			}
		case NALTypePPS:
			if pps == nil {
				pps = nal
			}
		}
	}
	return sps, pps
}

// JoinAnnexB joins NAL units into an Annex-B stream with 4-byte start codes.
func JoinAnnexB(nalus ...[]byte) []byte {
	size := 0
	for _, nal := range nalus {
		size += 4 + len(nal)
	}
	out := make([]byte, 0, size)
	for _, nal := range nalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, nal...)
	}
	return out
}

var nalTypeNames = map[uint8]string{
	NALTypeSlice: "slice",
	NALTypeIDR:   "idr",
	NALTypeSEI:   "sei",
	NALTypeSPS:   "sps",
	NALTypePPS:   "pps",
	NALTypeAUD:   "aud",
}

// TypeName returns a short name for a NAL unit type, or its number if unnamed.
func TypeName(t uint8) string {
	if name, ok := nalTypeNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}
