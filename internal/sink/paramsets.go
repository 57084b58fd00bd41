package sink

import (
	"bytes"

	"github.com/smazurov/framefeed/internal/h264"
)

// parameterSets remembers the latest SPS/PPS seen in the stream and injects
// them before every IDR that arrives without in-band parameter sets, so a
// receiver joining mid-stream can start decoding at the next key frame.
type parameterSets struct {
	sps, pps []byte
}

// apply returns frame with cached SPS/PPS prepended when needed and updates the cache.
func (p *parameterSets) apply(frame []byte) []byte {
	nalus := h264.SplitAnnexB(frame)
	if len(nalus) == 0 {
		return frame
	}

	hasPS := false
	hasIDR := false
	for _, nal := range nalus {
		switch h264.NALType(nal) {
		case h264.NALTypeSPS:
			p.sps = bytes.Clone(nal)
			hasPS = true
		case h264.NALTypePPS:
			p.pps = bytes.Clone(nal)
			hasPS = true
		case h264.NALTypeIDR:
			hasIDR = true
		}
	}

	if !hasIDR || hasPS || p.sps == nil || p.pps == nil {
		return frame
	}

	out := h264.JoinAnnexB(p.sps, p.pps)
	return append(out, frame...)
}
