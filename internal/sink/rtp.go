// Package sink provides frame record consumers: RTP over UDP, raw Annex-B file and log.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"

	"github.com/smazurov/framefeed/internal/feed"
	"github.com/smazurov/framefeed/internal/logging"
)

const (
	// h264ClockRate is the RTP clock for video (RFC 6184).
	h264ClockRate = 90000
	defaultMTU    = 1200
	// DefaultPayloadType is the dynamic payload type used for H.264.
	DefaultPayloadType = 96
)

// RTPOptions configures an RTPSink.
type RTPOptions struct {
	Address     string // host:port
	PayloadType uint8
	MTU         uint16
	SSRC        uint32 // 0 = random
}

// RTPSink packetizes frames as RFC 6184 H.264 RTP and sends them over UDP.
type RTPSink struct {
	conn       net.Conn
	packetizer rtp.Packetizer
	params     parameterSets
	ssrc       uint32
	logger     *slog.Logger

	mu      sync.Mutex
	packets uint64
	bytes   uint64
}

// NewRTPSink dials the destination and prepares the packetizer.
func NewRTPSink(opts RTPOptions) (*RTPSink, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("rtp sink address is required")
	}
	pt := opts.PayloadType
	if pt == 0 {
		pt = DefaultPayloadType
	}
	mtu := opts.MTU
	if mtu == 0 {
		mtu = defaultMTU
	}
	ssrc := opts.SSRC
	if ssrc == 0 {
		ssrc = rand.Uint32()
	}

	conn, err := net.Dial("udp", opts.Address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.Address, err)
	}

	s := &RTPSink{
		conn: conn,
		packetizer: rtp.NewPacketizer(mtu, pt, ssrc, &codecs.H264Payloader{},
			rtp.NewRandomSequencer(), h264ClockRate),
		ssrc:   ssrc,
		logger: logging.GetLogger("sink"),
	}
	s.logger.Info("RTP sink ready", "address", opts.Address, "payload_type", pt, "ssrc", ssrc, "mtu", mtu)
	return s, nil
}

// OnFrame implements feed.Sink.
func (s *RTPSink) OnFrame(ctx context.Context, record feed.FrameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	frame := s.params.apply(record.Payload)
	samples := uint32(record.Duration * h264ClockRate / time.Second)

	packets := s.packetizer.Packetize(frame, samples)
	if len(packets) == 0 {
		return feed.NewError(feed.ErrCodeSink, "frame produced no RTP packets", nil)
	}

	for _, pkt := range packets {
		raw, err := pkt.Marshal()
		if err != nil {
			return feed.NewError(feed.ErrCodeSink, "marshal rtp packet", err)
		}
		if _, err := s.conn.Write(raw); err != nil {
			return feed.NewError(feed.ErrCodeSink, "send rtp packet", err)
		}
		s.packets++
		s.bytes += uint64(len(raw))
	}

	s.logger.Debug("Frame sent",
		"sequence", record.Sequence,
		"key_frame", record.IsKeyFrame(),
		"packets", len(packets),
		"bytes", len(frame))
	return nil
}

// Stats returns the number of packets and bytes sent.
func (s *RTPSink) Stats() (packets, bytes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packets, s.bytes
}

// Close closes the UDP socket.
func (s *RTPSink) Close() error {
	return s.conn.Close()
}
