package sink

import (
	"fmt"
	"io"
	"strings"

	"github.com/smazurov/framefeed/internal/feed"
)

// Sink types.
const (
	TypeRTP  = "rtp"
	TypeFile = "file"
	TypeLog  = "log"
)

// Options selects and configures the sink.
type Options struct {
	Type        string
	Address     string // rtp
	PayloadType uint8  // rtp
	MTU         uint16 // rtp
	Path        string // file
}

// Sink is a feed.Sink that owns resources.
type Sink interface {
	feed.Sink
	io.Closer
}

// New builds the sink named by opts.Type.
func New(opts Options) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Type)) {
	case TypeRTP:
		s, err := NewRTPSink(RTPOptions{
			Address:     opts.Address,
			PayloadType: opts.PayloadType,
			MTU:         opts.MTU,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case TypeFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("file sink path is required")
		}
		s, err := NewFileSink(opts.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "", TypeLog:
		return nopCloser{NewLogSink()}, nil
	default:
		return nil, fmt.Errorf("unknown sink type %q (want rtp, file or log)", opts.Type)
	}
}

type nopCloser struct {
	feed.Sink
}

func (nopCloser) Close() error { return nil }
