package video

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/mp4"

	"deskbridge/internal/domain"
)

const (
	muxTimescale = 90000
	muxTrackID   = 1
)

var (
	ErrNoNALUs              = errors.New("video: chunk has no NAL units")
	ErrAwaitingParameterSet = errors.New("video: no SPS/PPS received yet")
	ErrAwaitingKeyframe     = errors.New("video: waiting for keyframe")
)

// Muxer packages an H.264 Annex-B stream as fragmented MP4: one init segment
// whenever the parameter sets change, then one single-sample fragment per
// chunk.
type Muxer struct {
	sps, pps  []byte
	sawKey    bool
	seq       uint32
	decodeT   uint64
	sampleDur uint32

	width, height int
}

// NewMuxer returns a muxer stamping samples at the given frame interval.
func NewMuxer(frameInterval time.Duration) *Muxer {
	dur := uint32(math.Round(frameInterval.Seconds() * muxTimescale))
	if dur == 0 {
		dur = muxTimescale / 30
	}
	return &Muxer{seq: 1, sampleDur: dur}
}

// Size returns the coded picture size from the active SPS.
func (m *Muxer) Size() (int, int) { return m.width, m.height }

// Fragments returns how many media fragments have been produced.
func (m *Muxer) Fragments() uint32 { return m.seq - 1 }

// Timescale returns the media timescale of emitted segments.
func (m *Muxer) Timescale() uint32 { return muxTimescale }

// Push returns the segments to append for chunk, in order.
func (m *Muxer) Push(chunk domain.EncodedMediaChunk) ([][]byte, error) {
	nalus := avc.ExtractNalusFromByteStream(chunk.Data)
	if len(nalus) == 0 {
		return nil, ErrNoNALUs
	}
	var (
		reinit bool
		idr    bool
		sample []byte
	)
	for _, n := range nalus {
		if len(n) == 0 {
			continue
		}
		switch avc.GetNaluType(n[0]) {
		case avc.NALU_SPS:
			if !bytes.Equal(n, m.sps) {
				m.sps = append([]byte(nil), n...)
				reinit = true
			}
		case avc.NALU_PPS:
			if !bytes.Equal(n, m.pps) {
				m.pps = append([]byte(nil), n...)
				reinit = true
			}
		case avc.NALU_AUD:
		default:
			if avc.GetNaluType(n[0]) == avc.NALU_IDR {
				idr = true
			}
			sample = binary.BigEndian.AppendUint32(sample, uint32(len(n)))
			sample = append(sample, n...)
		}
	}
	if m.sps == nil || m.pps == nil {
		return nil, ErrAwaitingParameterSet
	}

	var out [][]byte
	if reinit {
		seg, err := m.initSegment()
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	if len(sample) == 0 {
		return out, nil
	}
	key := idr || chunk.IsKeyframe
	if !key && !m.sawKey {
		return out, ErrAwaitingKeyframe
	}
	if key {
		m.sawKey = true
	}
	seg, err := m.fragment(sample, key)
	if err != nil {
		return out, err
	}
	return append(out, seg), nil
}

func (m *Muxer) initSegment() ([]byte, error) {
	sps, err := avc.ParseSPSNALUnit(m.sps, false)
	if err != nil {
		return nil, fmt.Errorf("video: parse SPS: %w", err)
	}
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(muxTimescale, "video", "und")
	if err := init.Moov.Trak.SetAVCDescriptor("avc1", [][]byte{m.sps}, [][]byte{m.pps}, true); err != nil {
		return nil, fmt.Errorf("video: avc descriptor: %w", err)
	}
	var buf bytes.Buffer
	if err := init.Encode(&buf); err != nil {
		return nil, fmt.Errorf("video: encode init: %w", err)
	}
	m.width, m.height = int(sps.Width), int(sps.Height)
	return buf.Bytes(), nil
}

func (m *Muxer) fragment(sample []byte, key bool) ([]byte, error) {
	frag, err := mp4.CreateFragment(m.seq, muxTrackID)
	if err != nil {
		return nil, fmt.Errorf("video: create fragment: %w", err)
	}
	flags := mp4.NonSyncSampleFlags
	if key {
		flags = mp4.SyncSampleFlags
	}
	frag.AddFullSample(mp4.FullSample{
		Sample: mp4.Sample{
			Flags: flags,
			Dur:   m.sampleDur,
			Size:  uint32(len(sample)),
		},
		DecodeTime: m.decodeT,
		Data:       sample,
	})
	var buf bytes.Buffer
	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("video: encode fragment: %w", err)
	}
	m.seq++
	m.decodeT += uint64(m.sampleDur)
	return buf.Bytes(), nil
}
