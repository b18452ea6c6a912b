package session

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"deskbridge/internal/domain"
	"deskbridge/internal/protocol/wire"
)

// AudioCodec is the codec of the peer's audio stream.
const AudioCodec = domain.CodecOpus

var defaultAudioFormat = domain.AudioFormat{SampleRate: 48000, Channels: 2}

// onStream routes one message received while streaming.
func (c *Controller) onStream(msg *wire.Message) error {
	switch {
	case msg.VideoFrame != nil:
		c.onVideo(msg.VideoFrame)
	case msg.AudioFrame != nil:
		c.onAudio(msg.AudioFrame.Data)
	case msg.CursorData != nil:
		if err := c.renderer.UpdateCursorShape(msg.CursorData); err != nil {
			c.logger().WithError(err).Debug("bad cursor shape")
		}
	case msg.CursorID != nil:
		if err := c.renderer.SelectCursor(*msg.CursorID); err != nil {
			c.logger().WithField("cursor", *msg.CursorID).Debug("unknown cursor id")
		}
	case msg.CursorPosition != nil:
		c.renderer.SetCursorPosition(int(msg.CursorPosition.X), int(msg.CursorPosition.Y))
	case msg.TestDelay != nil:
		c.echoDelay(msg.TestDelay)
	case msg.Misc != nil:
		return c.onMisc(msg.Misc)
	default:
		c.logger().WithField("message", msg.Kind()).Debug("ignoring message")
	}
	return nil
}

func (c *Controller) onVideo(vf *wire.VideoFrame) {
	if !c.videoOn || c.videoCodec != vf.Codec {
		c.videoOn, c.videoCodec = true, vf.Codec
		if err := c.video.Init(vf.Codec); err != nil {
			c.logger().WithError(err).WithField("codec", vf.Codec).Warn("video init failed")
		}
	}
	for _, f := range vf.Frames {
		chunk := domain.EncodedMediaChunk{
			Data:              f.Data,
			IsKeyframe:        f.Key,
			Codec:             vf.Codec,
			PresentationOrder: f.PTS,
		}
		if err := c.video.Decode(chunk); err != nil {
			c.logger().WithError(err).Debug("video chunk dropped")
		}
	}
}

func (c *Controller) onAudio(data []byte) {
	if !c.audioOn {
		c.initAudio(defaultAudioFormat)
	}
	if err := c.audio.Decode(data); err != nil {
		c.logger().WithError(err).Debug("audio frame dropped")
	}
}

func (c *Controller) initAudio(f domain.AudioFormat) {
	c.audioOn = true
	if err := c.audio.Init(AudioCodec, f); err != nil {
		c.logger().WithError(err).Warn("audio init failed")
		return
	}
	c.logger().WithFields(logrus.Fields{"rate": f.SampleRate, "channels": f.Channels}).Debug("audio configured")
}

func (c *Controller) onMisc(m *wire.Misc) error {
	switch {
	case m.SwitchDisplay != nil:
		sd := m.SwitchDisplay
		w, h := int(sd.Width), int(sd.Height)
		c.renderer.SetRemoteSize(w, h)
		if c.peer != nil {
			c.peer.CurrentDisplay = int(sd.Display)
		}
		c.emit(Event{Kind: EventDisplayChanged, Width: w, Height: h})
		c.requestKeyframe()
	case m.AudioFormat != nil:
		c.initAudio(domain.AudioFormat{
			SampleRate: int(m.AudioFormat.SampleRate),
			Channels:   int(m.AudioFormat.Channels),
		})
	case m.CloseReason != nil:
		return c.fail(KindPeerClosed, fmt.Errorf("%w: %s", ErrPeerClosed, *m.CloseReason))
	}
	return nil
}

// echoDelay answers the peer's latency probe unchanged.
func (c *Controller) echoDelay(td *wire.TestDelay) {
	if td.FromClient {
		return
	}
	echo := *td
	c.send(&wire.Message{TestDelay: &echo})
}
