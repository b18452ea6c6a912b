package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"deskbridge/internal/domain"
)

// SignedID carries the peer's signed identity in combined format.
type SignedID struct {
	ID []byte
}

// PublicKey is the key-exchange reply: our ephemeral public key and the
// symmetric key sealed to the peer.
type PublicKey struct {
	AsymmetricValue []byte
	SymmetricValue  []byte
}

// TestDelay is the peer's latency probe; the client echoes it back.
type TestDelay struct {
	Time          int64
	FromClient    bool
	LastDelay     uint32
	TargetBitrate uint32
}

// EncodedVideoFrame is one compressed access unit.
type EncodedVideoFrame struct {
	Data []byte
	Key  bool
	PTS  int64
}

// VideoFrame groups encoded frames of a single codec for one display.
type VideoFrame struct {
	Codec   domain.Codec
	Frames  []EncodedVideoFrame
	Display int32
}

// LoginRequest authenticates against the peer after the Hash challenge.
type LoginRequest struct {
	Username         string
	Password         []byte
	MyID             string
	MyName           string
	VideoAckRequired bool
	SessionID        uint64
	Version          string
	MyPlatform       string
}

// DisplayInfo describes one remote monitor.
type DisplayInfo struct {
	X              int32
	Y              int32
	Width          int32
	Height         int32
	Name           string
	Online         bool
	CursorEmbedded bool
}

// PeerInfo is the successful login payload.
type PeerInfo struct {
	Username       string
	Hostname       string
	Platform       string
	Displays       []DisplayInfo
	CurrentDisplay int32
	Version        string
}

// LoginResponse carries either an error string or PeerInfo.
type LoginResponse struct {
	Error    string
	PeerInfo *PeerInfo
}

// Hash is the password challenge.
type Hash struct {
	Salt      string
	Challenge string
}

// MouseEvent encodes type and button in Mask.
type MouseEvent struct {
	Mask      int32
	X         int32
	Y         int32
	Modifiers []int32
}

// AudioFrame is one encoded audio packet.
type AudioFrame struct {
	Data []byte
}

// CursorData defines a cursor image; Colors is zstd-compressed RGBA.
type CursorData struct {
	ID     uint64
	HotX   int32
	HotY   int32
	Width  int32
	Height int32
	Colors []byte
}

// CursorPosition is the remote pointer position in remote pixels.
type CursorPosition struct {
	X int32
	Y int32
}

// KeyEvent carries exactly one of ControlKey, Chr, Unicode or Seq.
type KeyEvent struct {
	Down       bool
	Press      bool
	ControlKey int32
	Chr        uint32
	Unicode    uint32
	Seq        string
	Modifiers  []int32
	Mode       int32
}

// SwitchDisplay announces the active display geometry.
type SwitchDisplay struct {
	Display int32
	X       int32
	Y       int32
	Width   int32
	Height  int32
}

// AudioFormat announces the peer audio stream parameters.
type AudioFormat struct {
	SampleRate uint32
	Channels   uint32
}

// Misc is the control union. Exactly one member is set.
type Misc struct {
	SwitchDisplay *SwitchDisplay
	AudioFormat   *AudioFormat
	CloseReason   *string
	RefreshVideo  bool
}

// Message is the top-level union on the relay link. Exactly one member is set
// on encode; on decode Unknown records a member this package does not model.
type Message struct {
	SignedID       *SignedID
	PublicKey      *PublicKey
	TestDelay      *TestDelay
	VideoFrame     *VideoFrame
	LoginRequest   *LoginRequest
	LoginResponse  *LoginResponse
	Hash           *Hash
	MouseEvent     *MouseEvent
	AudioFrame     *AudioFrame
	CursorData     *CursorData
	CursorPosition *CursorPosition
	CursorID       *uint64
	KeyEvent       *KeyEvent
	Misc           *Misc

	Unknown protowire.Number
}

// Kind names the set member, for logging.
func (m *Message) Kind() string {
	switch {
	case m.SignedID != nil:
		return "signed_id"
	case m.PublicKey != nil:
		return "public_key"
	case m.TestDelay != nil:
		return "test_delay"
	case m.VideoFrame != nil:
		return "video_frame"
	case m.LoginRequest != nil:
		return "login_request"
	case m.LoginResponse != nil:
		return "login_response"
	case m.Hash != nil:
		return "hash"
	case m.MouseEvent != nil:
		return "mouse_event"
	case m.AudioFrame != nil:
		return "audio_frame"
	case m.CursorData != nil:
		return "cursor_data"
	case m.CursorPosition != nil:
		return "cursor_position"
	case m.CursorID != nil:
		return "cursor_id"
	case m.KeyEvent != nil:
		return "key_event"
	case m.Misc != nil:
		return "misc"
	default:
		return "unknown"
	}
}

// Marshal encodes the first set union member.
func (m *Message) Marshal() []byte {
	var e encoder
	switch {
	case m.SignedID != nil:
		var s encoder
		s.bytes(1, m.SignedID.ID)
		e.message(msgSignedID, s.b)
	case m.PublicKey != nil:
		var s encoder
		s.bytes(1, m.PublicKey.AsymmetricValue)
		s.bytes(2, m.PublicKey.SymmetricValue)
		e.message(msgPublicKey, s.b)
	case m.TestDelay != nil:
		e.message(msgTestDelay, m.TestDelay.marshal())
	case m.VideoFrame != nil:
		e.message(msgVideoFrame, m.VideoFrame.marshal())
	case m.LoginRequest != nil:
		e.message(msgLoginRequest, m.LoginRequest.marshal())
	case m.LoginResponse != nil:
		e.message(msgLoginResponse, m.LoginResponse.marshal())
	case m.Hash != nil:
		var s encoder
		s.string(1, m.Hash.Salt)
		s.string(2, m.Hash.Challenge)
		e.message(msgHash, s.b)
	case m.MouseEvent != nil:
		var s encoder
		s.int32(1, m.MouseEvent.Mask)
		s.sint32(2, m.MouseEvent.X)
		s.sint32(3, m.MouseEvent.Y)
		s.packed(4, m.MouseEvent.Modifiers)
		e.message(msgMouseEvent, s.b)
	case m.AudioFrame != nil:
		var s encoder
		s.bytes(1, m.AudioFrame.Data)
		e.message(msgAudioFrame, s.b)
	case m.CursorData != nil:
		e.message(msgCursorData, m.CursorData.marshal())
	case m.CursorPosition != nil:
		var s encoder
		s.sint32(1, m.CursorPosition.X)
		s.sint32(2, m.CursorPosition.Y)
		e.message(msgCursorPosition, s.b)
	case m.CursorID != nil:
		e.b = protowire.AppendTag(e.b, msgCursorID, protowire.VarintType)
		e.b = protowire.AppendVarint(e.b, *m.CursorID)
	case m.KeyEvent != nil:
		e.message(msgKeyEvent, m.KeyEvent.marshal())
	case m.Misc != nil:
		e.message(msgMisc, m.Misc.marshal())
	}
	return e.b
}

// UnmarshalMessage decodes a Message. Members outside the modelled subset are
// skipped and reported through Unknown.
func UnmarshalMessage(b []byte) (*Message, error) {
	m := &Message{}
	err := walk(b, func(f field) error {
		if f.num == msgCursorID && f.isVarint() {
			id := f.x
			m.CursorID = &id
			return nil
		}
		if !f.isBytes() {
			m.Unknown = f.num
			return nil
		}
		var err error
		switch f.num {
		case msgSignedID:
			m.SignedID = &SignedID{}
			err = walk(f.v, func(g field) error {
				if g.num == 1 {
					m.SignedID.ID = g.clone()
				}
				return nil
			})
		case msgPublicKey:
			m.PublicKey = &PublicKey{}
			err = walk(f.v, func(g field) error {
				switch g.num {
				case 1:
					m.PublicKey.AsymmetricValue = g.clone()
				case 2:
					m.PublicKey.SymmetricValue = g.clone()
				}
				return nil
			})
		case msgTestDelay:
			m.TestDelay, err = unmarshalTestDelay(f.v)
		case msgVideoFrame:
			m.VideoFrame, err = unmarshalVideoFrame(f.v)
		case msgLoginRequest:
			m.LoginRequest, err = unmarshalLoginRequest(f.v)
		case msgLoginResponse:
			m.LoginResponse, err = unmarshalLoginResponse(f.v)
		case msgHash:
			m.Hash = &Hash{}
			err = walk(f.v, func(g field) error {
				switch g.num {
				case 1:
					m.Hash.Salt = g.str()
				case 2:
					m.Hash.Challenge = g.str()
				}
				return nil
			})
		case msgMouseEvent:
			m.MouseEvent, err = unmarshalMouseEvent(f.v)
		case msgAudioFrame:
			m.AudioFrame = &AudioFrame{}
			err = walk(f.v, func(g field) error {
				if g.num == 1 {
					m.AudioFrame.Data = g.clone()
				}
				return nil
			})
		case msgCursorData:
			m.CursorData, err = unmarshalCursorData(f.v)
		case msgCursorPosition:
			m.CursorPosition = &CursorPosition{}
			err = walk(f.v, func(g field) error {
				switch g.num {
				case 1:
					m.CursorPosition.X = g.sint32()
				case 2:
					m.CursorPosition.Y = g.sint32()
				}
				return nil
			})
		case msgKeyEvent:
			m.KeyEvent, err = unmarshalKeyEvent(f.v)
		case msgMisc:
			m.Misc, err = unmarshalMisc(f.v)
		default:
			m.Unknown = f.num
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (t *TestDelay) marshal() []byte {
	var e encoder
	e.int64(1, t.Time)
	e.bool(2, t.FromClient)
	e.uvarint(3, uint64(t.LastDelay))
	e.uvarint(4, uint64(t.TargetBitrate))
	return e.b
}

func unmarshalTestDelay(b []byte) (*TestDelay, error) {
	t := &TestDelay{}
	return t, walk(b, func(f field) error {
		switch f.num {
		case 1:
			t.Time = f.int64()
		case 2:
			t.FromClient = f.bool()
		case 3:
			t.LastDelay = uint32(f.x)
		case 4:
			t.TargetBitrate = uint32(f.x)
		}
		return nil
	})
}

func videoFieldFor(c domain.Codec) protowire.Number {
	switch c {
	case domain.CodecVP9:
		return videoVP9s
	case domain.CodecH264:
		return videoH264s
	case domain.CodecH265:
		return videoH265s
	case domain.CodecVP8:
		return videoVP8s
	case domain.CodecAV1:
		return videoAV1s
	default:
		return 0
	}
}

func codecForVideoField(n protowire.Number) domain.Codec {
	switch n {
	case videoVP9s:
		return domain.CodecVP9
	case videoH264s:
		return domain.CodecH264
	case videoH265s:
		return domain.CodecH265
	case videoVP8s:
		return domain.CodecVP8
	case videoAV1s:
		return domain.CodecAV1
	default:
		return domain.CodecUnknown
	}
}

func (v *VideoFrame) marshal() []byte {
	var e encoder
	if num := videoFieldFor(v.Codec); num != 0 {
		var frames encoder
		for _, f := range v.Frames {
			var s encoder
			s.bytes(1, f.Data)
			s.bool(2, f.Key)
			s.int64(3, f.PTS)
			frames.message(1, s.b)
		}
		e.message(num, frames.b)
	}
	e.int32(videoDisp, v.Display)
	return e.b
}

func unmarshalVideoFrame(b []byte) (*VideoFrame, error) {
	v := &VideoFrame{}
	return v, walk(b, func(f field) error {
		if f.num == videoDisp {
			v.Display = f.int32()
			return nil
		}
		codec := codecForVideoField(f.num)
		if codec == domain.CodecUnknown || !f.isBytes() {
			return nil
		}
		v.Codec = codec
		return walk(f.v, func(g field) error {
			if g.num != 1 || !g.isBytes() {
				return nil
			}
			var ef EncodedVideoFrame
			err := walk(g.v, func(h field) error {
				switch h.num {
				case 1:
					ef.Data = h.clone()
				case 2:
					ef.Key = h.bool()
				case 3:
					ef.PTS = h.int64()
				}
				return nil
			})
			if err != nil {
				return err
			}
			v.Frames = append(v.Frames, ef)
			return nil
		})
	})
}

func (l *LoginRequest) marshal() []byte {
	var e encoder
	e.string(1, l.Username)
	e.bytes(2, l.Password)
	e.string(4, l.MyID)
	e.string(5, l.MyName)
	e.bool(9, l.VideoAckRequired)
	e.uvarint(10, l.SessionID)
	e.string(11, l.Version)
	e.string(13, l.MyPlatform)
	return e.b
}

func unmarshalLoginRequest(b []byte) (*LoginRequest, error) {
	l := &LoginRequest{}
	return l, walk(b, func(f field) error {
		switch f.num {
		case 1:
			l.Username = f.str()
		case 2:
			l.Password = f.clone()
		case 4:
			l.MyID = f.str()
		case 5:
			l.MyName = f.str()
		case 9:
			l.VideoAckRequired = f.bool()
		case 10:
			l.SessionID = f.x
		case 11:
			l.Version = f.str()
		case 13:
			l.MyPlatform = f.str()
		}
		return nil
	})
}

func (l *LoginResponse) marshal() []byte {
	var e encoder
	if l.PeerInfo != nil {
		e.message(2, l.PeerInfo.marshal())
	} else {
		e.b = protowire.AppendTag(e.b, 1, protowire.BytesType)
		e.b = protowire.AppendString(e.b, l.Error)
	}
	return e.b
}

func unmarshalLoginResponse(b []byte) (*LoginResponse, error) {
	l := &LoginResponse{}
	return l, walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			l.Error = f.str()
		case 2:
			l.PeerInfo, err = unmarshalPeerInfo(f.v)
		}
		return err
	})
}

func (p *PeerInfo) marshal() []byte {
	var e encoder
	e.string(1, p.Username)
	e.string(2, p.Hostname)
	e.string(3, p.Platform)
	for _, d := range p.Displays {
		var s encoder
		s.sint32(1, d.X)
		s.sint32(2, d.Y)
		s.int32(3, d.Width)
		s.int32(4, d.Height)
		s.string(5, d.Name)
		s.bool(6, d.Online)
		s.bool(7, d.CursorEmbedded)
		e.message(4, s.b)
	}
	e.int32(5, p.CurrentDisplay)
	e.string(7, p.Version)
	return e.b
}

func unmarshalPeerInfo(b []byte) (*PeerInfo, error) {
	p := &PeerInfo{}
	return p, walk(b, func(f field) error {
		switch f.num {
		case 1:
			p.Username = f.str()
		case 2:
			p.Hostname = f.str()
		case 3:
			p.Platform = f.str()
		case 4:
			var d DisplayInfo
			err := walk(f.v, func(g field) error {
				switch g.num {
				case 1:
					d.X = g.sint32()
				case 2:
					d.Y = g.sint32()
				case 3:
					d.Width = g.int32()
				case 4:
					d.Height = g.int32()
				case 5:
					d.Name = g.str()
				case 6:
					d.Online = g.bool()
				case 7:
					d.CursorEmbedded = g.bool()
				}
				return nil
			})
			if err != nil {
				return err
			}
			p.Displays = append(p.Displays, d)
		case 5:
			p.CurrentDisplay = f.int32()
		case 7:
			p.Version = f.str()
		}
		return nil
	})
}

func unmarshalMouseEvent(b []byte) (*MouseEvent, error) {
	m := &MouseEvent{}
	return m, walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			m.Mask = f.int32()
		case 2:
			m.X = f.sint32()
		case 3:
			m.Y = f.sint32()
		case 4:
			m.Modifiers, err = repeatedInt32(f, m.Modifiers)
		}
		return err
	})
}

func (c *CursorData) marshal() []byte {
	var e encoder
	e.uvarint(1, c.ID)
	e.sint32(2, c.HotX)
	e.sint32(3, c.HotY)
	e.int32(4, c.Width)
	e.int32(5, c.Height)
	e.bytes(6, c.Colors)
	return e.b
}

func unmarshalCursorData(b []byte) (*CursorData, error) {
	c := &CursorData{}
	return c, walk(b, func(f field) error {
		switch f.num {
		case 1:
			c.ID = f.x
		case 2:
			c.HotX = f.sint32()
		case 3:
			c.HotY = f.sint32()
		case 4:
			c.Width = f.int32()
		case 5:
			c.Height = f.int32()
		case 6:
			c.Colors = f.clone()
		}
		return nil
	})
}

func (k *KeyEvent) marshal() []byte {
	var e encoder
	e.bool(1, k.Down)
	e.bool(2, k.Press)
	switch {
	case k.ControlKey != KeyUnknown:
		e.int32(3, k.ControlKey)
	case k.Chr != 0:
		e.uvarint(4, uint64(k.Chr))
	case k.Unicode != 0:
		e.uvarint(5, uint64(k.Unicode))
	case k.Seq != "":
		e.string(6, k.Seq)
	}
	e.packed(8, k.Modifiers)
	e.int32(9, k.Mode)
	return e.b
}

func unmarshalKeyEvent(b []byte) (*KeyEvent, error) {
	k := &KeyEvent{}
	return k, walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			k.Down = f.bool()
		case 2:
			k.Press = f.bool()
		case 3:
			k.ControlKey = f.int32()
		case 4:
			k.Chr = uint32(f.x)
		case 5:
			k.Unicode = uint32(f.x)
		case 6:
			k.Seq = f.str()
		case 8:
			k.Modifiers, err = repeatedInt32(f, k.Modifiers)
		case 9:
			k.Mode = f.int32()
		}
		return err
	})
}

func (m *Misc) marshal() []byte {
	var e encoder
	switch {
	case m.SwitchDisplay != nil:
		var s encoder
		s.int32(1, m.SwitchDisplay.Display)
		s.sint32(2, m.SwitchDisplay.X)
		s.sint32(3, m.SwitchDisplay.Y)
		s.int32(4, m.SwitchDisplay.Width)
		s.int32(5, m.SwitchDisplay.Height)
		e.message(miscSwitchDisplay, s.b)
	case m.AudioFormat != nil:
		var s encoder
		s.uvarint(1, uint64(m.AudioFormat.SampleRate))
		s.uvarint(2, uint64(m.AudioFormat.Channels))
		e.message(miscAudioFormat, s.b)
	case m.CloseReason != nil:
		e.b = protowire.AppendTag(e.b, miscCloseReason, protowire.BytesType)
		e.b = protowire.AppendString(e.b, *m.CloseReason)
	case m.RefreshVideo:
		e.b = protowire.AppendTag(e.b, miscRefreshVideo, protowire.VarintType)
		e.b = protowire.AppendVarint(e.b, 1)
	}
	return e.b
}

func unmarshalMisc(b []byte) (*Misc, error) {
	m := &Misc{}
	return m, walk(b, func(f field) error {
		switch f.num {
		case miscSwitchDisplay:
			sd := &SwitchDisplay{}
			m.SwitchDisplay = sd
			return walk(f.v, func(g field) error {
				switch g.num {
				case 1:
					sd.Display = g.int32()
				case 2:
					sd.X = g.sint32()
				case 3:
					sd.Y = g.sint32()
				case 4:
					sd.Width = g.int32()
				case 5:
					sd.Height = g.int32()
				}
				return nil
			})
		case miscAudioFormat:
			af := &AudioFormat{}
			m.AudioFormat = af
			return walk(f.v, func(g field) error {
				switch g.num {
				case 1:
					af.SampleRate = uint32(g.x)
				case 2:
					af.Channels = uint32(g.x)
				}
				return nil
			})
		case miscCloseReason:
			s := f.str()
			m.CloseReason = &s
		case miscRefreshVideo:
			m.RefreshVideo = f.bool()
		}
		return nil
	})
}
