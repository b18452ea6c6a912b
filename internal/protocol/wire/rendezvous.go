package wire

import "fmt"

// PunchHoleRequest asks the rendezvous server to connect us to a peer.
type PunchHoleRequest struct {
	ID         string
	NatType    int32
	LicenceKey string
	ConnType   int32
	Token      string
	Version    string
}

// PunchHoleResponse is sent by the rendezvous server when no relay will be
// arranged; for a web-style client it always describes a failure.
type PunchHoleResponse struct {
	SocketAddr   []byte
	PK           []byte
	Failure      int32
	RelayServer  string
	OtherFailure string
}

// FailureText renders the failure for display.
func (r *PunchHoleResponse) FailureText() string {
	if r.OtherFailure != "" {
		return r.OtherFailure
	}
	switch r.Failure {
	case FailureIDNotExist:
		return "peer id does not exist"
	case FailureOffline:
		return "peer is offline"
	case FailureLicenseMismatch:
		return "key mismatch"
	case FailureLicenseOveruse:
		return "key overuse"
	default:
		return fmt.Sprintf("punch hole failure %d", r.Failure)
	}
}

// RequestRelay binds this connection to a relay slot identified by UUID.
type RequestRelay struct {
	ID          string
	UUID        string
	SocketAddr  []byte
	RelayServer string
	Secure      bool
	LicenceKey  string
	ConnType    int32
	Token       string
}

// RelayResponse tells the client which relay to use and carries the peer's
// signed signing key.
type RelayResponse struct {
	SocketAddr   []byte
	UUID         string
	RelayServer  string
	ID           string
	PK           []byte
	RefuseReason string
	Version      string
}

// RendezvousMessage is the top-level union on the rendezvous link. Exactly one
// member is set.
type RendezvousMessage struct {
	PunchHoleRequest  *PunchHoleRequest
	PunchHoleResponse *PunchHoleResponse
	RequestRelay      *RequestRelay
	RelayResponse     *RelayResponse
}

// Marshal encodes the first set union member.
func (m *RendezvousMessage) Marshal() []byte {
	var e encoder
	switch {
	case m.PunchHoleRequest != nil:
		e.message(rdvPunchHoleRequest, m.PunchHoleRequest.marshal())
	case m.PunchHoleResponse != nil:
		e.message(rdvPunchHoleResponse, m.PunchHoleResponse.marshal())
	case m.RequestRelay != nil:
		e.message(rdvRequestRelay, m.RequestRelay.marshal())
	case m.RelayResponse != nil:
		e.message(rdvRelayResponse, m.RelayResponse.marshal())
	}
	return e.b
}

// UnmarshalRendezvous decodes a RendezvousMessage. A message with none of the
// known members set yields ErrEmptyUnion.
func UnmarshalRendezvous(b []byte) (*RendezvousMessage, error) {
	m := &RendezvousMessage{}
	err := walk(b, func(f field) error {
		if !f.isBytes() {
			return nil
		}
		var err error
		switch f.num {
		case rdvPunchHoleRequest:
			m.PunchHoleRequest, err = unmarshalPunchHoleRequest(f.v)
		case rdvPunchHoleResponse:
			m.PunchHoleResponse, err = unmarshalPunchHoleResponse(f.v)
		case rdvRequestRelay:
			m.RequestRelay, err = unmarshalRequestRelay(f.v)
		case rdvRelayResponse:
			m.RelayResponse, err = unmarshalRelayResponse(f.v)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if m.PunchHoleRequest == nil && m.PunchHoleResponse == nil && m.RequestRelay == nil && m.RelayResponse == nil {
		return nil, ErrEmptyUnion
	}
	return m, nil
}

func (r *PunchHoleRequest) marshal() []byte {
	var e encoder
	e.string(1, r.ID)
	e.int32(2, r.NatType)
	e.string(3, r.LicenceKey)
	e.int32(4, r.ConnType)
	e.string(5, r.Token)
	e.string(6, r.Version)
	return e.b
}

func unmarshalPunchHoleRequest(b []byte) (*PunchHoleRequest, error) {
	r := &PunchHoleRequest{}
	return r, walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.ID = f.str()
		case 2:
			r.NatType = f.int32()
		case 3:
			r.LicenceKey = f.str()
		case 4:
			r.ConnType = f.int32()
		case 5:
			r.Token = f.str()
		case 6:
			r.Version = f.str()
		}
		return nil
	})
}

func (r *PunchHoleResponse) marshal() []byte {
	var e encoder
	e.bytes(1, r.SocketAddr)
	e.bytes(2, r.PK)
	e.int32(3, r.Failure)
	e.string(4, r.RelayServer)
	e.string(7, r.OtherFailure)
	return e.b
}

func unmarshalPunchHoleResponse(b []byte) (*PunchHoleResponse, error) {
	r := &PunchHoleResponse{}
	return r, walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.SocketAddr = f.clone()
		case 2:
			r.PK = f.clone()
		case 3:
			r.Failure = f.int32()
		case 4:
			r.RelayServer = f.str()
		case 7:
			r.OtherFailure = f.str()
		}
		return nil
	})
}

func (r *RequestRelay) marshal() []byte {
	var e encoder
	e.string(1, r.ID)
	e.string(2, r.UUID)
	e.bytes(3, r.SocketAddr)
	e.string(4, r.RelayServer)
	e.bool(5, r.Secure)
	e.string(6, r.LicenceKey)
	e.int32(7, r.ConnType)
	e.string(8, r.Token)
	return e.b
}

func unmarshalRequestRelay(b []byte) (*RequestRelay, error) {
	r := &RequestRelay{}
	return r, walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.ID = f.str()
		case 2:
			r.UUID = f.str()
		case 3:
			r.SocketAddr = f.clone()
		case 4:
			r.RelayServer = f.str()
		case 5:
			r.Secure = f.bool()
		case 6:
			r.LicenceKey = f.str()
		case 7:
			r.ConnType = f.int32()
		case 8:
			r.Token = f.str()
		}
		return nil
	})
}

func (r *RelayResponse) marshal() []byte {
	var e encoder
	e.bytes(1, r.SocketAddr)
	e.string(2, r.UUID)
	e.string(3, r.RelayServer)
	if len(r.PK) > 0 {
		e.bytes(5, r.PK)
	} else {
		e.string(4, r.ID)
	}
	e.string(6, r.RefuseReason)
	e.string(7, r.Version)
	return e.b
}

func unmarshalRelayResponse(b []byte) (*RelayResponse, error) {
	r := &RelayResponse{}
	return r, walk(b, func(f field) error {
		switch f.num {
		case 1:
			r.SocketAddr = f.clone()
		case 2:
			r.UUID = f.str()
		case 3:
			r.RelayServer = f.str()
		case 4:
			r.ID = f.str()
		case 5:
			r.PK = f.clone()
		case 6:
			r.RefuseReason = f.str()
		case 7:
			r.Version = f.str()
		}
		return nil
	})
}
