package wire

import "fmt"

// IdPk is the payload of a signed identity: a peer id bound to a 32-byte key.
type IdPk struct {
	ID string
	PK []byte
}

// Marshal encodes the IdPk.
func (p *IdPk) Marshal() []byte {
	var e encoder
	e.string(1, p.ID)
	e.bytes(2, p.PK)
	return e.b
}

// UnmarshalIdPk decodes an IdPk payload.
func UnmarshalIdPk(b []byte) (*IdPk, error) {
	p := &IdPk{}
	err := walk(b, func(f field) error {
		if !f.isBytes() {
			return fmt.Errorf("wire: idpk field %d has wire type %d", f.num, f.typ)
		}
		switch f.num {
		case 1:
			p.ID = f.str()
		case 2:
			p.PK = f.clone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
