// Package wire encodes and decodes the subset of the peer protocol that the
// client produces and consumes.
//
// Two top-level unions travel over the transport:
//
//   - RendezvousMessage on the rendezvous link and as the first frame on the
//     relay link (PunchHoleRequest, PunchHoleResponse, RequestRelay,
//     RelayResponse).
//   - Message on the relay link once the relay is bound (signed id, key
//     exchange, login, media, cursor, input, misc).
//
// The encoding is protobuf (proto3) produced field-by-field with protowire so
// the byte layout matches the peer without generated code. Field numbers are
// pinned in fields.go. Unknown fields are skipped on decode; repeated enums are
// accepted packed or unpacked.
package wire
