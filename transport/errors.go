package transport

import "errors"

// ErrNoRemotePeers is returned by Hub.Push when nothing is connected to
// receive the envelope.
var ErrNoRemotePeers = errors.New("transport: no remote peers connected")
