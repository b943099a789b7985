// Package schema defines the MTProto protocol objects the core engine
// itself needs to speak: handshake messages, session/service messages,
// and the update-stream envelopes the dispatcher consumes. It does not
// attempt to reproduce Telegram's full application-level TL schema
// (messages.sendMessage and friends) — code-generating that schema is
// an external collaborator per the package's scope.
package schema

import "github.com/mivmi/snakegram/tl"

// R is the process-wide registry of every object this package defines,
// built once at init time and read-only thereafter.
var R = tl.NewRegistry()

func register(name string, f tl.Factory) uint32 {
	return R.Register(name, f)
}
