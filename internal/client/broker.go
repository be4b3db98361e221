package client

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrUnknownGameCode = errors.New("unknown game code")

// Broker - the external collaborator of the direct peer mode: it hands each
// host an opaque public code and resolves that code for a joining peer.
type Broker interface {
	Register(addr string) (string, error)
	Resolve(code string) (string, error)
}

// LoopbackBroker - an in-process broker. Suitable for tests and for peers
// that already share a process or a rendezvous service.
type LoopbackBroker struct {
	mu    sync.Mutex
	codes map[string]string
}

func NewLoopbackBroker() *LoopbackBroker {
	return &LoopbackBroker{
		codes: make(map[string]string),
	}
}

func (that *LoopbackBroker) Register(addr string) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	code := uuid.NewString()
	that.codes[code] = addr

	return code, nil
}

func (that *LoopbackBroker) Resolve(code string) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	addr, exists := that.codes[code]
	if !exists {
		return "", ErrUnknownGameCode
	}

	return addr, nil
}
