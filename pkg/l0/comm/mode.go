package comm

import (
	"fmt"
	"sync"
)

// Mode selects how many line terminators complete a reply.
type Mode int

// Predefined modes.
const (
	// ModePlain is a single status line reply.
	ModePlain Mode = iota
	// ModeNetworkJoin is the three status lines emitted when joining a network.
	ModeNetworkJoin
)

type modeInfo struct {
	name        string
	terminators int
}

var (
	modes = map[Mode]modeInfo{
		ModePlain:       {name: "plain", terminators: 1},
		ModeNetworkJoin: {name: "join", terminators: 3},
	}
	modesLock sync.RWMutex
)

// RegisterMode adds a new mode expecting the given number of terminators.
// Registering an existing name again returns the same mode; it panics if
// the terminator count differs.
func RegisterMode(name string, terminators int) Mode {
	if terminators <= 0 {
		panic("terminators must be positive")
	}
	modesLock.Lock()
	defer modesLock.Unlock()
	for m, info := range modes {
		if info.name != name {
			continue
		}
		if info.terminators != terminators {
			panic(fmt.Sprintf("mode %q already registered with %d terminators", name, info.terminators))
		}
		return m
	}
	m := Mode(len(modes))
	for {
		if _, exists := modes[m]; !exists {
			break
		}
		m++
	}
	modes[m] = modeInfo{name: name, terminators: terminators}
	return m
}

// ModeByName looks up a mode by its name.
func ModeByName(name string) (Mode, bool) {
	modesLock.RLock()
	defer modesLock.RUnlock()
	for m, info := range modes {
		if info.name == name {
			return m, true
		}
	}
	return ModePlain, false
}

// Terminators returns the number of line feeds completing a reply.
// Unknown modes are treated as plain.
func (m Mode) Terminators() int {
	modesLock.RLock()
	defer modesLock.RUnlock()
	if info, ok := modes[m]; ok {
		return info.terminators
	}
	return modes[ModePlain].terminators
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	modesLock.RLock()
	defer modesLock.RUnlock()
	if info, ok := modes[m]; ok {
		return info.name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}
