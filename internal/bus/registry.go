package bus

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

var ErrTypeConflict = errors.New("bus: channel already bound to a different payload type")

// The registry maps channel names to reference-counted pipes. An entry is
// created on first bind and deleted when the last endpoint releases it.
// The payload type is recorded per name so a cross-type rebind is caught
// at bind time instead of corrupting deliveries.
var (
	registryMu sync.Mutex
	registry   = make(map[string]*registryEntry)
)

type registryEntry struct {
	refs int
	typ  reflect.Type
	pipe any
}

func acquire[T any](name string) (*pipe[T], error) {
	typ := reflect.TypeFor[T]()
	registryMu.Lock()
	defer registryMu.Unlock()
	if e, ok := registry[name]; ok {
		if e.typ != typ {
			return nil, fmt.Errorf("%w: %q carries %s, requested %s", ErrTypeConflict, name, e.typ, typ)
		}
		e.refs++
		return e.pipe.(*pipe[T]), nil
	}
	p := newPipe[T](name)
	registry[name] = &registryEntry{refs: 1, typ: typ, pipe: p}
	return p, nil
}

func release(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	e, ok := registry[name]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(registry, name)
	}
}

// Channels lists the names of currently live channels, sorted.
func Channels() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
