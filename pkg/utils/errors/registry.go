package errors

import (
	"fmt"
	"sync"
)

// registry maps numeric codes to their errno and service codes to names.
// Codes are registered from package init, so duplicates surface at startup.
var registry = struct {
	sync.RWMutex
	errnos   map[int]*Errno
	services map[int]string
}{
	errnos:   make(map[int]*Errno),
	services: make(map[int]string),
}

// Register records e under its code and returns it. A duplicate code panics.
func Register(e *Errno) *Errno {
	registry.Lock()
	defer registry.Unlock()

	if existing, ok := registry.errnos[e.Code]; ok {
		panic(fmt.Sprintf("errno code %d already registered: %s", e.Code, existing.MessageEN))
	}
	registry.errnos[e.Code] = e
	return e
}

// Lookup returns the errno registered under code.
func Lookup(code int) (*Errno, bool) {
	registry.RLock()
	defer registry.RUnlock()
	e, ok := registry.errnos[code]
	return e, ok
}

// RegisterService names a service code. Re-registering the same name is a
// no-op; a different name panics.
func RegisterService(code int, name string) {
	registry.Lock()
	defer registry.Unlock()

	if existing, ok := registry.services[code]; ok && existing != name {
		panic(fmt.Sprintf("service code %d already registered by %q, cannot register %q", code, existing, name))
	}
	registry.services[code] = name
}

// GetServiceName returns the name registered for a service code.
func GetServiceName(code int) (string, bool) {
	registry.RLock()
	defer registry.RUnlock()
	name, ok := registry.services[code]
	return name, ok
}
