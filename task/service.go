package task

import (
	"sync"

	"github.com/cocomr/coco/cocoerr"
	"github.com/cocomr/coco/port"
)

// Service is the inner namespace shared by every task: mappings of
// attributes, ports, and operations, plus nested sub-services and a peer
// list. Task embeds Service and adds the lifecycle state machine and the
// engine/activity bindings.
//
// Sub-services are scoped, per the resolved Open Question, to attribute
// and operation grouping only — they do not carry their own ports, peers,
// or lifecycle; a component that wants a nested namespace of settings or
// callables creates a Service and attaches it with AddSubService, but
// wiring and scheduling remain properties of the owning Task alone.
type Service struct {
	name string

	mu         sync.RWMutex
	attributes map[string]*Attribute
	ports      map[string]port.Port
	operations map[string]*Operation
	subs       map[string]*Service
	peers      []*Task
}

// NewService creates an empty, named namespace.
func NewService(name string) *Service {
	return &Service{
		name:       name,
		attributes: make(map[string]*Attribute),
		ports:      make(map[string]port.Port),
		operations: make(map[string]*Operation),
		subs:       make(map[string]*Service),
	}
}

func (s *Service) Name() string { return s.name }

// AddAttribute registers attr. It rejects a duplicate name.
func (s *Service) AddAttribute(attr *Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attributes[attr.Name()]; exists {
		return cocoerr.New("Service.AddAttribute", cocoerr.KindDuplicateName, nil).
			WithContext(map[string]any{"service": s.name, "attribute": attr.Name()})
	}
	s.attributes[attr.Name()] = attr
	return nil
}

// GetAttribute returns the named attribute, or ok=false when absent.
func (s *Service) GetAttribute(name string) (*Attribute, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attributes[name]
	return a, ok
}

// AddPort registers p under its local name. It rejects a duplicate name.
func (s *Service) AddPort(p port.Port) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ports[p.LocalName()]; exists {
		return cocoerr.New("Service.AddPort", cocoerr.KindDuplicateName, nil).
			WithContext(map[string]any{"service": s.name, "port": p.LocalName()})
	}
	s.ports[p.LocalName()] = p
	return nil
}

// GetPort returns the named port, or ok=false when absent.
func (s *Service) GetPort(name string) (port.Port, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.ports[name]
	return p, ok
}

// Ports returns a snapshot of every registered port, keyed by local name.
func (s *Service) Ports() map[string]port.Port {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]port.Port, len(s.ports))
	for k, v := range s.ports {
		out[k] = v
	}
	return out
}

// AddOperation registers op. It rejects a duplicate name.
func (s *Service) AddOperation(op *Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.operations[op.Name()]; exists {
		return cocoerr.New("Service.AddOperation", cocoerr.KindDuplicateName, nil).
			WithContext(map[string]any{"service": s.name, "operation": op.Name()})
	}
	s.operations[op.Name()] = op
	return nil
}

// GetOperation returns the named operation, or ok=false when absent.
func (s *Service) GetOperation(name string) (*Operation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operations[name]
	return op, ok
}

// AddSubService registers a nested namespace under name. It rejects a
// duplicate name.
func (s *Service) AddSubService(name string, sub *Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.subs[name]; exists {
		return cocoerr.New("Service.AddSubService", cocoerr.KindDuplicateName, nil).
			WithContext(map[string]any{"service": s.name, "sub_service": name})
	}
	s.subs[name] = sub
	return nil
}

// GetSubService returns the named nested namespace, or ok=false when absent.
func (s *Service) GetSubService(name string) (*Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[name]
	return sub, ok
}

// AddPeer appends peer to the peer list. The peer retains its own identity
// and attribute/port/operation namespace; it is never assigned its own
// activity independently — it executes inside its owner's on_update.
func (s *Service) AddPeer(peer *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers = append(s.peers, peer)
}

// Peers returns a snapshot of the peer list, in the order they were added.
func (s *Service) Peers() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Task, len(s.peers))
	copy(out, s.peers)
	return out
}
