package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	StoreType     string `json:"store_type"`
	Subscribable  bool   `json:"subscribable"`
	HasAssistant  bool   `json:"has_assistant"`
	SharedHandler bool   `json:"shared_error_handler"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	storeType := "unknown"
	if s.store != nil {
		storeType = "store"
		if comp, ok := s.store.(introspection.Component); ok {
			storeType = comp.ComponentType()
		}
	}
	_, subscribable := s.store.(Subscribable)

	return ServiceState{
		StoreType:     storeType,
		Subscribable:  subscribable,
		HasAssistant:  s.assistant != nil,
		SharedHandler: s.sharedErrorHandler != nil,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
