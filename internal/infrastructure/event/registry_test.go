package event

import (
	"context"
	"testing"

	"github.com/accountsync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

// mockHandler implements EventHandler for testing
type mockHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newMockHandler(eventTypes ...string) *mockHandler {
	return &mockHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *mockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *mockHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("bridge.connector.disconnected", "bridge.connector.silent")

	registry.Register(handler, "bridge.connector.disconnected", "bridge.connector.silent")

	handlers := registry.GetHandlers("bridge.connector.disconnected")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("bridge.connector.silent")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("bridge.connector.reconnected")
	assert.Len(t, handlers, 0)
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler() // No event types = wildcard

	registry.Register(handler)

	handlers := registry.GetHandlers("bridge.connector.disconnected")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("AnyEventType")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])
}

func TestHandlerRegistry_Register_MixedTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	specificHandler := newMockHandler("bridge.connector.disconnected")
	wildcardHandler := newMockHandler()

	registry.Register(specificHandler, "bridge.connector.disconnected")
	registry.Register(wildcardHandler)

	handlers := registry.GetHandlers("bridge.connector.disconnected")
	assert.Len(t, handlers, 2)

	handlers = registry.GetHandlers("OtherEvent")
	assert.Len(t, handlers, 1)
	assert.Equal(t, wildcardHandler, handlers[0])
}

func TestHandlerRegistry_Unregister_SpecificHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	handler1 := newMockHandler("bridge.connector.disconnected")
	handler2 := newMockHandler("bridge.connector.disconnected")

	registry.Register(handler1, "bridge.connector.disconnected")
	registry.Register(handler2, "bridge.connector.disconnected")

	handlers := registry.GetHandlers("bridge.connector.disconnected")
	assert.Len(t, handlers, 2)

	registry.Unregister(handler1)

	handlers = registry.GetHandlers("bridge.connector.disconnected")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler2, handlers[0])
}

func TestHandlerRegistry_Unregister_WildcardHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	wildcardHandler := newMockHandler()

	registry.Register(wildcardHandler)

	handlers := registry.GetHandlers("AnyEvent")
	assert.Len(t, handlers, 1)

	registry.Unregister(wildcardHandler)

	handlers = registry.GetHandlers("AnyEvent")
	assert.Len(t, handlers, 0)
}

func TestHandlerRegistry_GetAllHandlers(t *testing.T) {
	registry := NewHandlerRegistry()
	handler1 := newMockHandler("bridge.connector.disconnected")
	handler2 := newMockHandler("bridge.connector.reconnected")
	wildcardHandler := newMockHandler()

	registry.Register(handler1, "bridge.connector.disconnected")
	registry.Register(handler2, "bridge.connector.reconnected")
	registry.Register(wildcardHandler)

	allHandlers := registry.GetAllHandlers()
	assert.Len(t, allHandlers, 3)
}

func TestHandlerRegistry_GetAllHandlers_NoDuplicates(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("bridge.connector.disconnected", "bridge.connector.silent")

	// Register same handler for multiple event types
	registry.Register(handler, "bridge.connector.disconnected", "bridge.connector.silent")

	allHandlers := registry.GetAllHandlers()
	assert.Len(t, allHandlers, 1)
}
