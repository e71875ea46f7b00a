package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/letrinh/letrinh-backend/pkg/enums"
	"github.com/letrinh/letrinh-backend/pkg/outbox/payloads"
)

// ErrNoDecoder is returned for an event type/version pair nobody registered.
var ErrNoDecoder = errors.New("no decoder registered")

// Decoder turns the envelope's data field into a typed payload.
type Decoder func(data json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, envelope version) to a decoder. Consumers
// use it so an old subscriber can keep reading v1 after v2 ships.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[decoderKey]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]Decoder)}
}

// JSONDecoder decodes into T by value.
func JSONDecoder[T any]() Decoder {
	return func(data json.RawMessage) (any, error) {
		var out T
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// NewConsumerDecoders knows every payload the publisher emits today.
func NewConsumerDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventOrderCreated, 1, JSONDecoder[payloads.OrderCreatedEvent]())
	reg.Register(enums.EventPaymentStatusChanged, 1, JSONDecoder[payloads.PaymentStatusChangedEvent]())
	return reg
}

// Register replaces any decoder already stored for the pair.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[decoderKey{eventType: eventType, version: version}] = decoder
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	r.mu.RLock()
	decoder, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s@v%d", ErrNoDecoder, eventType, version)
	}
	out, err := decoder(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s@v%d: %w", eventType, version, err)
	}
	return out, nil
}

// Versions lists the registered versions for eventType in ascending order.
func (r *DecoderRegistry) Versions(eventType enums.OutboxEventType) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []int
	for key := range r.decoders {
		if key.eventType == eventType {
			out = append(out, key.version)
		}
	}
	slices.Sort(out)
	return out
}
