package feedback

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// EncodeEvent encodes an event to CBOR.
func EncodeEvent(e *Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	data, err := cbor.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

// DecodeEvent decodes a CBOR-encoded event and validates it.
// Returns the parsed event or an error if decoding fails.
func DecodeEvent(data []byte) (*Event, error) {
	if len(data) == 0 {
		return nil, ErrInvalidCBOR
	}

	var e Event
	dec := cbor.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCBOR, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// WireHandler forwards events as a CBOR stream to a writer, typically a
// socket or append-only file consumed by a downstream pipeline. CBOR
// items are self-delimiting, so the stream needs no framing.
type WireHandler struct {
	enc *cbor.Encoder
}

// NewWireHandler creates a WireHandler over the writer.
func NewWireHandler(w io.Writer) *WireHandler {
	return &WireHandler{enc: cbor.NewEncoder(w)}
}

// Handle writes one event to the stream.
func (h *WireHandler) Handle(_ context.Context, e *Event) error {
	if err := h.enc.Encode(e); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
