package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/protocol"
	"github.com/nerrad567/gray-logic-rf/internal/bridges/rf433/pulse"
)

// ProtocolResponse is a descriptor plus its rendered help text.
type ProtocolResponse struct {
	protocol.Descriptor
	Help string `json:"help"`
}

// EncodeRequest is the body of POST /protocols/{id}/encode and /send.
// A missing id is reported as such by the codec.
type EncodeRequest struct {
	ID       *int   `json:"id"`
	State    string `json:"state,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
}

// EncodeResponse is a canonical frame ready for a transmitter.
type EncodeResponse struct {
	Protocol string      `json:"protocol"`
	ID       int         `json:"id"`
	Pulses   pulse.Train `json:"pulses"`
	Repeats  int         `json:"repeats"`
}

// DecodeRequest is the body of POST /protocols/{id}/decode.
type DecodeRequest struct {
	Pulses pulse.Train `json:"pulses"`
}

// DecodeResponse reports what the protocol made of a train.
type DecodeResponse struct {
	Protocol string            `json:"protocol"`
	Valid    bool              `json:"valid"`
	Decoded  bool              `json:"decoded"`
	Message  *protocol.Message `json:"message,omitempty"`
}

// handleListProtocols returns every registered protocol descriptor.
func (s *Server) handleListProtocols(w http.ResponseWriter, _ *http.Request) {
	descriptors := s.bridge.Protocols()
	writeJSON(w, http.StatusOK, map[string]any{
		"protocols": descriptors,
		"count":     len(descriptors),
	})
}

// handleGetProtocol returns one descriptor with its help text.
func (s *Server) handleGetProtocol(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProtocol(w, r)
	if !ok {
		return
	}
	d := p.Descriptor()
	writeJSON(w, http.StatusOK, ProtocolResponse{Descriptor: d, Help: d.Help()})
}

// handleEncode builds a frame without transmitting it.
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProtocol(w, r)
	if !ok {
		return
	}

	var req EncodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, ok := s.requestedID(w, p.Descriptor(), req.ID)
	if !ok {
		return
	}

	train, err := p.EncodeRequest(protocol.Request{ID: id, State: req.State})
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, EncodeResponse{
		Protocol: p.Descriptor().ID,
		ID:       id,
		Pulses:   train,
		Repeats:  p.Descriptor().Repeats,
	})
}

// handleDecode validates and decodes a captured train.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProtocol(w, r)
	if !ok {
		return
	}

	var req DecodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Pulses) == 0 {
		writeValidationError(w, "pulses is required")
		return
	}
	if !req.Pulses.Valid() {
		writeValidationError(w, "pulse durations must be positive")
		return
	}

	resp := DecodeResponse{
		Protocol: p.Descriptor().ID,
		Valid:    p.Validate(req.Pulses),
	}
	if resp.Valid {
		if msg, ok := p.DecodeMessage(req.Pulses); ok {
			resp.Decoded = true
			resp.Message = &msg
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSend asks the bridge to transmit a frame.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProtocol(w, r)
	if !ok {
		return
	}

	var req EncodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// Without an id the bridge falls back to the device's configured code.
	id, ok := s.requestedID(w, p.Descriptor(), req.ID)
	if !ok {
		return
	}

	msg, err := s.bridge.Send(rf433.SendRequest{
		CommandID: requestID(r),
		DeviceID:  req.DeviceID,
		Protocol:  p.Descriptor().ID,
		ID:        id,
		State:     req.State,
	})
	if err != nil {
		s.writeSendError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, msg)
}

func (s *Server) writeSendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rf433.ErrEncodingFailed):
		writeValidationError(w, codecMessage(err))
	case errors.Is(err, rf433.ErrUnknownDevice), errors.Is(err, rf433.ErrUnknownProtocol):
		writeNotFound(w, err.Error())
	case errors.Is(err, rf433.ErrPublishFailed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		s.logger.Error("send failed", "error", err)
		writeInternalError(w, "send failed")
	}
}

// codecMessage returns the codec's own message from an ErrEncodingFailed
// wrap, so API clients see e.g. "invalid id range. id should be between 0
// and 131071".
func codecMessage(err error) string {
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range multi.Unwrap() {
			if !errors.Is(e, rf433.ErrEncodingFailed) {
				return e.Error()
			}
		}
	}
	return err.Error()
}

// lookupProtocol resolves {id} or writes a 404.
func (s *Server) lookupProtocol(w http.ResponseWriter, r *http.Request) (protocol.Protocol, bool) {
	id := chi.URLParam(r, "id")
	p, ok := s.bridge.Protocol(id)
	if !ok {
		writeNotFound(w, "protocol not found: "+id)
		return nil, false
	}
	return p, true
}

// requestedID checks an id against the protocol's "id" option pattern.
// A nil id becomes protocol.MissingID so the codec reports it.
func (s *Server) requestedID(w http.ResponseWriter, d protocol.Descriptor, id *int) (int, bool) {
	if id == nil {
		return protocol.MissingID, true
	}
	if _, ok := d.Option("id"); ok {
		if err := d.ValidateOption("id", strconv.Itoa(*id)); err != nil {
			writeValidationError(w, err.Error())
			return 0, false
		}
	}
	return *id, true
}

// decodeBody unmarshals a JSON body or writes a 400.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
