package rpc

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	FrameRequest  = "req"
	FrameResponse = "res"
)

const (
	MethodProvidersAvailable = "providers.available"
	MethodProvidersSaveKey   = "providers.save_key"
	MethodProvidersRemoveKey = "providers.remove_key"
	MethodModelsList         = "models.list"
)

const (
	CodeUnknownMethod = "unknown_method"
	CodeInvalidParams = "invalid_params"
	CodeNotFound      = "not_found"
	CodeInternal      = "internal"
)

var emptyParams = json.RawMessage(`{}`)

type Request struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *RemoteError    `json:"error,omitempty"`
}

// RemoteError is the error object a gateway attaches to a failed response.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Code) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Err reports why the response is not usable, or nil when ok is set.
func (r Response) Err() error {
	if r.OK {
		return nil
	}
	if r.Error != nil {
		return r.Error
	}
	return errors.New("gateway returned an unsuccessful response")
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (r Response) Decode(v any) error {
	if len(r.Payload) == 0 || string(r.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", r.ID, err)
	}
	return nil
}

func encodeParams(params any) (json.RawMessage, error) {
	if params == nil {
		return emptyParams, nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		if len(raw) == 0 {
			return emptyParams, nil
		}
		return raw, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return raw, nil
}

// NewResult builds a successful response frame for id.
func NewResult(id string, payload any) (Response, error) {
	resp := Response{Type: FrameResponse, ID: id, OK: true}
	if payload == nil {
		return resp, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encode payload: %w", err)
	}
	resp.Payload = raw
	return resp, nil
}

// NewFailure builds an unsuccessful response frame for id.
func NewFailure(id, code, message string) Response {
	return Response{
		Type:  FrameResponse,
		ID:    id,
		Error: &RemoteError{Code: code, Message: message},
	}
}
