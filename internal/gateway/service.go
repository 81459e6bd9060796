package gateway

import (
	"context"
	"errors"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/rpc"
)

// ProviderService is the backend of the provider methods.
type ProviderService interface {
	Available(ctx context.Context) ([]providers.Provider, error)
	SaveKey(ctx context.Context, req providers.SaveKeyRequest) error
	RemoveKey(ctx context.Context, name string) error
	Models(ctx context.Context) ([]providers.ModelInfo, error)
}

// RegisterProviders wires the provider and model methods onto s.
func RegisterProviders(s *Server, svc ProviderService) {
	s.Handle(rpc.MethodProvidersAvailable, func(ctx context.Context, _ json.RawMessage) (any, error) {
		list, err := svc.Available(ctx)
		if err != nil {
			return nil, classify(err)
		}
		return list, nil
	})

	s.Handle(rpc.MethodProvidersSaveKey, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req providers.SaveKeyRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.Provider) == "" {
			return nil, &rpc.RemoteError{Code: rpc.CodeInvalidParams, Message: "provider is required"}
		}
		if err := svc.SaveKey(ctx, req); err != nil {
			return nil, classify(err)
		}
		return nil, nil
	})

	s.Handle(rpc.MethodProvidersRemoveKey, func(ctx context.Context, params json.RawMessage) (any, error) {
		var req providers.RemoveKeyRequest
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.Provider) == "" {
			return nil, &rpc.RemoteError{Code: rpc.CodeInvalidParams, Message: "provider is required"}
		}
		if err := svc.RemoveKey(ctx, req.Provider); err != nil {
			return nil, classify(err)
		}
		return nil, nil
	})

	s.Handle(rpc.MethodModelsList, func(ctx context.Context, _ json.RawMessage) (any, error) {
		models, err := svc.Models(ctx)
		if err != nil {
			return nil, classify(err)
		}
		return models, nil
	})
}

func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &rpc.RemoteError{Code: rpc.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, providers.ErrUnknownProvider), errors.Is(err, providers.ErrNotConfigured):
		return &rpc.RemoteError{Code: rpc.CodeNotFound, Message: err.Error()}
	case errors.Is(err, providers.ErrEmptyCredential), errors.Is(err, providers.ErrOAuthProvider):
		return &rpc.RemoteError{Code: rpc.CodeInvalidParams, Message: err.Error()}
	default:
		return err
	}
}
