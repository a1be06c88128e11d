package resolver

import (
	"context"
	"encoding/json"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/event"
	"github.com/typhonjs-node-utils/typhonjs-config-resolver/pkg/types"
)

// Trigger names bound by Register.
const (
	TriggerResolve      = "resolve"
	TriggerPreValidate  = "validate:pre"
	TriggerPostValidate = "validate:post"
)

// RegisterOptions configures Register.
type RegisterOptions struct {
	// EventPrepend prefixes every trigger name as "<prepend>:<name>".
	EventPrepend string
}

// ValidateRequest is the payload accepted by the validate triggers when a
// configuration name is wanted in error messages. A bare configuration is
// accepted as well.
type ValidateRequest struct {
	Config *types.Object `json:"config"`
	Name   string        `json:"name,omitempty"`
}

// TriggerName returns name with the optional prefix applied.
func TriggerName(prepend, name string) string {
	if prepend == "" {
		return name
	}
	return prepend + ":" + name
}

// Register binds r to the resolve, validate:pre and validate:post triggers of
// bus. The resolve trigger accepts anything ResolveValue does (plus raw JSON)
// and returns the resolved *types.Object; the validate triggers return nil
// on success. The returned function unbinds all three.
func Register(bus *event.Bus, r *Resolver, opts RegisterOptions) (func(), error) {
	handlers := []struct {
		name string
		h    event.Handler
	}{
		{TriggerResolve, func(_ context.Context, payload any) (any, error) {
			cfg, err := payloadObject(payload)
			if err != nil {
				return nil, err
			}
			return r.Resolve(cfg)
		}},
		{TriggerPreValidate, func(_ context.Context, payload any) (any, error) {
			cfg, name, err := validatePayload(payload)
			if err != nil {
				return nil, err
			}
			return nil, r.PreValidate(cfg, name)
		}},
		{TriggerPostValidate, func(_ context.Context, payload any) (any, error) {
			cfg, name, err := validatePayload(payload)
			if err != nil {
				return nil, err
			}
			return nil, r.PostValidate(cfg, name)
		}},
	}

	var unbind []func()
	unregister := func() {
		for _, fn := range unbind {
			fn()
		}
	}

	for _, h := range handlers {
		fn, err := bus.Handle(TriggerName(opts.EventPrepend, h.name), h.h)
		if err != nil {
			unregister()
			return nil, err
		}
		unbind = append(unbind, fn)
	}

	r.log.Debug().Str("prepend", opts.EventPrepend).Msg("registered resolver triggers")
	return unregister, nil
}

func payloadObject(payload any) (*types.Object, error) {
	switch p := payload.(type) {
	case []byte:
		return types.ParseJSON(p)
	case json.RawMessage:
		return types.ParseJSON(p)
	}
	obj, ok := types.Normalize(payload).(*types.Object)
	if !ok || obj == nil {
		return nil, invalidInput("config is %T, want object", payload)
	}
	return obj, nil
}

func validatePayload(payload any) (*types.Object, string, error) {
	switch p := payload.(type) {
	case ValidateRequest:
		return requestConfig(p)
	case *ValidateRequest:
		if p == nil {
			return nil, "", invalidInput("nil request")
		}
		return requestConfig(*p)
	}
	cfg, err := payloadObject(payload)
	return cfg, "", err
}

func requestConfig(req ValidateRequest) (*types.Object, string, error) {
	if req.Config == nil {
		return nil, "", invalidInput("request has no config")
	}
	return req.Config, req.Name, nil
}
