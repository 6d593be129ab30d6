package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodePayload builds the variant for kind from a JSON object and checks
// every field rule and cross-field invariant, reporting all violations at once.
// Unknown keys are ignored.
func DecodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	p, err := newPayload(kind)
	if err != nil {
		return nil, NewValidationError(Violation{Field: "kind", Rule: "oneof", Message: err.Error()})
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, NewValidationError(Violation{Field: "payload", Rule: "required", Message: "payload is required"})
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, NewValidationError(Violation{Field: "payload", Rule: "object", Message: "payload must be a JSON object"})
	}

	var vs []Violation
	for _, f := range p.fields() {
		v, ok := obj[f.name]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			vs = append(vs, Violation{Field: f.name, Rule: "required", Message: f.name + " is required"})
			continue
		}
		if err := json.Unmarshal(v, f.ptr); err != nil {
			vs = append(vs, Violation{Field: f.name, Rule: "type", Message: typeMessage(f.name, f.ptr)})
		}
	}
	if len(vs) > 0 {
		return nil, NewValidationError(vs...)
	}

	p.setProvenance(strings.TrimSpace(p.Provenance()))
	if err := validate.Struct(p); err != nil {
		var fes validator.ValidationErrors
		if !errors.As(err, &fes) {
			return nil, fmt.Errorf("validate payload: %w", err)
		}
		for _, fe := range fes {
			vs = append(vs, fieldViolation(fe))
		}
	}
	vs = append(vs, p.invariants()...)
	if len(vs) > 0 {
		return nil, NewValidationError(vs...)
	}
	return p, nil
}

// MergePayload overlays the keys present in patch on top of current and
// re-validates the result as a whole.
func MergePayload(current Payload, patch json.RawMessage) (Payload, error) {
	base, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(base, &obj); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	patch = bytes.TrimSpace(patch)
	if len(patch) > 0 && !bytes.Equal(patch, []byte("null")) {
		var over map[string]json.RawMessage
		if err := json.Unmarshal(patch, &over); err != nil {
			return nil, NewValidationError(Violation{Field: "payload", Rule: "object", Message: "payload must be a JSON object"})
		}
		for k, v := range over {
			obj[k] = v
		}
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode merged payload: %w", err)
	}
	return DecodePayload(current.Kind(), merged)
}

func typeMessage(name string, ptr any) string {
	if _, ok := ptr.(*string); ok {
		return name + " must be a string"
	}
	return name + " must be a whole number"
}

func fieldViolation(fe validator.FieldError) Violation {
	name := fe.Field()
	var msg string
	switch {
	case fe.Kind() == reflect.String && fe.Tag() == "min":
		msg = fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case fe.Kind() == reflect.String && fe.Tag() == "max":
		msg = fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case fe.Tag() == "min":
		msg = fmt.Sprintf("%s must be >= %s", name, fe.Param())
	case fe.Tag() == "max":
		msg = fmt.Sprintf("%s must be <= %s", name, fe.Param())
	default:
		msg = fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
	return Violation{Field: name, Rule: fe.Tag(), Message: msg}
}
