package payfast

import (
	"bytes"
	"encoding/json"
	"net/url"
)

const maxFields = 64

// ParseFormBody flattens a form-encoded callback body. A key repeated with
// different values cannot be signed unambiguously and is rejected.
func ParseFormBody(body []byte) (map[string]string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, &Rejection{Reason: ReasonMalformed, Detail: "unparseable form body"}
	}
	if len(values) > maxFields {
		return nil, &Rejection{Reason: ReasonUnknownField, Detail: "too many fields"}
	}
	out := make(map[string]string, len(values))
	for k, vals := range values {
		for _, v := range vals[1:] {
			if v != vals[0] {
				return nil, &Rejection{Reason: ReasonUnknownField, Field: truncate(k, 40), Detail: "conflicting values for"}
			}
		}
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out, nil
}

// ParseJSONBody flattens a JSON object callback body. Numbers keep their
// literal text, booleans become "true"/"false", null means absent.
func ParseJSONBody(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &Rejection{Reason: ReasonMalformed, Detail: "unparseable json body"}
	}
	if len(raw) > maxFields {
		return nil, &Rejection{Reason: ReasonUnknownField, Detail: "too many fields"}
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			if val {
				out[k] = "true"
			} else {
				out[k] = "false"
			}
		default:
			return nil, &Rejection{Reason: ReasonUnknownField, Field: truncate(k, 40), Detail: "non-scalar value for"}
		}
	}
	return out, nil
}
