// Package mutapi holds the response envelope helpers for the mutation API.
package mutapi

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ListField is the envelope key used by the create and update list endpoints.
const ListField = "list"

// ExtractField unwraps an object response, returning the JSON stored under
// field. When the body is not an object or has no such field, the trimmed
// body is returned unchanged. A field holding a JSON-encoded string is decoded
// so callers always receive the inner document.
func ExtractField(body []byte, field string) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return append([]byte(nil), trimmed...), nil
	}
	inner, ok := envelope[field]
	if !ok || inner == nil {
		return append([]byte(nil), trimmed...), nil
	}

	var asString string
	if err := json.Unmarshal(inner, &asString); err == nil {
		decoded := asString
		for i := 0; i < 4; i++ {
			unquoted, err := strconv.Unquote(decoded)
			if err != nil {
				break
			}
			decoded = unquoted
		}
		var doc json.RawMessage
		if err := json.Unmarshal([]byte(decoded), &doc); err == nil {
			return append([]byte(nil), doc...), nil
		}
	}

	return append([]byte(nil), inner...), nil
}

// DecodeField decodes the payload obtained via ExtractField into out. An empty
// body decodes as JSON null.
func DecodeField(body []byte, field string, out any) error {
	payload, err := ExtractField(body, field)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		payload = []byte("null")
	}
	return json.Unmarshal(payload, out)
}

// DecodeList decodes a `{"list": ...}` envelope (or a bare list object).
func DecodeList(body []byte, out any) error {
	return DecodeField(body, ListField, out)
}
