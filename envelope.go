package tradestation

import (
	"encoding/json"
)

// Decode parses a response body as either a success payload of type T or the
// remote error envelope. The envelope is detected by the presence of both
// string keys "error" and "message" on the JSON root, never by HTTP status:
// the remote returns 200 for many business failures.
//
// Partial-success responses are not errors. List payloads that carry an
// "Errors" array alongside the success array decode as T; surfacing the
// per-item errors is the endpoint's choice.
func Decode[T any](resp *Response) (T, error) {
	var zero T

	var root map[string]json.RawMessage
	if err := json.Unmarshal(resp.Data, &root); err == nil {
		if remote, msg, ok := envelopeError(root); ok {
			return zero, fromAPIError(resp.StatusCode, remote, msg)
		}
	}

	var v T
	if err := json.Unmarshal(resp.Data, &v); err != nil {
		return zero, ErrDecode(err)
	}
	return v, nil
}

// envelopeError reports whether the root object is the remote error shape,
// returning its two string fields when it is.
func envelopeError(root map[string]json.RawMessage) (remote, msg string, ok bool) {
	rawErr, hasErr := root["error"]
	rawMsg, hasMsg := root["message"]
	if !hasErr || !hasMsg {
		return "", "", false
	}
	if json.Unmarshal(rawErr, &remote) != nil || json.Unmarshal(rawMsg, &msg) != nil {
		return "", "", false
	}
	return remote, msg, true
}
