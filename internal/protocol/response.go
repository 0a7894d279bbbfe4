package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Response is the envelope returned for every request. Result is set only on
// success and Message only on error.
type Response struct {
	ID      string `json:"id,omitempty"`
	Status  Status `json:"status"`
	Result  any    `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
}

func Success(id string, result any) Response {
	return Response{ID: id, Status: StatusSuccess, Result: result}
}

func Failure(id string, err error) Response {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Response{ID: id, Status: StatusError, Message: msg}
}

// Encode renders a response as JSON without the frame delimiter.
func Encode(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return data, nil
}

// EncodeOrFailure encodes resp, falling back to an error envelope when the
// result cannot be represented as JSON (for example a NaN tempo).
func EncodeOrFailure(resp Response) []byte {
	data, err := Encode(resp)
	if err == nil {
		return data
	}
	data, err = Encode(Failure(resp.ID, err))
	if err != nil {
		return []byte(`{"status":"error","message":"encode response failed"}`)
	}
	return data
}

// DecodeResponse parses a response frame. The result is left raw so callers
// can decode it into the type matching their command.
func DecodeResponse(data []byte) (RawResponse, error) {
	var resp RawResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return RawResponse{}, &DecodeError{Err: err}
	}
	if resp.Status != StatusSuccess && resp.Status != StatusError {
		return RawResponse{}, &DecodeError{Err: fmt.Errorf("unknown status %q", resp.Status)}
	}
	return resp, nil
}

// RawResponse is a Response as seen by a client.
type RawResponse struct {
	ID      string          `json:"id,omitempty"`
	Status  Status          `json:"status"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Err returns the server's error message as an error, or nil on success.
func (r RawResponse) Err() error {
	if r.Status == StatusSuccess {
		return nil
	}
	return errors.New(r.Message)
}

// DecodeResult unmarshals the result payload into v.
func (r RawResponse) DecodeResult(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
