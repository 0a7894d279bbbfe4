package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Supported command types.
const (
	TypeGetSessionInfo   = "get_session_info"
	TypeCreateAudioTrack = "create_audio_track"
	TypeLoadAudioFile    = "load_audio_file"
	TypeGetTrackInfo     = "get_track_info"
)

// AppendIndex asks CreateAudioTrack to place the track after all others.
const AppendIndex = -1

// Command is one of GetSessionInfo, CreateAudioTrack, LoadAudioFile or
// GetTrackInfo.
type Command interface {
	Type() string
	command()
}

type GetSessionInfo struct{}

type CreateAudioTrack struct {
	// Index is the insertion position, or AppendIndex.
	Index int
}

// LoadAudioFile creates a clip in the target slot. FilePath is carried for
// the host; the server does not read the file.
type LoadAudioFile struct {
	FilePath      string
	TrackIndex    int
	ClipSlotIndex int
}

type GetTrackInfo struct {
	TrackIndex int
}

func (GetSessionInfo) Type() string   { return TypeGetSessionInfo }
func (CreateAudioTrack) Type() string { return TypeCreateAudioTrack }
func (LoadAudioFile) Type() string    { return TypeLoadAudioFile }
func (GetTrackInfo) Type() string     { return TypeGetTrackInfo }

func (GetSessionInfo) command()   {}
func (CreateAudioTrack) command() {}
func (LoadAudioFile) command()    {}
func (GetTrackInfo) command()     {}

// Request is a decoded request envelope.
type Request struct {
	ID      string
	Command Command
}

// envelope is the request wire format.
type envelope struct {
	Type   *string         `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     string          `json:"id,omitempty"`
}

type createAudioTrackParams struct {
	Index *int `json:"index"`
}

type loadAudioFileParams struct {
	FilePath      *string `json:"file_path"`
	TrackIndex    *int    `json:"track_index"`
	ClipSlotIndex *int    `json:"clip_slot_index"`
}

type getTrackInfoParams struct {
	TrackIndex *int `json:"track_index"`
}

// DecodeRequest parses one frame into a Request. On a validation error the
// returned Request still carries the envelope ID when one was present.
func DecodeRequest(data []byte) (Request, error) {
	if !utf8.Valid(data) {
		return Request{}, &DecodeError{Err: errors.New("request is not valid UTF-8")}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Request{}, &DecodeError{Err: err}
	}
	req := Request{ID: env.ID}

	if env.Type == nil || *env.Type == "" {
		return req, ErrMissingType
	}

	cmd, err := decodeCommand(*env.Type, env.Params)
	if err != nil {
		return req, err
	}
	req.Command = cmd
	return req, nil
}

func decodeCommand(typ string, params json.RawMessage) (Command, error) {
	switch typ {
	case TypeGetSessionInfo:
		return GetSessionInfo{}, nil

	case TypeCreateAudioTrack:
		var p createAudioTrackParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		cmd := CreateAudioTrack{Index: AppendIndex}
		if p.Index != nil {
			if *p.Index < AppendIndex {
				return nil, &ParamError{Name: "index", Reason: "must be -1 or a non-negative integer"}
			}
			cmd.Index = *p.Index
		}
		return cmd, nil

	case TypeLoadAudioFile:
		var p loadAudioFileParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		if p.FilePath == nil || *p.FilePath == "" {
			return nil, &ParamError{Name: "file_path", Reason: "is required"}
		}
		cmd := LoadAudioFile{FilePath: *p.FilePath}
		var err error
		if cmd.TrackIndex, err = indexOrDefault("track_index", p.TrackIndex); err != nil {
			return nil, err
		}
		if cmd.ClipSlotIndex, err = indexOrDefault("clip_slot_index", p.ClipSlotIndex); err != nil {
			return nil, err
		}
		return cmd, nil

	case TypeGetTrackInfo:
		var p getTrackInfoParams
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
		idx, err := indexOrDefault("track_index", p.TrackIndex)
		if err != nil {
			return nil, err
		}
		return GetTrackInfo{TrackIndex: idx}, nil

	default:
		return nil, &UnknownCommandError{Type: typ}
	}
}

// decodeParams unmarshals an optional params object. Absent or null params
// leave v at its zero value.
func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 || bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field == "" {
				return &ParamError{Name: "params", Reason: "must be an object"}
			}
			return &ParamError{Name: typeErr.Field, Reason: fmt.Sprintf("has invalid type %s (want %s)", typeErr.Value, typeErr.Type)}
		}
		return &ParamError{Name: "params", Reason: err.Error()}
	}
	return nil
}

func indexOrDefault(name string, v *int) (int, error) {
	if v == nil {
		return 0, nil
	}
	if *v < 0 {
		return 0, &ParamError{Name: name, Reason: "must be a non-negative integer"}
	}
	return *v, nil
}
