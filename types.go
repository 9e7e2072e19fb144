package mediarelay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// RecordID is the identifier the Record API assigns to a user.
// It accepts both JSON numbers and JSON strings.
type RecordID string

func (id *RecordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("record id: %w", err)
		}
		*id = RecordID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("record id: %w", err)
		}
		*id = RecordID(n.String())
	}
	return nil
}

// UserRecord is a user as stored by the Record API.
type UserRecord struct {
	ID          RecordID `json:"id,omitempty"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Institution string   `json:"institution"`
	Position    string   `json:"position"`
	Phone       string   `json:"phone"`
	ImageURL    string   `json:"image_url"`
}

// ImageUpload is an image attached to a create request.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// CreateUser holds the submitted form of a new user.
type CreateUser struct {
	Name        string
	Email       string
	Institution string
	Position    string
	Phone       string
	Image       *ImageUpload // nil when no file was attached
}

// Object is a blob read from the blob store.
// The caller must close Body.
type Object struct {
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Reply is a relay response for the JSON passthrough endpoints.
type Reply struct {
	StatusCode int
	Body       any
}

// PayloadShape tells how a listing payload carries its records.
type PayloadShape int

const (
	// ShapeRaw means the whole payload is the record list.
	ShapeRaw PayloadShape = iota
	// ShapeBodyList means the list sits in the "body" field.
	ShapeBodyList
	// ShapeBodyString means the "body" field is a JSON string holding the list.
	ShapeBodyString
)

func (s PayloadShape) String() string {
	switch s {
	case ShapeBodyList:
		return "body-list"
	case ShapeBodyString:
		return "body-string"
	default:
		return "raw"
	}
}

// ListPayload is the decoded response of the Record API listing endpoint.
type ListPayload struct {
	Shape PayloadShape
	data  json.RawMessage
}

// ParseListPayload inspects a listing payload and records which shape it has.
func ParseListPayload(data []byte) (ListPayload, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return ListPayload{}, fmt.Errorf("parse list payload: %w: malformed json", ErrInvalidInput)
	}

	if len(data) > 0 && data[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return ListPayload{}, fmt.Errorf("parse list payload: %w", err)
		}
		if body, ok := fields["body"]; ok {
			body = bytes.TrimSpace(body)
			if len(body) > 0 && body[0] == '"' {
				return ListPayload{Shape: ShapeBodyString, data: body}, nil
			}
			return ListPayload{Shape: ShapeBodyList, data: body}, nil
		}
	}

	return ListPayload{Shape: ShapeRaw, data: data}, nil
}

// Users decodes the records according to the payload shape.
// A body-string payload is decoded exactly one level.
func (p ListPayload) Users() ([]UserRecord, error) {
	list := []byte(p.data)

	if p.Shape == ShapeBodyString {
		var inner string
		if err := json.Unmarshal(p.data, &inner); err != nil {
			return nil, fmt.Errorf("decode body string: %w", err)
		}
		list = []byte(inner)
	}

	list = bytes.TrimSpace(list)
	if len(list) == 0 || bytes.Equal(list, []byte("null")) {
		return []UserRecord{}, nil
	}

	var users []UserRecord
	if err := json.Unmarshal(list, &users); err != nil {
		return nil, fmt.Errorf("decode %s users: %w", p.Shape, err)
	}
	return users, nil
}

// UpstreamResponse is a raw Record API response.
type UpstreamResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the upstream answered with a 2xx status.
func (r UpstreamResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// MessageBody is the JSON body of a successful passthrough operation.
type MessageBody struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ErrorBody is the JSON body of a failed passthrough operation.
type ErrorBody struct {
	Error string `json:"error"`
}
