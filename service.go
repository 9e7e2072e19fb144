package mediarelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Response messages returned to clients.
const (
	MsgEmailExists     = "Email already exists"
	MsgUserDeleted     = "User deleted successfully"
	MsgUserUpdated     = "User updated successfully"
	MsgUpdateFailed    = "Failed to update user"
	MsgUnexpectedEmpty = "Unexpected empty response"
)

const defaultImageContentType = "application/octet-stream"

// RecordAPI defines the calls the relay makes against the remote record service.
//
// Implementations return an error only when no response was obtained
// (transport failure, cancelled context). Any HTTP status, including 4xx and
// 5xx, is reported through UpstreamResponse so the relay can branch on it.
type RecordAPI interface {
	// List fetches every record (GET base).
	List(ctx context.Context) (UpstreamResponse, error)

	// FindByEmail queries records filtered by email (GET base?email=).
	// A 409 status signals that the email is already taken.
	FindByEmail(ctx context.Context, email string) (UpstreamResponse, error)

	// Create submits a new record (POST base). A 409 status signals a duplicate email.
	Create(ctx context.Context, rec UserRecord) (UpstreamResponse, error)

	// Get fetches one record (GET base/{id}).
	Get(ctx context.Context, id string) (UpstreamResponse, error)

	// Update replaces one record with the given JSON document (PUT base/{id}).
	Update(ctx context.Context, id string, body json.RawMessage) (UpstreamResponse, error)

	// Delete removes one record (DELETE base/{id}). 204 signals success.
	Delete(ctx context.Context, id string) (UpstreamResponse, error)
}

// BlobStore defines key-addressed object storage for images.
//
// Implementations can use S3, the local filesystem, or any other backend.
// All methods accept a context for cancellation.
type BlobStore interface {
	// Get opens the object stored under key. The caller closes Object.Body.
	// Returns ErrNotFound if no object exists under key.
	Get(ctx context.Context, key string) (Object, error)

	// Put stores content under key with the given content type, overwriting
	// any existing object. size is the content length, or -1 if unknown.
	Put(ctx context.Context, key, contentType string, content io.Reader, size int64) error
}

// Relay forwards client operations to the Record API and the blob store.
// It holds no mutable state and is safe for concurrent use.
type Relay struct {
	api   RecordAPI
	blobs BlobStore
}

// NewRelay creates a Relay over the given long-lived clients.
func NewRelay(api RecordAPI, blobs BlobStore) *Relay {
	return &Relay{
		api:   api,
		blobs: blobs,
	}
}

// ListUsers fetches all records and decodes them according to the payload
// shape (body string, body list, or raw list).
func (r *Relay) ListUsers(ctx context.Context) ([]UserRecord, error) {
	resp, err := r.api.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	// The body is decoded whatever the status; only an undecodable payload fails.
	if !resp.OK() {
		slog.Warn("list users: upstream returned error status", "status", resp.StatusCode)
	}

	// A payload the relay cannot decode is an upstream fault, not bad input.
	payload, err := ParseListPayload(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("list users: %w: %v", ErrInternal, err)
	}

	users, err := payload.Users()
	if err != nil {
		return nil, fmt.Errorf("list users: %w: %v", ErrInternal, err)
	}

	slog.Debug("listed users", "count", len(users), "shape", payload.Shape)
	return users, nil
}

// GetImage opens the image stored for filename.
// Any failure is returned as is; callers do not distinguish causes.
func (r *Relay) GetImage(ctx context.Context, filename string) (Object, error) {
	if !IsValidFilename(filename) {
		return Object{}, fmt.Errorf("get image %q: %w", filename, ErrInvalidInput)
	}

	obj, err := r.blobs.Get(ctx, ImageKey(filename))
	if err != nil {
		return Object{}, fmt.Errorf("get image %q: %w", filename, err)
	}

	return obj, nil
}

// CreateUser creates a record, uploading its image first.
//
// The method performs the following steps:
//  1. Pre-checks the email with the Record API; a 409 returns ErrEmailExists
//     before anything is uploaded
//  2. Uploads the image (if any) under ImageKey; a failure returns *UploadError
//     and the record is not created
//  3. Points the record's image_url at the relay route (ImageURL)
//  4. Creates the record; a 409 returns ErrEmailExists
//
// The pre-check and the create are not atomic. The create call's own 409 is
// authoritative.
func (r *Relay) CreateUser(ctx context.Context, in CreateUser) (UserRecord, error) {
	check, err := r.api.FindByEmail(ctx, in.Email)
	if err != nil {
		return UserRecord{}, fmt.Errorf("create user: check email: %w", err)
	}
	if check.StatusCode == http.StatusConflict {
		return UserRecord{}, fmt.Errorf("create user: %w", ErrEmailExists)
	}

	imageURL := ""
	if in.Image != nil {
		if !IsValidFilename(in.Image.Filename) {
			return UserRecord{}, fmt.Errorf("create user: image filename %q: %w", in.Image.Filename, ErrInvalidInput)
		}

		contentType := in.Image.ContentType
		if contentType == "" {
			contentType = defaultImageContentType
		}

		key := ImageKey(in.Image.Filename)
		if err := r.blobs.Put(ctx, key, contentType, in.Image.Content, in.Image.Size); err != nil {
			return UserRecord{}, &UploadError{Key: key, Err: err}
		}
		slog.Info("uploaded image", "key", key, "content_type", contentType, "size", in.Image.Size)

		imageURL = ImageURL(in.Image.Filename)
	}

	rec := UserRecord{
		Name:        in.Name,
		Email:       in.Email,
		Institution: in.Institution,
		Position:    in.Position,
		Phone:       in.Phone,
		ImageURL:    imageURL,
	}

	resp, err := r.api.Create(ctx, rec)
	if err != nil {
		return UserRecord{}, fmt.Errorf("create user: %w", err)
	}
	if resp.StatusCode == http.StatusConflict {
		return UserRecord{}, fmt.Errorf("create user: %w", ErrEmailExists)
	}
	if !resp.OK() {
		return UserRecord{}, &UpstreamError{Op: "create user", StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var created UserRecord
	if json.Unmarshal(resp.Body, &created) == nil && created.ID != "" {
		rec.ID = created.ID
	}

	return rec, nil
}

// GetUser fetches a record and passes the upstream body and status through.
func (r *Relay) GetUser(ctx context.Context, id string) (Reply, error) {
	resp, err := r.api.Get(ctx, id)
	if err != nil {
		return Reply{}, fmt.Errorf("get user %s: %w", id, err)
	}

	if !json.Valid(resp.Body) {
		return Reply{}, &UpstreamError{Op: "get user " + id, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	return Reply{StatusCode: resp.StatusCode, Body: json.RawMessage(resp.Body)}, nil
}

// UpdateUser replaces a record with body.
// Upstream 200 is echoed with the updated data; any other status becomes a
// generic failure carrying that status.
func (r *Relay) UpdateUser(ctx context.Context, id string, body json.RawMessage) (Reply, error) {
	if !json.Valid(body) {
		return Reply{}, fmt.Errorf("update user %s: %w: body is not json", id, ErrInvalidInput)
	}

	resp, err := r.api.Update(ctx, id, body)
	if err != nil {
		return Reply{}, fmt.Errorf("update user %s: %w", id, err)
	}

	if resp.StatusCode != http.StatusOK {
		return Reply{StatusCode: resp.StatusCode, Body: ErrorBody{Error: MsgUpdateFailed}}, nil
	}

	if !json.Valid(resp.Body) {
		return Reply{}, &UpstreamError{Op: "update user " + id, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	return Reply{
		StatusCode: http.StatusOK,
		Body:       MessageBody{Message: MsgUserUpdated, Data: json.RawMessage(resp.Body)},
	}, nil
}

// DeleteUser removes a record.
// Upstream 204 becomes 200 with a success message. Other statuses pass the
// JSON body through, or a generic error if the body is empty or not JSON.
func (r *Relay) DeleteUser(ctx context.Context, id string) (Reply, error) {
	resp, err := r.api.Delete(ctx, id)
	if err != nil {
		return Reply{}, fmt.Errorf("delete user %s: %w", id, err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return Reply{StatusCode: http.StatusOK, Body: MessageBody{Message: MsgUserDeleted}}, nil
	}

	if len(resp.Body) == 0 || !json.Valid(resp.Body) {
		return Reply{StatusCode: resp.StatusCode, Body: ErrorBody{Error: MsgUnexpectedEmpty}}, nil
	}

	return Reply{StatusCode: resp.StatusCode, Body: json.RawMessage(resp.Body)}, nil
}

// IsUploadError reports whether err came from a failed image upload.
func IsUploadError(err error) bool {
	var uploadErr *UploadError
	return errors.As(err, &uploadErr)
}
