// Package mediarelay provides a stateless HTTP relay between browsers, a
// remote Record API holding user records, and a blob store holding the
// records' images.
//
// The relay owns no data. Every operation is a single forward to the Record
// API and/or the blob store, with light branching on the upstream status code.
//
// # Key Components
//
//   - Relay: orchestrates the list, image, create, get, update and delete flows
//   - RecordAPI: interface to the remote record service (see package recordapi)
//   - BlobStore: interface to key-addressed object storage (see packages s3store
//     and filesystem)
//
// # Image References
//
// Uploaded images are stored under the "users/" prefix of the blob store, but
// records only ever reference them through the relay's own route:
//
//	/images/<filename>
//
// This keeps the storage location and its access policy invisible to clients.
//
// # Example Usage
//
//	relay := mediarelay.NewRelay(apiClient, blobStore)
//
//	users, err := relay.ListUsers(ctx)
//
//	obj, err := relay.GetImage(ctx, "avatar.png")
//	defer obj.Body.Close()
//
// See the http package for the HTTP surface built on top of Relay.
package mediarelay
