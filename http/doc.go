// Package http exposes the media relay over HTTP.
//
// The router serves a server-rendered listing page, streams stored images,
// accepts multipart create requests and relays record reads, updates and
// deletes to the Record API:
//
//	GET    /                        listing page
//	GET    /images/{filename...}    image bytes, plain-text 404 on any failure
//	POST   /users                   multipart create, 302 to / on success
//	GET    /users/{id}              record passthrough
//	PUT    /users/{id}              update, PATCH is an alias
//	DELETE /users/{id}              delete, /users/{id}/delete is an alias
//	GET    /healthz                 liveness
//	GET    /metrics                 Prometheus, when HandlerConfig.Metrics is set
//
// Record ids are decimal; any other id is a 404 from the router.
//
// # Usage
//
//	relay := mediarelay.NewRelay(api, blobs)
//	handler := http.NewHandler(&http.HandlerConfig{
//	    MaxUploadSize: 10 << 20,
//	    Metrics:       metrics.New(),
//	}, relay)
//	http.ListenAndServe(":8000", handler.Router())
//
// Every request gets an X-Request-ID header and one structured log line.
package http
