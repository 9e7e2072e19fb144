// Package recordapi provides an HTTP client for the remote Record API that
// owns user records.
//
// The client performs one request per call and returns the raw status code
// and body as a mediarelay.UpstreamResponse. It never interprets status codes:
// 2xx, 4xx and 5xx responses are all returned without error, so the relay can
// branch on them. An error is returned only when no response was obtained.
//
// # Endpoints
//
//	GET    {base}               List
//	GET    {base}?email={email} FindByEmail
//	POST   {base}               Create
//	GET    {base}/{id}          Get
//	PUT    {base}/{id}          Update
//	DELETE {base}/{id}          Delete
//
// # Usage
//
//	client, err := recordapi.New(&recordapi.Config{BaseURL: "https://api.example.com/users"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Get(ctx, "42")
package recordapi
