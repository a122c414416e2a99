// Package apiclient issues GET, POST and arbitrary-method calls against one
// base URL through a pluggable transport.
//
// Every call runs a hook pipeline:
//
//	Before -> RequestOpts -> transport (Retry loop) -> Results -> After
//
// Get additionally consults the Cache hook before anything else. Hooks are
// best-effort: a hook that returns an error or panics is logged and counted,
// then treated as if it had not been set for that step. After runs exactly
// once for every call that reaches Before.
//
// Transport failures never surface as the error returned by Call. They are
// stored on the CallContext and the Results hook decides what the call
// returns; by default that is the response on success and nil on failure.
//
// In mock mode the transport is never used. The handler registered for the
// lowercase method is invoked after a random delay and its value returned.
//
// The base URL and default headers are read once when a call starts, so
// SetURL and SetHeader only affect calls that start afterwards.
//
// Example:
//
//	client, err := apiclient.New(apiclient.Config{
//		URL:           "https://api.example.com",
//		TransportName: transport.NameRequest,
//		MaxAttempts:   3,
//	})
//	if err != nil {
//		return err
//	}
//	res, _ := client.Get(ctx, "/users", apiclient.Args{"id": 1}, apiclient.CallOptions{Retry: true})
package apiclient
