// Package apiclient provides the HTTP client for the Glintly billing backend.
//
// Every request is authenticated with a bearer credential obtained from a
// TokenSource; a missing credential fails fast with ErrNoCredential before
// any network call. Mutating requests carry an X-Idempotency-Key header so
// retried submissions are safe on the backend side.
//
// Non-success responses are returned as *APIError carrying the status code
// and a best-effort message extracted from the backend error body.
package apiclient
