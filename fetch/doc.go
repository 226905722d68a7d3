/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package fetch provides an HTTP client that aborts requests on timeout,
// retries failed requests with backoff and limits the rate of outgoing requests.
// Every request gets the X-Request-ID header, URLs are logged with secrets masked.
package fetch
