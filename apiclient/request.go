package apiclient

import (
	"net/http"
	"net/url"
)

// Request is one logical backend call. It is reissued unchanged on retry.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// attempt records which retries a logical request has already used. It is
// passed by value so a retried send cannot reset the flags of its caller.
// accessToken pins the credential obtained by the refresh that triggered an
// auth retry; empty means resolve it from the store.
type attempt struct {
	authRetried bool
	rateRetried bool
	accessToken string
}

func (a attempt) afterAuthRetry(accessToken string) attempt {
	a.authRetried = true
	a.accessToken = accessToken
	return a
}

func (a attempt) afterRateRetry() attempt {
	a.rateRetried = true
	return a
}

// Header names attached to every outbound request.
const (
	HeaderRequestID        = "X-Request-ID"
	HeaderRequestTimestamp = "X-Request-Timestamp"
)
