package bundler

import "fmt"

// BundlerError is an RPC-level rejection from the bundler (invalid
// nonce, insufficient balance, signature mismatch, ...). Fatal to the
// send attempt; the provider's message is carried verbatim so callers
// can distinguish causes. Retry policy belongs to the caller: a resend
// after an ambiguous failure risks a duplicate on-chain effect.
type BundlerError struct {
	Code    int
	Message string
}

func (e *BundlerError) Error() string {
	return fmt.Sprintf("bundler rejected operation (code %d): %s", e.Code, e.Message)
}

// TransportError is a network-level failure reaching the endpoint
// (timeout, DNS, connection refused). Fatal for bundler calls; the
// sponsorship chain absorbs it by falling through to the next provider.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
