// Package nonce mints the single-use tokens that bind a wallet completion
// callback to the authorization session it belongs to.
package nonce

import "errors"

var ErrNotFound = errors.New("nonce not found")

type Options struct {
	// Nonces older than this are no longer redeemable. Zero means the
	// implementation default.
	ExpirySeconds int64
}

type Service interface {
	// Get mints a fresh nonce.
	Get() (string, error)
	// Redeem invalidates the nonce. Redeeming an unknown, expired or
	// already redeemed nonce returns ErrNotFound.
	Redeem(nonceStr string) error
}
