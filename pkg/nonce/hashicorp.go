package nonce

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-secure-stdlib/nonceutil"
)

type HashicorpNonceService struct {
	nonceService nonceutil.NonceService
}

// NewHashicorpNonceService returns the default in-process nonce service.
// Suitable for a single-instance deployment; use the Valkey service when
// running more than one instance.
func NewHashicorpNonceService(options Options) (*HashicorpNonceService, error) {
	nonceService := nonceutil.NewNonceService()
	if options.ExpirySeconds > 0 {
		nonceService = nonceutil.NewNonceServiceWithValidity(time.Duration(options.ExpirySeconds) * time.Second)
	}
	err := nonceService.Initialize()
	if err != nil {
		return nil, fmt.Errorf("could not initialize nonce service: %w", err)
	}
	return &HashicorpNonceService{nonceService}, nil
}

func (s *HashicorpNonceService) Get() (string, error) {
	nonceStr, _, err := s.nonceService.Get()
	if err != nil {
		return "", err
	}
	return nonceStr, nil
}

func (s *HashicorpNonceService) Redeem(nonceStr string) error {
	ok := s.nonceService.Redeem(nonceStr)
	if !ok {
		return ErrNotFound
	}
	return nil
}

var _ Service = (*HashicorpNonceService)(nil)
