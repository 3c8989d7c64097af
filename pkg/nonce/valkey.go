package nonce

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const nonceBits = 256

const defaultExpirySeconds = 180

type ValkeyNonceService struct {
	options      Options
	valkeyClient valkey.Client
}

// NewValkeyNonceService stores nonces in Valkey so that the completion
// callback may land on a different instance than the one that minted the
// nonce.
func NewValkeyNonceService(valkeyClient valkey.Client, options Options) (*ValkeyNonceService, error) {
	if options.ExpirySeconds <= 0 {
		options.ExpirySeconds = defaultExpirySeconds
	}
	return &ValkeyNonceService{
		options:      options,
		valkeyClient: valkeyClient,
	}, nil
}

func (v *ValkeyNonceService) Get() (string, error) {
	randomBytes := make([]byte, nonceBits/8)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}

	nonce := base64.RawURLEncoding.EncodeToString(randomBytes)

	ctx := context.Background()
	expiryDuration := time.Duration(v.options.ExpirySeconds) * time.Second
	err = v.valkeyClient.Do(ctx, v.valkeyClient.B().Set().Key("nonce:"+nonce).Value("").Ex(expiryDuration).Build()).Error()
	if err != nil {
		return "", fmt.Errorf("storing nonce in Valkey: %w", err)
	}

	return nonce, nil
}

func (v *ValkeyNonceService) Redeem(nonce string) error {
	ctx := context.Background()
	cmd := v.valkeyClient.B().Exists().Key("nonce:" + nonce).Build()
	result := v.valkeyClient.Do(ctx, cmd)
	if result.Error() != nil {
		return fmt.Errorf("checking if nonce exists in Valkey: %w", result.Error())
	}
	exists, err := result.AsBool()
	if err != nil {
		return fmt.Errorf("checking if nonce exists in Valkey: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	cmd = v.valkeyClient.B().Del().Key("nonce:" + nonce).Build()
	err = v.valkeyClient.Do(ctx, cmd).Error()
	if err != nil {
		return fmt.Errorf("deleting nonce from Valkey: %w", err)
	}

	return nil
}

var _ Service = (*ValkeyNonceService)(nil)
