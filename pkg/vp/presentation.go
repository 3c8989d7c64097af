// Package vp decodes OpenID4VP presentation submissions into the credentials
// they carry. Signature verification is not done here; the data service is
// the verifying party and this package only extracts the claims for
// read-back by the shop frontend.
package vp

import (
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jws"
)

// Claim format designations as registered by the presentation exchange spec.
const (
	FormatLdpVP     = "ldp_vp"
	FormatJwtVPJson = "jwt_vp_json"
	FormatLdpVC     = "ldp_vc"
	FormatJwtVCJson = "jwt_vc_json"
)

// PresentationSubmission describes how the wallet mapped the requested
// presentation definition onto the vp_token.
type PresentationSubmission struct {
	ID            string       `json:"id"`
	DefinitionID  string       `json:"definition_id"`
	DescriptorMap []Descriptor `json:"descriptor_map"`
}

type Descriptor struct {
	ID         string      `json:"id"`
	Format     string      `json:"format"`
	Path       string      `json:"path"`
	PathNested *Descriptor `json:"path_nested,omitempty"`
}

type envelope struct {
	VPToken                json.RawMessage         `json:"vp_token"`
	PresentationSubmission *PresentationSubmission `json:"presentation_submission,omitempty"`
}

type presentation struct {
	VerifiableCredential []json.RawMessage `json:"verifiableCredential"`
}

// DecodeSubmission decodes a submission payload as returned by the data
// service. The vp_token is either an embedded JSON presentation (ldp_vp) or
// a compact JWS whose payload segment carries the presentation under the
// "vp" claim (jwt_vp_json); the nested credentials again come embedded
// (ldp_vc) or as compact tokens (jwt_vc_json). The format is taken from the
// presentation_submission descriptor map when present and derived from the
// token shape otherwise.
func DecodeSubmission(data []byte) ([]Credential, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unable to decode submission envelope: %w", err)
	}
	if len(env.VPToken) == 0 {
		return nil, fmt.Errorf("submission carries no vp_token")
	}

	format := vpFormat(&env)

	var pres presentation
	switch format {
	case FormatJwtVPJson:
		var token string
		if err := json.Unmarshal(env.VPToken, &token); err != nil {
			return nil, fmt.Errorf("vp_token is not a compact token: %w", err)
		}
		payload, err := compactPayload(token)
		if err != nil {
			return nil, fmt.Errorf("unable to decode vp_token: %w", err)
		}
		var claims struct {
			VP presentation `json:"vp"`
		}
		if err := json.Unmarshal(payload, &claims); err != nil {
			return nil, fmt.Errorf("unable to decode vp_token payload: %w", err)
		}
		pres = claims.VP
	case FormatLdpVP:
		if err := json.Unmarshal(env.VPToken, &pres); err != nil {
			return nil, fmt.Errorf("unable to decode embedded presentation: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported presentation format '%s'", format)
	}

	credentials := make([]Credential, 0, len(pres.VerifiableCredential))
	for i, raw := range pres.VerifiableCredential {
		credential, err := decodeCredential(raw)
		if err != nil {
			return nil, fmt.Errorf("unable to decode credential %d: %w", i, err)
		}
		credentials = append(credentials, credential)
	}

	return credentials, nil
}

// vpFormat decides the format of the vp_token, trusting the descriptor map
// over the token shape.
func vpFormat(env *envelope) string {
	if env.PresentationSubmission != nil {
		for _, descriptor := range env.PresentationSubmission.DescriptorMap {
			switch descriptor.Format {
			case FormatLdpVP, FormatJwtVPJson:
				return descriptor.Format
			}
		}
	}
	if len(env.VPToken) > 0 && env.VPToken[0] == '"' {
		return FormatJwtVPJson
	}
	return FormatLdpVP
}

func decodeCredential(raw json.RawMessage) (Credential, error) {
	if len(raw) > 0 && raw[0] == '"' {
		// jwt_vc_json: compact token, credential claims in the payload
		var token string
		if err := json.Unmarshal(raw, &token); err != nil {
			return nil, err
		}
		payload, err := compactPayload(token)
		if err != nil {
			return nil, err
		}
		var claims Credential
		if err := json.Unmarshal(payload, &claims); err != nil {
			return nil, fmt.Errorf("credential payload is not JSON: %w", err)
		}
		// some issuers nest the credential under the vc claim
		if nested, ok := claims["vc"].(map[string]any); ok {
			return Credential(nested), nil
		}
		return claims, nil
	}

	// ldp_vc: embedded JSON object
	var credential Credential
	if err := json.Unmarshal(raw, &credential); err != nil {
		return nil, err
	}
	return credential, nil
}

// compactPayload returns the decoded payload segment of a compact JWS.
func compactPayload(token string) ([]byte, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return nil, fmt.Errorf("unable to parse compact token: %w", err)
	}
	return message.Payload(), nil
}
