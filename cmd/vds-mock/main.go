// vds-mock emulates the verifiable data service for local development: it
// issues authrequest ids and answers every result fetch with a canned,
// signed presentation submission, so the full session flow runs without the
// real services.
package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/identinet/demoshop/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/segmentio/ksuid"
)

type authRequest struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)

	address := config.GetEnv("VDS_MOCK_ADDRESS", ":8093")
	signingKey := []byte(config.GetEnv("VDS_MOCK_SIGNING_KEY", "vds-mock-dev-signing-key"))

	var lock sync.Mutex
	nonces := map[string]string{}

	e := echo.New()
	e.HideBanner = true

	e.POST("/v1/authrequests", func(c echo.Context) error {
		nonce := c.QueryParam("nonce")
		id := ksuid.New().String()
		lock.Lock()
		nonces[id] = nonce
		lock.Unlock()
		slog.Info("created authrequest", "id", id, "nonce", nonce)
		return c.JSON(http.StatusCreated, authRequest{
			ID:  id,
			URL: "openid4vp://authorize?request_uri=http://localhost" + address + "/v1/authorize/" + id,
		})
	})

	e.GET("/v1/authrequests/:id", func(c echo.Context) error {
		id := c.Param("id")
		lock.Lock()
		nonce, ok := nonces[id]
		lock.Unlock()
		if !ok {
			return c.NoContent(http.StatusNotFound)
		}

		token, err := signedPresentation(signingKey, nonce)
		if err != nil {
			return err
		}
		slog.Info("returning canned submission", "id", id)
		return c.JSON(http.StatusOK, map[string]any{
			"vp_token": token,
			"presentation_submission": map[string]any{
				"id":            ksuid.New().String(),
				"definition_id": "demo-shop-definition",
				"descriptor_map": []map[string]any{
					{"id": "demo-shop-credentials", "format": "jwt_vp_json", "path": "$"},
				},
			},
		})
	})

	e.Logger.Fatal(e.Start(address))
}

func signedPresentation(key []byte, nonce string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"nonce": nonce,
		"vp": map[string]any{
			"@context": []string{"https://www.w3.org/2018/credentials/v1"},
			"type":     []string{"VerifiablePresentation"},
			"verifiableCredential": []any{
				map[string]any{
					"@context": []string{"https://www.w3.org/2018/credentials/v1", "https://schema.org"},
					"type":     []string{"VerifiableCredential", "schema:Organization"},
					"issuer":   "did:web:identinet.io",
					"credentialSubject": map[string]any{
						"schema:name":         "Demo Shop",
						"schema:foundingDate": "2014-03-01",
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}

	signed, err := jws.Sign(payload, jws.WithKey(jwa.HS256, key))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}
