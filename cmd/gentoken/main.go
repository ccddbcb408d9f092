// gentoken mints a custom token for a user and exchanges it for a Firebase ID token,
// usable as a Bearer token against the API or with "dietctl login --token".
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"github.com/klipach/dietapp/auth"
	"github.com/klipach/dietapp/config"
	"github.com/klipach/dietapp/contract"
	"google.golang.org/api/option"
)

type SignInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

func main() {
	ctx := context.Background()
	uidPtr := flag.String("uid", "", "User UID for token generation")
	apiKeyPtr := flag.String("apikey", "", "Firebase API key for Identity Toolkit REST API")
	rolePtr := flag.String("role", "", "Optional role claim put into the token (USER or ADMIN)")
	keyPtr := flag.String("key", "./service_account_key.json", "Service account key, used when FIREBASE_CREDENTIALS_JSON is not set")
	flag.Parse()

	if *uidPtr == "" {
		log.Fatalf("Please provide a user UID using the -uid flag")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	opt := option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	if cfg.CredentialsJSON == "" {
		absPath, err := filepath.Abs(*keyPtr)
		if err != nil {
			log.Fatalf("failed to get absolute path: %v", err)
		}
		opt = option.WithCredentialsFile(absPath)
	}
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		log.Fatalf("error initializing app: %v", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("error getting Auth client: %v", err)
	}

	var customToken string
	if *rolePtr != "" {
		customToken, err = client.CustomTokenWithClaims(ctx, *uidPtr, auth.RoleClaims(contract.ParseUserRole(*rolePtr)))
	} else {
		customToken, err = client.CustomToken(ctx, *uidPtr)
	}
	if err != nil {
		log.Fatalf("error creating custom token: %v", err)
	}

	// Exchange custom token for an ID token using Firebase's REST API
	url := fmt.Sprintf("https://identitytoolkit.googleapis.com/v1/accounts:signInWithCustomToken?key=%s", *apiKeyPtr)
	payload := map[string]any{
		"token":             customToken,
		"returnSecureToken": true,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("error marshaling payload: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payloadBytes))
	if err != nil {
		log.Fatalf("error making POST request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Fatalf("non-OK HTTP status: %d, response: %s", resp.StatusCode, string(bodyBytes))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("error reading response body: %v", err)
	}

	var signInResp SignInResponse
	if err := json.Unmarshal(body, &signInResp); err != nil {
		log.Fatalf("error unmarshalling response: %v", err)
	}

	fmt.Println(signInResp.IDToken)
}
