// Package main mints bearer tokens for local testing of the gatekeeper API.
// Tokens are signed with JWT_SIGNING_KEY, or the dev key when it is unset.
//
// The server looks the subject up in its user store, so the user id must
// belong to an existing account (see SEED_DEMO_USERS) for the role to apply.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "gatekeeper/internal/jwt_token"
	"gatekeeper/internal/platform/config"
	"gatekeeper/pkg/domain"
)

const (
	tokenIssuer   = "gatekeeper"
	tokenAudience = "gatekeeper-api"
)

type tokenOutput struct {
	Token     string `json:"token"`
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	ExpiresIn string `json:"expires_in"`
}

func main() {
	userID := flag.String("user-id", "", "User ID (UUID). Generated if empty.")
	role := flag.String("role", "user", "Role claim: user, premium or admin")
	ttl := flag.Duration("ttl", 0, "Token lifetime (defaults to TOKEN_TTL)")
	asJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if err := run(*userID, *role, *ttl, *asJSON); err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}

func run(rawUserID, role string, ttl time.Duration, asJSON bool) error {
	cfg := config.FromEnv()
	if cfg.IsProduction() {
		return fmt.Errorf("refusing to mint tokens with ENVIRONMENT=%s", cfg.Environment)
	}
	if ttl <= 0 {
		ttl = cfg.TokenTTL
	}

	uid := domain.NewUserID()
	if rawUserID != "" {
		parsed, err := domain.ParseUserID(rawUserID)
		if err != nil {
			return err
		}
		uid = parsed
	}

	svc := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience, ttl)
	svc.SetEnv(cfg.Environment)
	token, err := svc.GenerateAccessToken(context.Background(), uid.String(), role)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	out := tokenOutput{Token: token, Type: "bearer", UserID: uid.String(), Role: role, ExpiresIn: ttl.String()}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Printf("User ID:    %s\n", out.UserID)
	fmt.Printf("Role:       %s\n", out.Role)
	fmt.Printf("Expires In: %s\n", out.ExpiresIn)
	if cfg.UsesDevSigningKey() {
		fmt.Println("Signing:    dev key")
	}
	fmt.Printf("\nAuthorization: Bearer %s\n", out.Token)
	return nil
}
