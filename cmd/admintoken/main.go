package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"feedbackhub/internal/admintoken"
)

func main() {
	subject := flag.String("subject", "", "admin subject to embed in the token")
	issuer := flag.String("issuer", "feedbackhub", "token issuer")
	audience := flag.String("audience", "feedbackhub-admin", "token audience")
	ttl := flag.Duration("ttl", admintoken.DefaultTokenTTL, "token lifetime")
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "usage: admintoken -subject <name> [-ttl 12h]")
		os.Exit(2)
	}
	secret := os.Getenv("ADMIN_TOKEN_SECRET")
	if secret == "" {
		exitErr(fmt.Errorf("ADMIN_TOKEN_SECRET must be set"))
	}

	signer, err := admintoken.NewSigner(admintoken.SignerOptions{
		Secret:   secret,
		Issuer:   *issuer,
		Audience: *audience,
		TTL:      *ttl,
	})
	if err != nil {
		exitErr(err)
	}
	token, err := signer.Sign(*subject)
	if err != nil {
		exitErr(err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires: %s\n", time.Now().UTC().Add(*ttl).Format(time.RFC3339))
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
