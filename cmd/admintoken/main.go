// Command admintoken mints a JWT for the /v1/admin endpoints.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/seat-hold-reservation/internal/utils"
)

func main() {
	_ = godotenv.Load()

	defaultTTL := 60
	if v, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_TTL_MIN")); err == nil && v > 0 {
		defaultTTL = v
	}

	secret := pflag.StringP("secret", "s", os.Getenv("JWT_SECRET"), "signing secret (defaults to $JWT_SECRET)")
	subject := pflag.String("subject", "ops", "token subject")
	ttl := pflag.IntP("ttl", "t", defaultTTL, "lifetime in minutes")
	pflag.Parse()

	tok, err := utils.NewAccessToken(*secret, *subject, utils.RoleAdmin, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "admintoken:", err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
