// Command mint-jwt prints a bearer token accepted by the API, for local
// development and manual testing.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/auth"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/clock"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	_ = godotenv.Load()

	var (
		subject    string
		name       string
		customerID string
		roles      []string
		ttl        time.Duration
		key        string
		issuer     string
		audience   string
	)

	flagSet := pflag.NewFlagSet("mint-jwt", pflag.ContinueOnError)
	flagSet.StringVar(&subject, "sub", "dev-user", "subject claim")
	flagSet.StringVar(&name, "name", "", "display name used in audit records")
	flagSet.StringVar(&customerID, "customer", "", "customerId claim")
	flagSet.StringSliceVar(&roles, "role", nil, "role claim, repeatable (e.g. --role admin)")
	flagSet.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	flagSet.StringVar(&key, "key", os.Getenv("JWT_SIGNING_KEY"), "HS256 signing key (default: $JWT_SIGNING_KEY)")
	flagSet.StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "statement-delivery-dev"), "issuer claim")
	flagSet.StringVar(&audience, "audience", envOr("JWT_AUDIENCE", "statement-delivery-api"), "audience claim")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if strings.TrimSpace(customerID) == "" && len(roles) == 0 {
		return errors.New("either --customer or --role is required")
	}
	if ttl <= 0 {
		return errors.New("--ttl must be positive")
	}

	svc, err := auth.NewJWTService([]byte(key), issuer, audience, clock.Real())
	if err != nil {
		return err
	}

	token, err := svc.CreateToken(auth.Principal{
		Subject:    subject,
		Name:       name,
		CustomerID: customerID,
		Roles:      roles,
	}, ttl)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, token)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
