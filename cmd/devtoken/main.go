// Command devtoken prints a bearer token for an address, signed with the
// server's configured JWT key. It refuses to run in production.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "arisan/internal/jwt_token"
	"arisan/internal/platform/config"
	id "arisan/pkg/domain"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("devtoken", flag.ContinueOnError)
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: devtoken [-ttl 1h] <address>")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if cfg.Environment == "production" {
		return fmt.Errorf("refusing to mint tokens in production")
	}
	caller, err := id.ParseAddress(fs.Arg(0))
	if err != nil {
		return err
	}

	token, err := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience).
		GenerateAccessToken(caller, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
