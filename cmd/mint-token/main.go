// Command mint-token signs a learner token for local testing. The secret is
// read from JWT_SECRET, or prompted for without echo when -prompt is set.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/stemsi/quizattempt/internal/config"
	"github.com/stemsi/quizattempt/internal/service"
	"golang.org/x/term"
)

func main() {
	var (
		learnerID string
		prompt    bool
		expiry    time.Duration
	)
	flag.StringVar(&learnerID, "learner", "", "Learner ID to embed in the token")
	flag.BoolVar(&prompt, "prompt", false, "Read the signing secret from the terminal")
	flag.DurationVar(&expiry, "expiry", 0, "Token lifetime (defaults to JWT_EXPIRY_HOURS)")
	flag.Parse()

	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		fmt.Fprintln(os.Stderr, "Usage: mint-token -learner <id> [-prompt] [-expiry 2h]")
		os.Exit(2)
	}

	cfg := config.Load()
	secret := cfg.JWTSecret
	if prompt {
		fmt.Fprint(os.Stderr, "JWT secret: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fatal("reading secret:", err)
		}
		secret = string(raw)
	}
	if secret == "" {
		fatal("empty secret")
	}
	if expiry <= 0 {
		expiry = cfg.JWTExpiry
	}

	token, err := service.NewAuthService(secret, expiry).IssueLearnerToken(learnerID)
	if err != nil {
		fatal(err)
	}
	fmt.Println(token)
	color.New(color.Faint).Fprintf(os.Stderr, "learner %s, expires in %s\n", learnerID, expiry)
}

func fatal(args ...any) {
	color.New(color.FgRed).Fprint(os.Stderr, "Error: ")
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}
