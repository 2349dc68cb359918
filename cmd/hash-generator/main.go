// Command hash-generator prints bcrypt hashes for passwords, for seeding
// users by hand. Passwords are read from the arguments or, when none are
// given, one per line from stdin.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phrazzld/tracker-api/internal/domain"
	"github.com/phrazzld/tracker-api/internal/service/auth"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cost := pflag.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	pflag.Parse()

	if err := run(os.Stdin, os.Stdout, *cost, pflag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "hash-generator:", err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer, cost int, passwords []string) error {
	if len(passwords) == 0 {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
				passwords = append(passwords, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read passwords: %w", err)
		}
	}

	hasher := auth.NewBcryptHasher(cost)
	for i, password := range passwords {
		if err := domain.ValidatePassword(password); err != nil {
			return fmt.Errorf("password %d: %w", i+1, err)
		}
		hash, err := hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("password %d: %w", i+1, err)
		}
		fmt.Fprintln(out, hash)
	}
	return nil
}
