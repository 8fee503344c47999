package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/berthd/berth/internal/berth/store"
)

const (
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffixLength   = 4

	// maxSuffixAttempts bounds the collision retry loop. With 36^4
	// candidates per attempt, exhausting this means the registry is in a
	// pathological state worth surfacing.
	maxSuffixAttempts = 5
)

// Allocator derives unique deployment domains from user and stack names.
type Allocator struct {
	Store store.Store
}

// Allocate proposes a fully-qualified domain for a new deployment. The base
// form is "{user}-{stack}.{root}" with everything but alphanumerics
// stripped; when that domain is taken, a random 4-character suffix is
// appended and re-rolled until a free name is found.
//
// Only the caller's atomic check-and-insert makes the name authoritative: a
// concurrent deploy can still grab the proposed domain between this check
// and the registry insert.
func (a *Allocator) Allocate(ctx context.Context, username, stackName, rootDomain string) (string, error) {
	base := Normalize(username) + "-" + Normalize(stackName)

	candidate := base + "." + rootDomain
	taken, err := a.Store.Deployments().DomainExists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	for range maxSuffixAttempts {
		suffix, err := randomSuffix()
		if err != nil {
			return "", err
		}
		candidate = base + "-" + suffix + "." + rootDomain

		taken, err := a.Store.Deployments().DomainExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no free domain under %q for base %q", rootDomain, base)
}

// Normalize strips everything but alphanumerics and lowercases the rest,
// matching how subdomain labels are derived from usernames and stack names.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func randomSuffix() (string, error) {
	out := make([]byte, suffixLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(suffixAlphabet))))
		if err != nil {
			return "", err
		}
		out[i] = suffixAlphabet[n.Int64()]
	}
	return string(out), nil
}
