package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password hashing algorithms
const (
	HasherSHA256 = "sha256"
	HasherBcrypt = "bcrypt"
)

// Password constraints
const (
	maxNameLength     = 100
	maxPasswordLength = 72 // bcrypt truncates beyond this
)

// Passwords hashes new passwords with the configured algorithm and verifies
// stored hashes of either format.
//
// The sha256 digest is unsalted. It is kept as the default so hashes written
// by existing deployments keep verifying; set the hasher to bcrypt for new
// installations.
type Passwords struct {
	algorithm string
	cost      int
}

// NewPasswords creates a password hasher for the given algorithm
func NewPasswords(algorithm string, cost int) (*Passwords, error) {
	switch algorithm {
	case "", HasherSHA256:
		algorithm = HasherSHA256
	case HasherBcrypt:
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHasher, algorithm)
	}
	return &Passwords{algorithm: algorithm, cost: cost}, nil
}

// Algorithm returns the algorithm used for new hashes
func (p *Passwords) Algorithm() string {
	return p.algorithm
}

// Hash returns the stored form of password
func (p *Passwords) Hash(password string) (string, error) {
	if p.algorithm == HasherBcrypt {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
		if err != nil {
			return "", err
		}
		return string(hash), nil
	}
	return legacyDigest(password), nil
}

// Verify reports whether password matches hash
func (p *Passwords) Verify(password, hash string) bool {
	if isBcryptHash(hash) {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	digest := legacyDigest(password)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(hash)) == 1
}

// legacyDigest is the lower-case hex SHA-256 of the UTF-8 password
func legacyDigest(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2")
}

func validateCredentials(name, password string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) > maxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
