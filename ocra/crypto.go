// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2025 UnderNET

package ocra

import (
	"crypto/hmac"
	"fmt"
	"strconv"
	"strings"

	"github.com/undernetirc/oath/hotp"
)

// CryptoFunction is the second component of a suite descriptor,
// HOTP-<hash>-<digits>: a keyed hash followed by dynamic truncation to a
// decimal code. Truncation 0 renders the full 31-bit value unpadded.
type CryptoFunction struct {
	hash       Hash
	truncation int
}

// Hash returns the keyed-hash algorithm.
func (cf CryptoFunction) Hash() Hash { return cf.hash }

// Truncation returns the configured code length, 0 meaning untruncated.
func (cf CryptoFunction) Truncation() int { return cf.truncation }

// Compute runs the keyed hash over message and truncates the digest.
func (cf CryptoFunction) Compute(key, message []byte) string {
	mac := hmac.New(cf.hash.New, key)
	mac.Write(message)
	return hotp.Decimal(mac.Sum(nil), cf.truncation)
}

func (cf CryptoFunction) String() string {
	return fmt.Sprintf("HOTP-%s-%d", cf.hash, cf.truncation)
}

func parseCryptoFunction(s string) (CryptoFunction, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return CryptoFunction{}, fmt.Errorf("%w: crypto function %q must have three dash-separated fields", ErrSuite, s)
	}
	if parts[0] != "HOTP" {
		return CryptoFunction{}, fmt.Errorf("%w: unknown crypto function kind %q", ErrSuite, parts[0])
	}
	h, err := ParseHash(parts[1])
	if err != nil {
		return CryptoFunction{}, err
	}
	// Dynamic truncation reads four bytes at an offset of up to 15, so
	// the digest must be at least 20 bytes.
	if h.Size() < 20 {
		return CryptoFunction{}, fmt.Errorf("%w: hash %s digest too short for truncation", ErrSuite, h)
	}
	t, err := strconv.Atoi(parts[2])
	if err != nil || t < 0 || t > 10 {
		return CryptoFunction{}, fmt.Errorf("%w: truncation length %q must be an integer in 0..10", ErrSuite, parts[2])
	}
	return CryptoFunction{hash: h, truncation: t}, nil
}
