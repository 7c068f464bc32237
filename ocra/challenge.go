// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2025 UnderNET

package ocra

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewChallenge generates a uniformly random challenge question matching
// the suite's Q specification, of exactly the declared maximum length.
// Suites without a Q token cannot issue challenges.
func (s *Suite) NewChallenge() (string, error) {
	if s.dataInput.challenge == nil {
		return "", fmt.Errorf("%w: suite %q declares no challenge", ErrSuite, s.descriptor)
	}
	return s.dataInput.challenge.random()
}

func (c ChallengeSpec) random() (string, error) {
	var alphabet string
	switch c.Format {
	case ChallengeNumeric:
		alphabet = "0123456789"
	case ChallengeAlphanumeric:
		alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	case ChallengeHex:
		alphabet = "0123456789abcdef"
	default:
		return "", fmt.Errorf("%w: challenge format %q", ErrSuite, c.Format)
	}

	question := make([]byte, c.MaxLength)
	size := big.NewInt(int64(len(alphabet)))
	for i := range question {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generating challenge: %w", err)
		}
		question[i] = alphabet[n.Int64()]
	}
	return string(question), nil
}
