// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2025 UnderNET

// Package ocra implements the OATH challenge-response algorithm described
// in RFC 6287. A suite descriptor such as OCRA-1:HOTP-SHA1-6:QN08 selects
// the keyed hash, the code length and the data inputs mixed into each
// computation; Suite evaluates descriptors directly and the
// ChallengeResponse types drive the one-way and mutual signature
// exchanges on top of it.
package ocra

import (
	"crypto/subtle"
	"fmt"
	"strings"
)

// Suite is a parsed OCRA suite. The descriptor string participates byte
// for byte in the HMAC message, so the suite retains it verbatim and
// peers must agree on it exactly.
type Suite struct {
	descriptor string
	crypto     CryptoFunction
	dataInput  DataInput
}

// ParseSuite parses an RFC 6287 suite descriptor of the form
// <algorithm>:<crypto function>:<data input>, for example
// OCRA-1:HOTP-SHA256-8:C-QN08-PSHA1.
func ParseSuite(descriptor string) (*Suite, error) {
	parts := strings.Split(descriptor, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: descriptor %q must have three colon-separated components", ErrSuite, descriptor)
	}
	if parts[0] != "OCRA-1" {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrSuite, parts[0])
	}
	cf, err := parseCryptoFunction(parts[1])
	if err != nil {
		return nil, err
	}
	di, err := parseDataInput(parts[2])
	if err != nil {
		return nil, err
	}
	return &Suite{descriptor: descriptor, crypto: cf, dataInput: di}, nil
}

// String returns the original descriptor.
func (s *Suite) String() string { return s.descriptor }

// CryptoFunction returns the parsed crypto function component.
func (s *Suite) CryptoFunction() CryptoFunction { return s.crypto }

// DataInput returns the parsed data input specification.
func (s *Suite) DataInput() DataInput { return s.dataInput }

// Compute derives the response code for key and the given inputs. The
// HMAC message is the descriptor, a zero byte, then the encoded inputs.
func (s *Suite) Compute(key []byte, in Input) (string, error) {
	msg, err := s.dataInput.message(s.descriptor, in)
	if err != nil {
		return "", err
	}
	return s.crypto.Compute(key, msg), nil
}

// Verify recomputes the code for the given inputs and compares candidate
// against it in constant time. A mismatch is (false, nil); an error means
// the inputs could not be evaluated at all.
func (s *Suite) Verify(candidate string, key []byte, in Input) (bool, error) {
	expected, err := s.Compute(key, in)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) == 1, nil
}
