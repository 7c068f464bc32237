// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2024 UnderNET

// Package hotp implements the HMAC-based one-time password algorithm
// described in RFC 4226, including the dynamic truncation primitives
// shared with the OCRA challenge-response algorithm.
package hotp

import (
	"crypto/hmac"

	// SHA1 is required by RFC 4226 (HOTP) and RFC 6238 (TOTP)
	// nolint:gosec // SHA1 is used as part of HMAC-SHA1 which is still secure for this use case
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"hash"
	"strconv"
)

// OTP generates and validates one-time passwords for a shared secret key.
type OTP struct {
	key    []byte
	digits int
	hash   func() hash.Hash
}

// New returns an OTP using HMAC-SHA1, the hash mandated by RFC 4226.
// digits is the length of generated codes; values outside 1..10 render
// the full decimal value of the truncated digest without padding.
func New(key []byte, digits int) *OTP {
	return NewWithHash(key, digits, sha1.New)
}

// NewWithHash returns an OTP computed with an alternate hash constructor
// such as sha256.New or sha512.New.
func NewWithHash(key []byte, digits int, h func() hash.Hash) *OTP {
	return &OTP{key: key, digits: digits, hash: h}
}

// Generate computes the code for the given moving factor.
func (o *OTP) Generate(counter uint64) string {
	mac := hmac.New(o.hash, o.key)
	mac.Write(itob(counter))
	return Decimal(mac.Sum(nil), o.digits)
}

// Validate compares code against the expected value for counter in
// constant time.
func (o *OTP) Validate(code string, counter uint64) bool {
	return subtle.ConstantTimeCompare([]byte(code), []byte(o.Generate(counter))) == 1
}

// Accept searches the window [counter-lookBehind, counter+lookAhead] for
// a counter value matching code. On a match it returns true and the next
// counter the caller should persist (one past the matched value); on
// failure it returns false and counter unchanged. Accepting already used
// counters through lookBehind weakens the scheme and should normally be
// left at zero.
func (o *OTP) Accept(code string, counter, lookAhead, lookBehind uint64) (bool, uint64) {
	start := uint64(0)
	if counter > lookBehind {
		start = counter - lookBehind
	}
	for c := start; c <= counter+lookAhead; c++ {
		if o.Validate(code, c) {
			return true, c + 1
		}
	}
	return false, counter
}

// Truncate applies the RFC 4226 dynamic truncation to digest: the low
// four bits of the final byte select an offset, four bytes starting
// there are read big-endian and the sign bit is masked off. The digest
// must be at least 20 bytes so every offset stays in range.
func Truncate(digest []byte) uint32 {
	if len(digest) < sha1.Size {
		panic(fmt.Sprintf("hotp: digest must be at least %d bytes, got %d", sha1.Size, len(digest)))
	}
	offset := digest[len(digest)-1] & 0xf
	v := binary.BigEndian.Uint32(digest[offset : offset+4])
	return v & 0x7fffffff
}

// Decimal renders the truncated value of digest as a decimal code of
// exactly digits characters, zero-padded on the left and keeping only
// the trailing digits when the value is longer. digits outside 1..10
// yields the full unpadded value.
func Decimal(digest []byte, digits int) string {
	s := strconv.FormatUint(uint64(Truncate(digest)), 10)
	return lastN(s, digits)
}

// Hexadecimal is Decimal over the lowercase hexadecimal rendering of the
// truncated value.
func Hexadecimal(digest []byte, digits int) string {
	s := strconv.FormatUint(uint64(Truncate(digest)), 16)
	return lastN(s, digits)
}

func lastN(s string, n int) string {
	if n <= 0 || n > 10 {
		return s
	}
	for len(s) < n {
		s = "0" + s
	}
	return s[len(s)-n:]
}

func itob(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
