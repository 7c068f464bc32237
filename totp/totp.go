// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2024 UnderNET

// Package totp provides the time-based one-time password algorithm of
// RFC 6238: an RFC 4226 code whose moving factor is the Unix time divided
// by a step period.
package totp

import (
	// nolint:gosec // SHA1 is used as part of HMAC-SHA1 which is still secure for this use case
	"crypto/sha1"
	"hash"
	"time"

	"github.com/undernetirc/oath/hotp"
)

// DefaultPeriod is the step duration in seconds used when none is given.
const DefaultPeriod = 30

// OTP generates and validates time-based one-time passwords.
type OTP struct {
	otp    *hotp.OTP
	period uint64
	skew   uint8
}

// New creates an OTP using HMAC-SHA1. period is the step duration in
// seconds (0 selects DefaultPeriod) and skew the number of steps checked
// on each side of the current one during validation.
func New(key []byte, digits int, period uint64, skew uint8) *OTP {
	return NewWithHash(key, digits, period, skew, sha1.New)
}

// NewWithHash creates an OTP computed with an alternate hash constructor
// such as sha256.New or sha512.New.
func NewWithHash(key []byte, digits int, period uint64, skew uint8, h func() hash.Hash) *OTP {
	if period == 0 {
		period = DefaultPeriod
	}
	return &OTP{otp: hotp.NewWithHash(key, digits, h), period: period, skew: skew}
}

// Generate returns the code for the current time.
func (o *OTP) Generate() string {
	return o.GenerateCustom(time.Now().UTC())
}

// GenerateCustom returns the code for a custom time.
func (o *OTP) GenerateCustom(t time.Time) string {
	return o.otp.Generate(o.counter(t))
}

func (o *OTP) Validate(code string) bool {
	return o.ValidateCustom(code, time.Now().UTC())
}

// ValidateCustom checks code against every step within the configured
// skew around t, in constant time per candidate.
func (o *OTP) ValidateCustom(code string, t time.Time) bool {
	counter := o.counter(t)
	if o.otp.Validate(code, counter) {
		return true
	}
	for i := uint64(1); i <= uint64(o.skew); i++ {
		if counter >= i && o.otp.Validate(code, counter-i) {
			return true
		}
		if o.otp.Validate(code, counter+i) {
			return true
		}
	}
	return false
}

// Accept validates code while tracking accumulated clock drift between
// the token and the verifier. drift is the step offset persisted from the
// last successful call (zero initially); candidates are the steps within
// the configured skew around t shifted by drift. It returns whether code
// matched and the new drift the caller must persist; on failure the
// returned drift is zero and meaningless.
func (o *OTP) Accept(code string, t time.Time, drift int64) (bool, int64) {
	secs := t.Unix()
	if secs < 0 {
		secs = 0
	}
	lo := -int64(o.skew)
	if steps := secs / int64(o.period); steps < -lo {
		lo = -steps
	}
	for i := lo; i <= int64(o.skew); i++ {
		at := secs + (drift+i)*int64(o.period)
		if at < 0 {
			continue
		}
		if o.otp.Validate(code, uint64(at)/o.period) {
			return true, drift + i
		}
	}
	return false, 0
}

func (o *OTP) counter(t time.Time) uint64 {
	secs := t.Unix()
	if secs < 0 {
		secs = 0
	}
	return uint64(secs) / o.period
}
