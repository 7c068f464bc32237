// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2024 UnderNET

package totp

import (
	"crypto/sha256"
	"crypto/sha512"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Interop tests taken from https://tools.ietf.org/html/rfc6238#appendix-B.
// The appendix reuses the ASCII digit key at the hash's preferred length.

var (
	sha1Key   = []byte("12345678901234567890")
	sha256Key = []byte("12345678901234567890123456789012")
	sha512Key = []byte("1234567890123456789012345678901234567890123456789012345678901234")

	rfcTimes = []int64{59, 1111111109, 1111111111, 1234567890, 2000000000, 20000000000}
)

func TestGenerateCustom(t *testing.T) {
	tests := []struct {
		name  string
		otp   *OTP
		codes []string
	}{
		{"SHA1", New(sha1Key, 8, 30, 0),
			[]string{"94287082", "07081804", "14050471", "89005924", "69279037", "65353130"}},
		{"SHA256", NewWithHash(sha256Key, 8, 30, 0, sha256.New),
			[]string{"46119246", "68084774", "67062674", "91819424", "90698825", "77737706"}},
		{"SHA512", NewWithHash(sha512Key, 8, 30, 0, sha512.New),
			[]string{"90693936", "25091201", "99943326", "93441116", "38618901", "47863826"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for i, ts := range rfcTimes {
				assert.Equal(t, tc.codes[i], tc.otp.GenerateCustom(time.Unix(ts, 0).UTC()), "T=%d", ts)
			}
		})
	}
}

func TestValidateCustom(t *testing.T) {
	otp := New(sha1Key, 8, 30, 0)
	assert.True(t, otp.ValidateCustom("94287082", time.Unix(59, 0).UTC()))
	assert.False(t, otp.ValidateCustom("94287082", time.Unix(61, 0).UTC()))
}

func TestValidateSkew(t *testing.T) {
	otp := New(sha1Key, 8, 30, 1)

	tests := []struct {
		timestamp int64
		otp       string
		state     bool
	}{
		{29, "94287082", true},
		{59, "94287082", true},
		{61, "94287082", true},
		{91, "94287082", false},
	}

	for _, test := range tests {
		assert.Equal(t, test.state, otp.ValidateCustom(test.otp, time.Unix(test.timestamp, 0).UTC()), "t=%d", test.timestamp)
	}
}

func TestAccept(t *testing.T) {
	otp := New(sha1Key, 8, 30, 1)
	base := time.Unix(59, 0).UTC()

	t.Run("in sync", func(t *testing.T) {
		ok, drift := otp.Accept("94287082", base, 0)
		assert.True(t, ok)
		assert.Equal(t, int64(0), drift)
	})

	t.Run("token clock ahead", func(t *testing.T) {
		ahead := otp.GenerateCustom(time.Unix(89, 0).UTC())
		ok, drift := otp.Accept(ahead, base, 0)
		assert.True(t, ok)
		assert.Equal(t, int64(1), drift, "one step of drift should be recorded")
	})

	t.Run("drift persists across calls", func(t *testing.T) {
		further := otp.GenerateCustom(time.Unix(119, 0).UTC())
		ok, drift := otp.Accept(further, base, 1)
		assert.True(t, ok)
		assert.Equal(t, int64(2), drift)
	})

	t.Run("outside window", func(t *testing.T) {
		far := otp.GenerateCustom(time.Unix(179, 0).UTC())
		ok, drift := otp.Accept(far, base, 0)
		assert.False(t, ok)
		assert.Equal(t, int64(0), drift)
	})

	t.Run("window clamped at epoch", func(t *testing.T) {
		ok, drift := otp.Accept(otp.GenerateCustom(time.Unix(0, 0).UTC()), time.Unix(15, 0).UTC(), 0)
		assert.True(t, ok)
		assert.Equal(t, int64(0), drift)
	})
}

func TestDefaultPeriod(t *testing.T) {
	otp := NewWithHash(sha1Key, 8, 0, 0, sha256.New)
	assert.Equal(t, uint64(DefaultPeriod), otp.period)
}
