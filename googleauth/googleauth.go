// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2025 UnderNET

// Package googleauth provisions OTP generators through the otpauth:// URL
// scheme used by Google Authenticator and compatible apps. It layers key
// parsing, URI construction and QR enrollment images over the hotp and
// totp packages.
package googleauth

import (
	// SHA1 is the otpauth scheme default algorithm
	// nolint:gosec // SHA1 is used as part of HMAC-SHA1 which is still secure for this use case
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/undernetirc/oath/hotp"
	"github.com/undernetirc/oath/totp"
)

// ErrURI is returned when an otpauth URI cannot be parsed or decoded.
var ErrURI = errors.New("googleauth: invalid otpauth uri")

// Type is the OTP flavor carried in the URI host.
type Type string

const (
	TypeHOTP Type = "hotp"
	TypeTOTP Type = "totp"
)

const (
	defaultAlgorithm = "sha1"
	defaultDigits    = 6
	defaultPeriod    = 30
)

// Digests shorter than 20 bytes cannot feed the RFC 4226 truncation, so
// the md5 the scheme once allowed is not accepted.
var algorithms = map[string]func() hash.Hash{
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// DecodeKey decodes a base32 secret leniently, accepting the partial
// encodings some authenticator apps emit: lowercase input and missing
// padding.
func DecodeKey(s string) ([]byte, error) {
	s = strings.ToUpper(s)
	if n := len(s) % 8; n != 0 {
		s += strings.Repeat("=", 8-n)
	}
	key, err := base32.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: secret is not base32", ErrURI)
	}
	return key, nil
}

// KeyURI is a parsed otpauth:// key. Zero values for Algorithm, Digits and
// Period stand for the scheme defaults sha1, 6 and 30.
type KeyURI struct {
	Type      Type
	Label     string
	Issuer    string
	Secret    []byte
	Algorithm string
	Digits    int
	Counter   uint64
	Period    uint64
}

// ParseURI parses an otpauth:// key URI as defined by the Google
// Authenticator Key-Uri-Format. The secret field is mandatory; algorithm,
// digits, counter and period fall back to their scheme defaults.
func ParseURI(uri string) (*KeyURI, error) {
	if !strings.HasPrefix(uri, "otpauth://") {
		return nil, fmt.Errorf("%w: scheme must be otpauth://", ErrURI)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrURI, err)
	}

	k := &KeyURI{Type: Type(u.Host), Label: strings.TrimPrefix(u.Path, "/")}
	if k.Type != TypeHOTP && k.Type != TypeTOTP {
		return nil, fmt.Errorf("%w: type must be hotp or totp, got %q", ErrURI, u.Host)
	}

	q := u.Query()
	secret := q.Get("secret")
	if secret == "" {
		return nil, fmt.Errorf("%w: missing secret field", ErrURI)
	}
	if k.Secret, err = DecodeKey(secret); err != nil {
		return nil, err
	}

	k.Algorithm = strings.ToLower(q.Get("algorithm"))
	if k.Algorithm == "" {
		k.Algorithm = defaultAlgorithm
	}
	if _, ok := algorithms[k.Algorithm]; !ok {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrURI, k.Algorithm)
	}

	k.Digits = defaultDigits
	if v := q.Get("digits"); v != "" {
		if k.Digits, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("%w: digits field must be a number, got %q", ErrURI, v)
		}
		if k.Digits != 6 && k.Digits != 8 {
			return nil, fmt.Errorf("%w: digits field must be 6 or 8, got %d", ErrURI, k.Digits)
		}
	}

	if v := q.Get("counter"); v != "" {
		if k.Counter, err = strconv.ParseUint(v, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: counter field must be a number, got %q", ErrURI, v)
		}
	}

	if k.Type == TypeTOTP {
		k.Period = defaultPeriod
	}
	if v := q.Get("period"); v != "" {
		if k.Period, err = strconv.ParseUint(v, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: period field must be a number, got %q", ErrURI, v)
		}
	}

	k.Issuer = q.Get("issuer")
	return k, nil
}

// String rebuilds the otpauth:// URI. Fields at their scheme defaults are
// omitted, the secret is base32 without padding, and an issuer is carried
// both as a label prefix and as a query parameter, the form authenticator
// apps expect.
func (k *KeyURI) String() string {
	q := url.Values{}
	q.Set("secret", base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(k.Secret))
	if k.Algorithm != "" && k.Algorithm != defaultAlgorithm {
		q.Set("algorithm", k.Algorithm)
	}
	if k.Digits != 0 && k.Digits != defaultDigits {
		q.Set("digits", strconv.Itoa(k.Digits))
	}
	if k.Type == TypeHOTP {
		q.Set("counter", strconv.FormatUint(k.Counter, 10))
	}
	period := k.Period
	if period == 0 {
		period = defaultPeriod
	}
	q.Set("period", strconv.FormatUint(period, 10))

	label := k.Label
	if k.Issuer != "" {
		label = k.Issuer + ":" + label
		q.Set("issuer", k.Issuer)
	}

	u := url.URL{Scheme: "otpauth", Host: string(k.Type), Path: "/" + label}
	u.RawQuery = strings.ReplaceAll(q.Encode(), "+", "%20")
	return u.String()
}

// QRCode renders the URI as a PNG enrollment image of the given pixel size.
func (k *KeyURI) QRCode(size int) ([]byte, error) {
	png, err := qrcode.Encode(k.String(), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}

// QRCodeBase64 renders the PNG and encodes it for embedding in HTML or
// mail bodies.
func (k *KeyURI) QRCodeBase64(size int) (string, error) {
	png, err := k.QRCode(size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

func (k *KeyURI) hash() func() hash.Hash {
	if h, ok := algorithms[strings.ToLower(k.Algorithm)]; ok {
		return h
	}
	return sha1.New
}

func (k *KeyURI) digits() int {
	if k.Digits == 0 {
		return defaultDigits
	}
	return k.Digits
}

// Authenticator is a stateful generator and acceptor for a provisioned key.
// The generating and accepting counters advance independently, as they
// would on two enrolled devices.
type Authenticator struct {
	key *KeyURI

	generateCounter uint64
	acceptCounter   uint64
	acceptDrift     int64
}

// New provisions an authenticator from an otpauth:// URI.
func New(uri string) (*Authenticator, error) {
	k, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return FromKeyURI(k), nil
}

// FromKey provisions a time-based authenticator with defaults from a bare
// base32 secret, emulating apps that accept a key without a full URI.
func FromKey(b32 string) (*Authenticator, error) {
	secret, err := DecodeKey(b32)
	if err != nil {
		return nil, err
	}
	return FromKeyURI(&KeyURI{Type: TypeTOTP, Secret: secret}), nil
}

// FromKeyURI provisions an authenticator from an already parsed key.
func FromKeyURI(k *KeyURI) *Authenticator {
	return &Authenticator{key: k, generateCounter: k.Counter, acceptCounter: k.Counter}
}

// Key returns the provisioned key.
func (a *Authenticator) Key() *KeyURI {
	return a.key
}

// Generate produces the next code: the current counter value for hotp keys,
// the current time step for totp keys.
func (a *Authenticator) Generate() (string, error) {
	return a.GenerateAt(time.Now())
}

// GenerateAt produces the code for the given time. For hotp keys the time
// is irrelevant and the internal counter advances instead.
func (a *Authenticator) GenerateAt(t time.Time) (string, error) {
	switch a.key.Type {
	case TypeHOTP:
		code := a.hotp().Generate(a.generateCounter)
		a.generateCounter++
		return code, nil
	case TypeTOTP:
		return a.totp().GenerateCustom(t), nil
	default:
		return "", fmt.Errorf("%w: type must be hotp or totp, got %q", ErrURI, a.key.Type)
	}
}

// Accept verifies a submitted code against the current time, tracking
// counter or clock drift across calls.
func (a *Authenticator) Accept(code string) (bool, error) {
	return a.AcceptAt(code, time.Now())
}

// AcceptAt verifies a submitted code against the given time. Hotp keys are
// matched with a look-ahead window of 3; totp keys tolerate one time step
// of skew and remember the drift of the last accepted code.
func (a *Authenticator) AcceptAt(code string, t time.Time) (bool, error) {
	switch a.key.Type {
	case TypeHOTP:
		var ok bool
		ok, a.acceptCounter = a.hotp().Accept(code, a.acceptCounter, 3, 0)
		return ok, nil
	case TypeTOTP:
		var ok bool
		ok, a.acceptDrift = a.totp().Accept(code, t, a.acceptDrift)
		return ok, nil
	default:
		return false, fmt.Errorf("%w: type must be hotp or totp, got %q", ErrURI, a.key.Type)
	}
}

func (a *Authenticator) hotp() *hotp.OTP {
	return hotp.NewWithHash(a.key.Secret, a.key.digits(), a.key.hash())
}

func (a *Authenticator) totp() *totp.OTP {
	return totp.NewWithHash(a.key.Secret, a.key.digits(), a.key.Period, 1, a.key.hash())
}
