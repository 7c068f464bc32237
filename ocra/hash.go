// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2025 UnderNET

package ocra

import (
	// nolint:gosec // MD5 and SHA1 remain part of the suite grammar for
	// pin digests and legacy deployments
	"crypto/md5"
	// nolint:gosec
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"
)

// Hash identifies a hash algorithm a suite may name, either as the keyed
// hash of the crypto function or for digesting a pin. The set is closed;
// there is no runtime registry.
type Hash int

const (
	SHA1 Hash = iota
	SHA256
	SHA512
	MD5
)

type hashInfo struct {
	name string
	size int
	fn   func() hash.Hash
}

var hashTable = [...]hashInfo{
	SHA1:   {"SHA1", sha1.Size, sha1.New},
	SHA256: {"SHA256", sha256.Size, sha256.New},
	SHA512: {"SHA512", sha512.Size, sha512.New},
	MD5:    {"MD5", md5.Size, md5.New},
}

// ParseHash resolves a hash name from a suite descriptor. Names match
// case-insensitively; the descriptor string itself is still used verbatim
// in the HMAC message.
func ParseHash(name string) (Hash, error) {
	upper := strings.ToUpper(name)
	for h, info := range hashTable {
		if info.name == upper {
			return Hash(h), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown hash algorithm %q", ErrSuite, name)
}

func (h Hash) String() string {
	if h < 0 || int(h) >= len(hashTable) {
		return fmt.Sprintf("Hash(%d)", int(h))
	}
	return hashTable[h].name
}

// New returns a fresh hash state.
func (h Hash) New() hash.Hash {
	return hashTable[h].fn()
}

// Size returns the digest size in bytes.
func (h Hash) Size() int {
	return hashTable[h].size
}
