// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2025 UnderNET

// Package config wires viper-backed configuration for the oathtool
// command. Keys are typed constants so call sites cannot misspell them;
// values come from defaults, an optional YAML file and OATH_* environment
// variables, in increasing order of precedence.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// K is a typed configuration key.
type K string

const (
	ServiceLogLevel K = "service.log_level"

	OTPKey     K = "otp.key"
	OTPSuite   K = "otp.suite"
	OTPDigits  K = "otp.digits"
	OTPPeriod  K = "otp.period"
	OTPCounter K = "otp.counter"
	OTPSkew    K = "otp.skew"
	OTPIssuer  K = "otp.issuer"
	OTPAccount K = "otp.account"
)

func (k K) String() string {
	return string(k)
}

// Set overrides the key for the lifetime of the process.
func (k K) Set(value interface{}) {
	viper.Set(string(k), value)
}

func (k K) GetString() string {
	return viper.GetString(string(k))
}

func (k K) GetInt() int {
	return viper.GetInt(string(k))
}

func (k K) GetUint8() uint8 {
	return viper.GetUint8(string(k))
}

func (k K) GetUint64() uint64 {
	return viper.GetUint64(string(k))
}

// DefaultConfig registers the default value of every key.
func DefaultConfig() {
	viper.SetDefault(ServiceLogLevel.String(), "info")

	viper.SetDefault(OTPKey.String(), "")
	viper.SetDefault(OTPSuite.String(), "OCRA-1:HOTP-SHA1-6:QN08")
	viper.SetDefault(OTPDigits.String(), 6)
	viper.SetDefault(OTPPeriod.String(), 30)
	viper.SetDefault(OTPCounter.String(), 0)
	viper.SetDefault(OTPSkew.String(), 1)
	viper.SetDefault(OTPIssuer.String(), "")
	viper.SetDefault(OTPAccount.String(), "")
}

// InitConfig loads defaults, the optional config file and environment
// overrides.
func InitConfig(configFile string) error {
	DefaultConfig()

	viper.SetEnvPrefix("OATH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	return nil
}

// Random returns length random bytes as a hex string, suitable for
// provisioning new shared keys.
func Random(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("invalid length %d", length)
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
