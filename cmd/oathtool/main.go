// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2025 UnderNET

package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	slogformatter "github.com/samber/slog-formatter"

	"github.com/undernetirc/oath/googleauth"
	"github.com/undernetirc/oath/hotp"
	"github.com/undernetirc/oath/internal/config"
	"github.com/undernetirc/oath/ocra"
	"github.com/undernetirc/oath/totp"
)

var (
	Version     = "0.0.1-dev"
	BuildDate   string
	BuildCommit string
)

var (
	mode      = flag.String("mode", "totp", "what to work with: totp, hotp, ocra or uri")
	keyHex    = flag.String("key", "", "hex-encoded shared secret key (overrides config)")
	counter   = flag.Uint64("counter", 0, "hotp counter, also the C input of ocra suites (overrides config)")
	challenge = flag.String("challenge", "", "ocra challenge question; generated when omitted")
	pin       = flag.String("pin", "", "pin for ocra suites with a P input")
	suite     = flag.String("suite", "", "ocra suite descriptor (overrides config)")
	digits    = flag.Int("digits", 0, "code length for totp and hotp (overrides config)")
	period    = flag.Uint64("period", 0, "totp period in seconds (overrides config)")
	issuer    = flag.String("issuer", "", "issuer for uri mode (overrides config)")
	account   = flag.String("account", "", "account label for uri mode (overrides config)")
	qrOut     = flag.String("qr", "", "write a QR enrollment PNG to this file (uri mode)")
	verify    = flag.String("verify", "", "verify this code instead of generating one")
	verbose   = flag.Bool("verbose", false, "enable debug logging")
)

func init() {
	configPath := flag.String("config", "", "path to configuration file")
	versionFlag := flag.Bool("version", false, "print version and exit")

	flag.Parse()

	if *versionFlag {
		if BuildCommit == "" {
			BuildCommit = "unknown"
		}

		fmt.Printf("Version %s %s %s\n", Version, BuildCommit, BuildDate)
		os.Exit(0)
	}

	if err := config.InitConfig(*configPath); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	initLogger()
	slog.Debug("Configuration initialized", "file", *configPath)
}

func initLogger() {
	level := slog.LevelInfo
	if *verbose || config.ServiceLogLevel.GetString() == "debug" {
		level = slog.LevelDebug
	}

	logger := slog.New(
		slogformatter.NewFormatterHandler(
			slogformatter.TimezoneConverter(time.UTC),
			slogformatter.TimeFormatter(time.RFC3339, nil),
			slogformatter.ErrorFormatter("error"),
		)(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	)
	slog.SetDefault(logger)
}

// logAndExit logs a message and exits with a given code
func logAndExit(message string, code int) {
	slog.Error(message)
	os.Exit(code)
}

func main() {
	keyValue := stringSetting(*keyHex, config.OTPKey)

	if *mode == "uri" {
		runURI(keyValue)
		return
	}

	if keyValue == "" {
		logAndExit("no key given: set -key or the otp.key config entry", 2)
	}
	key, err := hex.DecodeString(keyValue)
	if err != nil {
		logAndExit(fmt.Sprintf("key must be hex-encoded: %s", err), 2)
	}

	switch *mode {
	case "totp":
		runTOTP(key)
	case "hotp":
		runHOTP(key)
	case "ocra":
		runOCRA(key)
	default:
		logAndExit(fmt.Sprintf("unknown mode %q", *mode), 2)
	}
}

func runTOTP(key []byte) {
	otp := totp.New(key, digitsSetting(), periodSetting(), config.OTPSkew.GetUint8())

	if *verify != "" {
		if !otp.Validate(*verify) {
			logAndExit("code is not valid", 1)
		}
		fmt.Println("valid")
		return
	}
	fmt.Println(otp.Generate())
}

func runHOTP(key []byte) {
	otp := hotp.New(key, digitsSetting())
	c := counterSetting()

	if *verify != "" {
		if !otp.Validate(*verify, c) {
			logAndExit("code is not valid", 1)
		}
		fmt.Println("valid")
		return
	}
	fmt.Println(otp.Generate(c))
}

func runOCRA(key []byte) {
	s, err := ocra.ParseSuite(stringSetting(*suite, config.OTPSuite))
	if err != nil {
		logAndExit(err.Error(), 1)
	}

	in := ocra.Input{Challenge: *challenge, PIN: *pin}
	if s.DataInput().HasCounter() {
		in.Counter = ocra.Uint64(counterSetting())
	}
	if _, ok := s.DataInput().TimeStep(); ok {
		in.Timestamp = time.Now()
	}
	if _, ok := s.DataInput().Challenge(); ok && in.Challenge == "" {
		q, err := s.NewChallenge()
		if err != nil {
			logAndExit(err.Error(), 1)
		}
		slog.Info("Generated challenge", "challenge", q)
		in.Challenge = q
	}

	if *verify != "" {
		ok, err := s.Verify(*verify, key, in)
		if err != nil {
			logAndExit(err.Error(), 1)
		}
		if !ok {
			logAndExit("code is not valid", 1)
		}
		fmt.Println("valid")
		return
	}

	code, err := s.Compute(key, in)
	if err != nil {
		logAndExit(err.Error(), 1)
	}
	fmt.Println(code)
}

func runURI(keyValue string) {
	if keyValue == "" {
		generated, err := config.Random(20)
		if err != nil {
			logAndExit(err.Error(), 1)
		}
		slog.Info("Generated a new shared key", "key", generated)
		keyValue = generated
	}
	secret, err := hex.DecodeString(keyValue)
	if err != nil {
		logAndExit(fmt.Sprintf("key must be hex-encoded: %s", err), 2)
	}

	k := &googleauth.KeyURI{
		Type:   googleauth.TypeTOTP,
		Label:  stringSetting(*account, config.OTPAccount),
		Issuer: stringSetting(*issuer, config.OTPIssuer),
		Secret: secret,
		Digits: digitsSetting(),
		Period: periodSetting(),
	}
	fmt.Println(k.String())

	if *qrOut != "" {
		png, err := k.QRCode(256)
		if err != nil {
			logAndExit(err.Error(), 1)
		}
		if err := os.WriteFile(*qrOut, png, 0o600); err != nil {
			logAndExit(err.Error(), 1)
		}
		slog.Info("Wrote QR enrollment image", "path", *qrOut)
	}
}

func stringSetting(flagValue string, key config.K) string {
	if flagValue != "" {
		return flagValue
	}
	return key.GetString()
}

func digitsSetting() int {
	if *digits != 0 {
		return *digits
	}
	return config.OTPDigits.GetInt()
}

func periodSetting() uint64 {
	if *period != 0 {
		return *period
	}
	return config.OTPPeriod.GetUint64()
}

func counterSetting() uint64 {
	if *counter != 0 {
		return *counter
	}
	return config.OTPCounter.GetUint64()
}
