// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: Copyright (c) 2025 UnderNET

package ocra

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ChallengeFormat is the question kind a suite's Q token declares.
type ChallengeFormat byte

const (
	// ChallengeNumeric questions consist of ASCII digits.
	ChallengeNumeric ChallengeFormat = 'N'
	// ChallengeAlphanumeric questions consist of ASCII letters and digits.
	ChallengeAlphanumeric ChallengeFormat = 'A'
	// ChallengeHex questions consist of hexadecimal digits.
	ChallengeHex ChallengeFormat = 'H'
)

func (f ChallengeFormat) String() string {
	return string(f)
}

// ChallengeSpec is the parsed Q token: the question kind and the maximum
// question length in characters.
type ChallengeSpec struct {
	Format    ChallengeFormat
	MaxLength int
}

func (c ChallengeSpec) String() string {
	return fmt.Sprintf("Q%s%02d", c.Format, c.MaxLength)
}

// DataInput is the parsed third component of a suite descriptor. It
// records which inputs participate in the HMAC message and how each one
// is validated and encoded. A DataInput is immutable once parsed.
type DataInput struct {
	counter   bool
	challenge *ChallengeSpec
	pinHash   *Hash
	session   int   // declared byte length, 0 when absent
	timeStep  int64 // step duration in seconds, 0 when absent
}

// HasCounter reports whether the suite mixes a counter into the message.
func (d DataInput) HasCounter() bool { return d.counter }

// Challenge returns the challenge question spec, if one is declared.
func (d DataInput) Challenge() (ChallengeSpec, bool) {
	if d.challenge == nil {
		return ChallengeSpec{}, false
	}
	return *d.challenge, true
}

// PINHash returns the hash digesting the pin, if a P token is declared.
func (d DataInput) PINHash() (Hash, bool) {
	if d.pinHash == nil {
		return 0, false
	}
	return *d.pinHash, true
}

// SessionLength returns the declared session information length.
func (d DataInput) SessionLength() (int, bool) {
	return d.session, d.session > 0
}

// TimeStep returns the declared timestamp granularity.
func (d DataInput) TimeStep() (time.Duration, bool) {
	return time.Duration(d.timeStep) * time.Second, d.timeStep > 0
}

// String reconstructs a canonical token list. Reparsing it yields the
// same semantics, though not necessarily the original byte string (a
// bare Q comes back as QN08).
func (d DataInput) String() string {
	var tokens []string
	if d.counter {
		tokens = append(tokens, "C")
	}
	if d.challenge != nil {
		tokens = append(tokens, d.challenge.String())
	}
	if d.pinHash != nil {
		tokens = append(tokens, "P"+d.pinHash.String())
	}
	if d.session > 0 {
		tokens = append(tokens, fmt.Sprintf("S%03d", d.session))
	}
	if d.timeStep > 0 {
		tokens = append(tokens, "T"+formatTimeStep(d.timeStep))
	}
	return strings.Join(tokens, "-")
}

var timeStepRE = regexp.MustCompile(`^(\d+[HMS])+$`)
var timeStepPart = regexp.MustCompile(`\d+[HMS]`)

var stepSeconds = map[byte]int64{'H': 3600, 'M': 60, 'S': 1}

func parseDataInput(s string) (DataInput, error) {
	var d DataInput
	seen := make(map[byte]bool)
	for _, token := range strings.Split(s, "-") {
		if token == "" {
			return DataInput{}, fmt.Errorf("%w: empty data input token in %q", ErrSuite, s)
		}
		letter := token[0]
		if seen[letter] {
			return DataInput{}, fmt.Errorf("%w: data input %q declared twice", ErrSuite, token)
		}
		seen[letter] = true
		arg := token[1:]

		switch letter {
		case 'C':
			if arg != "" {
				return DataInput{}, fmt.Errorf("%w: counter token %q takes no argument", ErrSuite, token)
			}
			d.counter = true
		case 'Q':
			spec, err := parseChallengeSpec(arg)
			if err != nil {
				return DataInput{}, fmt.Errorf("%w: challenge descriptor %q", ErrSuite, token)
			}
			d.challenge = spec
		case 'P':
			h := SHA1
			if arg != "" {
				var err error
				if h, err = ParseHash(arg); err != nil {
					return DataInput{}, err
				}
			}
			d.pinHash = &h
		case 'S':
			n := 64
			if arg != "" {
				var err error
				n, err = strconv.Atoi(arg)
				if err != nil || n < 1 || n > 512 {
					return DataInput{}, fmt.Errorf("%w: session descriptor %q", ErrSuite, token)
				}
			}
			d.session = n
		case 'T':
			step, err := parseTimeStep(arg)
			if err != nil {
				return DataInput{}, fmt.Errorf("%w: timestamp descriptor %q", ErrSuite, token)
			}
			d.timeStep = step
		default:
			return DataInput{}, fmt.Errorf("%w: unknown data input token %q", ErrSuite, token)
		}
	}
	return d, nil
}

func parseChallengeSpec(arg string) (*ChallengeSpec, error) {
	if arg == "" {
		return &ChallengeSpec{Format: ChallengeNumeric, MaxLength: 8}, nil
	}
	format := ChallengeFormat(arg[0])
	switch format {
	case ChallengeNumeric, ChallengeAlphanumeric, ChallengeHex:
	default:
		return nil, fmt.Errorf("unknown challenge format %q", arg[0])
	}
	n, err := strconv.Atoi(arg[1:])
	if err != nil || n < 4 || n > 64 {
		return nil, fmt.Errorf("challenge length out of range")
	}
	return &ChallengeSpec{Format: format, MaxLength: n}, nil
}

func parseTimeStep(arg string) (int64, error) {
	if arg == "" {
		arg = "1M"
	}
	if !timeStepRE.MatchString(arg) {
		return 0, fmt.Errorf("malformed duration")
	}
	var total int64
	for _, part := range timeStepPart.FindAllString(arg, -1) {
		quantity, err := strconv.ParseInt(part[:len(part)-1], 10, 64)
		if err != nil {
			return 0, err
		}
		total += quantity * stepSeconds[part[len(part)-1]]
	}
	if total == 0 {
		return 0, fmt.Errorf("zero duration")
	}
	return total, nil
}

func formatTimeStep(seconds int64) string {
	switch {
	case seconds%3600 == 0:
		return fmt.Sprintf("%dH", seconds/3600)
	case seconds%60 == 0:
		return fmt.Sprintf("%dM", seconds/60)
	default:
		return fmt.Sprintf("%dS", seconds)
	}
}

// Input carries the per-computation parameters of a suite. Every field
// is optional; which ones must be set is dictated by the suite's data
// input specification, and setting a field the suite has no use for is
// an error.
type Input struct {
	// Counter is the C value. Use Uint64 for literals.
	Counter *uint64
	// Challenge is the one-way challenge question Q.
	Challenge string
	// CombinedChallenge is the concatenated mutual challenge Qsc. When
	// set it replaces Challenge and the permitted length doubles.
	CombinedChallenge string
	// PIN is the raw pin or password, digested with the suite's P hash.
	PIN string
	// PINDigest is a precomputed pin digest, either raw at the hash's
	// digest size or hex-encoded at twice that. It takes precedence
	// over PIN.
	PINDigest []byte
	// SessionInfo must have exactly the declared S length.
	SessionInfo string
	// Timestamp is divided by the suite's T step. The zero time means
	// absent.
	Timestamp time.Time
	// TimeSteps is a precomputed step count used verbatim, taking
	// precedence over Timestamp.
	TimeSteps *uint64
}

// Uint64 returns a pointer to v, for filling the optional fields of
// Input in place.
func Uint64(v uint64) *uint64 { return &v }

// message serializes the inputs against the data input specification in
// the fixed order C, Q, P, S, T, prefixed by the suite descriptor and a
// zero byte.
func (d DataInput) message(descriptor string, in Input) ([]byte, error) {
	msg := make([]byte, 0, len(descriptor)+1+8+128+64+d.session+8)
	msg = append(msg, descriptor...)
	msg = append(msg, 0)

	if in.Counter != nil && !d.counter {
		return nil, fmt.Errorf("%w: counter", ErrUnexpectedParameter)
	}
	if d.counter {
		if in.Counter == nil {
			return nil, fmt.Errorf("%w: counter", ErrMissingParameter)
		}
		msg = binary.BigEndian.AppendUint64(msg, *in.Counter)
	}

	question := in.Challenge
	limit := 0
	if d.challenge != nil {
		limit = d.challenge.MaxLength
	}
	if in.CombinedChallenge != "" {
		question = in.CombinedChallenge
		limit *= 2
	}
	if question != "" && d.challenge == nil {
		return nil, fmt.Errorf("%w: challenge", ErrUnexpectedParameter)
	}
	if d.challenge != nil {
		if question == "" {
			return nil, fmt.Errorf("%w: challenge", ErrMissingParameter)
		}
		encoded, err := d.challenge.encode(question, limit)
		if err != nil {
			return nil, err
		}
		var field [128]byte
		copy(field[:], encoded)
		msg = append(msg, field[:]...)
	}

	if (in.PIN != "" || in.PINDigest != nil) && d.pinHash == nil {
		return nil, fmt.Errorf("%w: pin", ErrUnexpectedParameter)
	}
	if d.pinHash != nil {
		digest, err := d.pinDigest(in)
		if err != nil {
			return nil, err
		}
		msg = append(msg, digest...)
	}

	if in.SessionInfo != "" && d.session == 0 {
		return nil, fmt.Errorf("%w: session information", ErrUnexpectedParameter)
	}
	if d.session > 0 {
		if in.SessionInfo == "" {
			return nil, fmt.Errorf("%w: session information", ErrMissingParameter)
		}
		if len(in.SessionInfo) != d.session {
			return nil, fmt.Errorf("%w: session information must be exactly %d bytes, got %d",
				ErrInvalidParameter, d.session, len(in.SessionInfo))
		}
		msg = append(msg, in.SessionInfo...)
	}

	if (in.TimeSteps != nil || !in.Timestamp.IsZero()) && d.timeStep == 0 {
		return nil, fmt.Errorf("%w: timestamp", ErrUnexpectedParameter)
	}
	if d.timeStep > 0 {
		var steps uint64
		switch {
		case in.TimeSteps != nil:
			steps = *in.TimeSteps
		case !in.Timestamp.IsZero():
			secs := in.Timestamp.Unix()
			if secs < 0 {
				secs = 0
			}
			steps = uint64(secs) / uint64(d.timeStep)
		default:
			return nil, fmt.Errorf("%w: timestamp", ErrMissingParameter)
		}
		msg = binary.BigEndian.AppendUint64(msg, steps)
	}

	return msg, nil
}

// pinDigest resolves the P field: a precomputed digest when given (raw
// at digest size, hex at twice that), otherwise the digested raw pin.
func (d DataInput) pinDigest(in Input) ([]byte, error) {
	h := *d.pinHash
	if in.PINDigest != nil {
		switch len(in.PINDigest) {
		case h.Size():
			return in.PINDigest, nil
		case 2 * h.Size():
			decoded, err := hex.DecodeString(string(in.PINDigest))
			if err != nil {
				return nil, fmt.Errorf("%w: pin digest is not valid hex", ErrInvalidParameter)
			}
			return decoded, nil
		default:
			return nil, fmt.Errorf("%w: pin digest must be %d or %d bytes, got %d",
				ErrInvalidParameter, h.Size(), 2*h.Size(), len(in.PINDigest))
		}
	}
	if in.PIN == "" {
		return nil, fmt.Errorf("%w: pin", ErrMissingParameter)
	}
	hs := h.New()
	hs.Write([]byte(in.PIN))
	return hs.Sum(nil), nil
}

// encode validates question against the spec and serializes it. Numeric
// questions are reinterpreted as a decimal integer, rendered as hex and
// byte-decoded (leading zeros do not survive, by construction of the
// reference algorithm); alphanumeric questions are literal bytes; hex
// questions are byte-decoded. The caller pads the result to 128 bytes.
func (c ChallengeSpec) encode(question string, limit int) ([]byte, error) {
	if len(question) > limit {
		return nil, fmt.Errorf("%w: challenge longer than %d characters", ErrInvalidParameter, limit)
	}
	switch c.Format {
	case ChallengeNumeric:
		if !isDigits(question) {
			return nil, fmt.Errorf("%w: challenge %q is not numeric", ErrInvalidParameter, question)
		}
		n, _ := new(big.Int).SetString(question, 10)
		digits := n.Text(16)
		if len(digits)%2 == 1 {
			digits += "0"
		}
		return hex.DecodeString(digits)
	case ChallengeAlphanumeric:
		if !isAlphanumeric(question) {
			return nil, fmt.Errorf("%w: challenge %q is not alphanumeric", ErrInvalidParameter, question)
		}
		return []byte(question), nil
	case ChallengeHex:
		if !isHex(question) {
			return nil, fmt.Errorf("%w: challenge %q is not hexadecimal", ErrInvalidParameter, question)
		}
		decoded, err := hex.DecodeString(question)
		if err != nil {
			return nil, fmt.Errorf("%w: hex challenge must have even length", ErrInvalidParameter)
		}
		return decoded, nil
	}
	return nil, fmt.Errorf("%w: challenge format %q", ErrSuite, c.Format)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
