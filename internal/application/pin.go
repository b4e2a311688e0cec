package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// PINLength is the number of digits in a login PIN.
const PINLength = 4

var (
	ErrInvalidPINHash         = errors.New("invalid pin hash format")
	ErrIncompatiblePINVersion = errors.New("incompatible pin hash version")
)

// Argon2idParams tunes the key derivation. A four digit PIN has only 10^4
// candidates, so the memory cost carries most of the protection.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// PINHasher hashes a PIN for storage.
type PINHasher func(pin string) (string, error)

// PINVerifier compares a stored hash with a candidate PIN.
type PINVerifier func(hashedPIN, pin string) error

// ValidatePIN reports whether pin is exactly PINLength ASCII digits.
func ValidatePIN(pin string) bool {
	return len(pin) == PINLength && strings.Trim(pin, "0123456789") == ""
}

// HashPIN hashes pin with DefaultArgon2idParams.
func HashPIN(pin string) (string, error) {
	return CreatePINHash(pin, DefaultArgon2idParams)
}

// CreatePINHash returns the PHC string form
// $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<key>.
func CreatePINHash(pin string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate pin salt: %w", err)
	}
	encoded := pinHash{params: params, salt: salt}
	encoded.key = encoded.derive(pin)
	return encoded.String(), nil
}

// VerifyPIN returns nil when pin matches hashedPIN and ErrInvalidCredentials
// when it does not. Unreadable hashes yield ErrInvalidPINHash.
func VerifyPIN(hashedPIN, pin string) error {
	stored, err := parsePINHash(hashedPIN)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(stored.key, stored.derive(pin)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

type pinHash struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func (h pinHash) derive(pin string) []byte {
	return argon2.IDKey([]byte(pin), h.salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)
}

func (h pinHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}

func parsePINHash(encoded string) (pinHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return pinHash{}, ErrInvalidPINHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return pinHash{}, fmt.Errorf("%w: %v", ErrInvalidPINHash, err)
	}
	if version != argon2.Version {
		return pinHash{}, ErrIncompatiblePINVersion
	}

	var h pinHash
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.params.Memory, &h.params.Iterations, &h.params.Parallelism); err != nil {
		return pinHash{}, fmt.Errorf("%w: %v", ErrInvalidPINHash, err)
	}
	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(fields[4]); err != nil {
		return pinHash{}, fmt.Errorf("%w: salt: %v", ErrInvalidPINHash, err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return pinHash{}, fmt.Errorf("%w: key", ErrInvalidPINHash)
	}
	h.params.SaltLength = uint32(len(h.salt))
	h.params.KeyLength = uint32(len(h.key))
	return h, nil
}
