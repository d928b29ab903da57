// Package decrypt decodes a save blob: a ZIP-like container of named
// entries, each framed as a one-byte cipher tag followed by
// AES-256-CBC/PKCS#7 ciphertext. Keys and IVs are fixed per entry kind
// and never derived from the caller's credential.
package decrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"

	"github.com/rotisserie/eris"
)

// ErrorKind classifies why a single entry failed to decode. Entry-level
// failures never abort the whole container decode; they are recorded per
// entry and the remaining entries are still attempted.
type ErrorKind string

const (
	ErrBadTag       ErrorKind = "BadTag"
	ErrBadPadding   ErrorKind = "BadPadding"
	ErrShortInput   ErrorKind = "ShortInput"
	ErrUnknownEntry ErrorKind = "UnknownEntry"
)

// EntryError is a decode failure scoped to one container entry.
type EntryError struct {
	Kind  ErrorKind
	Entry string
	cause error
}

func (e *EntryError) Error() string {
	if e.cause != nil {
		return string(e.Kind) + " (" + e.Entry + "): " + e.cause.Error()
	}
	return string(e.Kind) + " (" + e.Entry + ")"
}

func (e *EntryError) Unwrap() error { return e.cause }

func entryErr(kind ErrorKind, entry string, cause error) *EntryError {
	return &EntryError{Kind: kind, Entry: entry, cause: cause}
}

// cipherTagAes256CbcPkcs7 is the single expected framing-tag value for the
// AES-256-CBC/PKCS#7 scheme; any other value is rejected as BadTag.
const cipherTagAes256CbcPkcs7 = 0x01

// keyIV is the fixed, entry-kind-specific key/IV pair used to decrypt a
// container entry; schedule maps each entry name to its pair. These are placeholder constants: they are
// not derived from any real upstream secret and exist only to give the
// decode pipeline a concrete, deterministic cipher to exercise.
type keyIV struct {
	key [32]byte
	iv  [16]byte
}

var schedule = map[string]keyIV{
	"gameRecord":   {key: deriveConst("gameRecord", 0x5a), iv: deriveConst16("gameRecord", 0xa5)},
	"gameProgress": {key: deriveConst("gameProgress", 0x3c), iv: deriveConst16("gameProgress", 0xc3)},
	"user":         {key: deriveConst("user", 0x71), iv: deriveConst16("user", 0x17)},
	"settings":     {key: deriveConst("settings", 0x2e), iv: deriveConst16("settings", 0xe2)},
	"gameKey":      {key: deriveConst("gameKey", 0x99), iv: deriveConst16("gameKey", 0x66)},
}

// deriveConst produces a fixed, reproducible 32-byte value from a short
// label and seed byte; it exists only to keep the schedule table above
// free of hand-typed hex blobs, not to add any real key derivation.
func deriveConst(label string, seed byte) [32]byte {
	var out [32]byte
	for i := range out {
		out[i] = seed ^ byte(i) ^ labelByte(label, i)
	}
	return out
}

func deriveConst16(label string, seed byte) [16]byte {
	var out [16]byte
	for i := range out {
		out[i] = seed ^ byte(i*3+1) ^ labelByte(label, i)
	}
	return out
}

func labelByte(label string, i int) byte {
	if len(label) == 0 {
		return 0
	}
	return label[i%len(label)]
}

// DecryptEntry decrypts one container entry's raw payload
// ([1-byte tag][ciphertext]) using the fixed key/IV for entryName.
func DecryptEntry(entryName string, payload []byte) ([]byte, error) {
	sched, ok := schedule[entryName]
	if !ok {
		return nil, entryErr(ErrUnknownEntry, entryName, nil)
	}
	if len(payload) < 1+aes.BlockSize {
		return nil, entryErr(ErrShortInput, entryName, nil)
	}

	tag := payload[0]
	ciphertext := payload[1:]
	if tag != cipherTagAes256CbcPkcs7 {
		return nil, entryErr(ErrBadTag, entryName, nil)
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, entryErr(ErrShortInput, entryName, nil)
	}

	block, err := aes.NewCipher(sched.key[:])
	if err != nil {
		return nil, entryErr(ErrBadTag, entryName, eris.Wrap(err, "decrypt: build cipher"))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, sched.iv[:]).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpadPKCS7(plaintext)
	if err != nil {
		return nil, entryErr(ErrBadPadding, entryName, err)
	}
	return unpadded, nil
}

// EncryptEntryForFixtures builds a valid [tag][ciphertext] payload for
// entryName from plaintext, the inverse of DecryptEntry. It exists so
// other packages' tests can construct realistic encrypted save
// fixtures without duplicating the cipher schedule; production code
// never calls it.
func EncryptEntryForFixtures(entryName string, plaintext []byte) ([]byte, error) {
	sched, ok := schedule[entryName]
	if !ok {
		return nil, entryErr(ErrUnknownEntry, entryName, nil)
	}

	padLen := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, 0, len(plaintext)+padLen)
	padded = append(padded, plaintext...)
	padded = append(padded, bytes.Repeat([]byte{byte(padLen)}, padLen)...)

	block, err := aes.NewCipher(sched.key[:])
	if err != nil {
		return nil, eris.Wrap(err, "decrypt: build cipher for fixture")
	}
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, sched.iv[:]).CryptBlocks(ciphertext, padded)

	return append([]byte{cipherTagAes256CbcPkcs7}, ciphertext...), nil
}

func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, eris.New("decrypt: empty plaintext")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(data) {
		return nil, eris.New("decrypt: invalid padding length")
	}
	if !bytes.Equal(data[len(data)-padLen:], bytes.Repeat([]byte{byte(padLen)}, padLen)) {
		return nil, eris.New("decrypt: padding bytes mismatch")
	}
	return data[:len(data)-padLen], nil
}
