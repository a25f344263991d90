package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Native implementation of the `openssl enc -<aes-cbc> -pbkdf2 -iter N`
// container: "Salted__" || salt[8] || ciphertext, with key and IV derived
// together by PBKDF2-HMAC-SHA256.

const (
	saltMagic = "Salted__"
	saltLen   = 8
)

var (
	ErrUnsupportedCipher = errors.New("unsupported cipher")
	ErrBadFormat         = errors.New("not an openssl salted container")
	ErrBadPadding        = errors.New("bad padding (wrong secret or corrupted data)")
)

func keySize(name string) (int, error) {
	switch name {
	case "aes-128-cbc":
		return 16, nil
	case "aes-192-cbc":
		return 24, nil
	case "aes-256-cbc":
		return 32, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCipher, name)
}

func deriveKeyIV(passphrase string, salt []byte, cipherName string, iter int) (key, iv []byte, err error) {
	ks, err := keySize(cipherName)
	if err != nil {
		return nil, nil, err
	}
	if iter <= 0 {
		return nil, nil, fmt.Errorf("invalid iteration count %d", iter)
	}
	material := pbkdf2.Key([]byte(passphrase), salt, iter, ks+aes.BlockSize, sha256.New)
	return material[:ks], material[ks:], nil
}

// Encrypt seals plaintext in the openssl salted format with a random salt.
func Encrypt(plaintext []byte, passphrase, cipherName string, iter int) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return encryptWithSalt(plaintext, passphrase, cipherName, iter, salt)
}

func encryptWithSalt(plaintext []byte, passphrase, cipherName string, iter int, salt []byte) ([]byte, error) {
	key, iv, err := deriveKeyIV(passphrase, salt, cipherName, iter)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	pad := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext)+pad)
	copy(padded, plaintext)
	copy(padded[len(plaintext):], bytes.Repeat([]byte{byte(pad)}, pad))

	out := make([]byte, len(saltMagic)+saltLen+len(padded))
	copy(out, saltMagic)
	copy(out[len(saltMagic):], salt)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(saltMagic)+saltLen:], padded)
	return out, nil
}

// Decrypt opens data produced by Encrypt or by `openssl enc -pbkdf2`.
func Decrypt(data []byte, passphrase, cipherName string, iter int) ([]byte, error) {
	header := len(saltMagic) + saltLen
	if len(data) < header+aes.BlockSize || !bytes.HasPrefix(data, []byte(saltMagic)) {
		return nil, ErrBadFormat
	}
	body := data[header:]
	if len(body)%aes.BlockSize != 0 {
		return nil, ErrBadFormat
	}

	key, iv, err := deriveKeyIV(passphrase, data[len(saltMagic):header], cipherName, iter)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	pad := int(plain[len(plain)-1])
	if pad == 0 || pad > aes.BlockSize {
		return nil, ErrBadPadding
	}
	for _, b := range plain[len(plain)-pad:] {
		if int(b) != pad {
			return nil, ErrBadPadding
		}
	}
	return plain[:len(plain)-pad], nil
}
