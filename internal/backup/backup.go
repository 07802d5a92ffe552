// Package backup writes and reads ledger backup files. A backup is the
// ledger document as indented JSON, optionally sealed with a passphrase.
package backup

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gtank/cryptopasta"
	"golang.org/x/crypto/scrypt"

	"paydo/internal/core"
	"paydo/internal/storage"
)

const encryptedFormat = "paydo-encrypted-v2"

// scrypt cost parameters and salt size for passphrase keys.
const (
	scryptN  = 1 << 15
	scryptR  = 8
	scryptP  = 1
	saltSize = 16
)

// maxBackupSize bounds what Decode will read.
const maxBackupSize = 32 << 20

var (
	ErrInvalidBackup      = errors.New("invalid backup file")
	ErrPassphraseRequired = errors.New("backup is encrypted, passphrase required")
	ErrBadPassphrase      = errors.New("backup passphrase does not match")
)

type envelope struct {
	Format     string `json:"format"`
	Salt       string `json:"salt"`
	Ciphertext string `json:"ciphertext"`
	MAC        string `json:"mac"`
}

// FileName is the suggested download name for a backup taken at t.
func FileName(t time.Time) string {
	return "Paydo_Backup_" + t.Format("2006-01-02") + ".json"
}

// Encode writes st to w. A non-empty passphrase encrypts the document.
func Encode(w io.Writer, st core.State, passphrase string) error {
	compact, err := storage.EncodeState(st)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, compact, "", "  "); err != nil {
		return fmt.Errorf("indent backup: %w", err)
	}

	if passphrase == "" {
		_, err := w.Write(pretty.Bytes())
		return err
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	encKey, macKey, err := deriveKeys(passphrase, salt)
	if err != nil {
		return err
	}
	ciphertext, err := cryptopasta.Encrypt(pretty.Bytes(), encKey)
	if err != nil {
		return fmt.Errorf("encrypt backup: %w", err)
	}
	env := envelope{
		Format:     encryptedFormat,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		MAC:        base64.StdEncoding.EncodeToString(cryptopasta.GenerateHMAC(ciphertext, macKey)),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// Decode reads a backup written by Encode, or a plain ledger document
// exported by older versions.
func Decode(r io.Reader, passphrase string) (core.State, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBackupSize))
	if err != nil {
		return core.State{}, fmt.Errorf("read backup: %w", err)
	}

	var env envelope
	if json.Unmarshal(data, &env) == nil && env.Format == encryptedFormat {
		if passphrase == "" {
			return core.State{}, ErrPassphraseRequired
		}
		data, err = open(env, passphrase)
		if err != nil {
			return core.State{}, err
		}
	}

	st, err := storage.DecodeState(data)
	if err != nil {
		return core.State{}, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return st, nil
}

func open(env envelope, passphrase string) ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil || len(salt) != saltSize {
		return nil, fmt.Errorf("%w: bad salt", ErrInvalidBackup)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	mac, err := base64.StdEncoding.DecodeString(env.MAC)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	encKey, macKey, err := deriveKeys(passphrase, salt)
	if err != nil {
		return nil, err
	}
	if !cryptopasta.CheckHMAC(ciphertext, mac, macKey) {
		return nil, ErrBadPassphrase
	}
	plain, err := cryptopasta.Decrypt(ciphertext, encKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return plain, nil
}

// deriveKeys stretches passphrase with scrypt into an encryption key and an
// HMAC key.
func deriveKeys(passphrase string, salt []byte) (enc, mac *[32]byte, err error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("derive backup keys: %w", err)
	}
	enc, mac = new([32]byte), new([32]byte)
	copy(enc[:], key[:32])
	copy(mac[:], key[32:])
	return enc, mac, nil
}
