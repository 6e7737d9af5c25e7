package auth

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// A profile file is magic | salt | nonce | AES-GCM sealed JSON, with the
// profile name as additional data so a renamed file does not open.
var fileMagic = []byte("GOESBOT\x01")

const (
	profileExt = ".profile"
	saltLen    = 16
	keyLen     = 32
	kdfRounds  = 200_000
)

// FileStore keeps one encrypted file per profile under dir
type FileStore struct {
	dir        string
	passphrase []byte
}

// NewFileStore creates dir if needed. The passphrase is never written to disk.
func NewFileStore(dir, passphrase string) (*FileStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", ErrStoreUnavailable)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	return &FileStore{dir: dir, passphrase: []byte(passphrase)}, nil
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, name+profileExt)
}

func (f *FileStore) Load(name string) (*Profile, error) {
	data, err := os.ReadFile(f.path(name))
	if os.IsNotExist(err) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, err
	}

	plain, err := f.open(name, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt profile %s: %w", name, err)
	}
	var p Profile
	if err := json.Unmarshal(plain, &p); err != nil {
		return nil, fmt.Errorf("profile %s is corrupt: %w", name, err)
	}
	return &p, nil
}

func (f *FileStore) Save(p *Profile) error {
	plain, err := json.Marshal(p)
	if err != nil {
		return err
	}
	sealed, err := f.seal(p.Name, plain)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, p.Name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path(p.Name))
}

func (f *FileStore) Remove(name string) error {
	err := os.Remove(f.path(name))
	if os.IsNotExist(err) {
		return ErrCredentialsNotFound
	}
	return err
}

func (f *FileStore) Names() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), profileExt); ok && !e.IsDir() {
			names = append(names, name)
		}
	}
	return names, nil
}

func (f *FileStore) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(f.passphrase, salt, kdfRounds, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (f *FileStore) seal(name string, plain []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	gcm, err := f.aead(salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(fileMagic)+saltLen+len(nonce)+len(plain)+gcm.Overhead())
	out = append(out, fileMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plain, []byte(name)), nil
}

func (f *FileStore) open(name string, data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, fileMagic) || len(data) < len(fileMagic)+saltLen {
		return nil, errors.New("not a goesbot profile file")
	}
	data = data[len(fileMagic):]
	gcm, err := f.aead(data[:saltLen])
	if err != nil {
		return nil, err
	}
	data = data[saltLen:]
	if len(data) < gcm.NonceSize() {
		return nil, errors.New("profile file truncated")
	}
	return gcm.Open(nil, data[:gcm.NonceSize()], data[gcm.NonceSize():], []byte(name))
}
