package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keychainService = "goesbot"
	// keychainIndex lists the saved profile names; go-keyring cannot enumerate
	keychainIndex = "profiles"
)

// KeychainStore keeps each profile as one JSON secret in the system keychain
type KeychainStore struct{}

// NewKeychainStore fails when no keychain is reachable
func NewKeychainStore() (*KeychainStore, error) {
	if _, err := keyring.Get(keychainService, keychainIndex); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &KeychainStore{}, nil
}

func secretKey(name string) string { return "profile:" + name }

func (KeychainStore) Load(name string) (*Profile, error) {
	data, err := keyring.Get(keychainService, secretKey(name))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keychain read: %w", err)
	}

	var p Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("keychain entry for %s is corrupt: %w", name, err)
	}
	return &p, nil
}

func (k KeychainStore) Save(p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := keyring.Set(keychainService, secretKey(p.Name), string(data)); err != nil {
		return fmt.Errorf("keychain write: %w", err)
	}
	return k.updateIndex(func(names map[string]bool) { names[p.Name] = true })
}

func (k KeychainStore) Remove(name string) error {
	err := keyring.Delete(keychainService, secretKey(name))
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialsNotFound
	}
	if err != nil {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return k.updateIndex(func(names map[string]bool) { delete(names, name) })
}

func (KeychainStore) Names() ([]string, error) {
	data, err := keyring.Get(keychainService, keychainIndex)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain read: %w", err)
	}
	return strings.Fields(data), nil
}

func (k KeychainStore) updateIndex(edit func(map[string]bool)) error {
	current, err := k.Names()
	if err != nil {
		return err
	}
	names := make(map[string]bool, len(current)+1)
	for _, n := range current {
		names[n] = true
	}
	edit(names)

	if len(names) == 0 {
		if err := keyring.Delete(keychainService, keychainIndex); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("keychain delete: %w", err)
		}
		return nil
	}

	list := make([]string, 0, len(names))
	for n := range names {
		list = append(list, n)
	}
	sort.Strings(list)
	if err := keyring.Set(keychainService, keychainIndex, strings.Join(list, "\n")); err != nil {
		return fmt.Errorf("keychain write: %w", err)
	}
	return nil
}
