package auth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	cred := &Credential{
		Name:       "office",
		ServiceKey: "abcd%2Befgh%3D%3D1234",
		AuthMode:   "url",
	}

	if err := manager.Store(cred); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}
	if cred.LastModified.IsZero() {
		t.Error("Expected LastModified to be stamped")
	}

	retrieved, err := manager.Retrieve("office")
	if err != nil {
		t.Fatalf("Failed to retrieve credential: %v", err)
	}
	if retrieved.ServiceKey != cred.ServiceKey {
		t.Errorf("ServiceKey mismatch: got %s, want %s", retrieved.ServiceKey, cred.ServiceKey)
	}
	if retrieved.AuthMode != "url" {
		t.Errorf("AuthMode mismatch: got %s, want url", retrieved.AuthMode)
	}

	creds, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list credentials: %v", err)
	}
	if len(creds) != 1 {
		t.Errorf("Expected 1 credential, got %d", len(creds))
	}

	if err := manager.Delete("office"); err != nil {
		t.Errorf("Failed to delete credential: %v", err)
	}
	if _, err := manager.Retrieve("office"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 credentials after deletion, got %d", mockStore.Count())
	}
	if err := manager.Delete("office"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound on second delete, got %v", err)
	}
}

func TestManagerDefaults(t *testing.T) {
	manager, _ := NewMockManager()

	if err := manager.Store(&Credential{}); err == nil {
		t.Error("Expected an error for an empty service key")
	}

	if err := manager.Store(&Credential{ServiceKey: "plain-key-value"}); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}

	cred, err := manager.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve default credential: %v", err)
	}
	if cred.Name != DefaultName {
		t.Errorf("Expected name %q, got %q", DefaultName, cred.Name)
	}
}

func TestManagerRetrieveDefaultFallsBackToNewest(t *testing.T) {
	store := NewMockStore()
	manager := NewManagerWithStores(store)

	_ = store.Store(&Credential{Name: "old", ServiceKey: "k1", LastModified: time.Now().Add(-time.Hour)})
	_ = store.Store(&Credential{Name: "new", ServiceKey: "k2", LastModified: time.Now()})

	cred, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatalf("Failed to retrieve default: %v", err)
	}
	if cred.Name != "new" {
		t.Errorf("Expected newest credential, got %s", cred.Name)
	}

	empty := NewManagerWithStores(NewMockStore())
	if _, err := empty.RetrieveDefault(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestManagerFallsBackBetweenStores(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = fmt.Errorf("keychain locked")
	working := NewMockStore()
	manager := NewManagerWithStores(broken, working)

	if err := manager.Store(&Credential{Name: "x", ServiceKey: "key"}); err != nil {
		t.Fatalf("Expected fallback store to accept credential: %v", err)
	}
	if !working.Exists("x") {
		t.Error("Expected credential in fallback store")
	}

	working.StoreError = fmt.Errorf("disk full")
	err := manager.Store(&Credential{Name: "y", ServiceKey: "key"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("Expected last store error, got %v", err)
	}
}

func TestManagerDeleteReportsRealFailures(t *testing.T) {
	failing := NewMockStore()
	failing.DeleteError = fmt.Errorf("permission denied")
	manager := NewManagerWithStores(failing, NewEnvironmentStore())

	err := manager.Delete("x")
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("Expected permission error, got %v", err)
	}
}

func TestSanitize(t *testing.T) {
	cred := &Credential{Name: "n", ServiceKey: "ABCDEFGHIJKLMNOP", AuthMode: "query"}

	sanitized := Sanitize(cred)
	if sanitized.ServiceKey != "ABCD...MNOP" {
		t.Errorf("Unexpected mask: %s", sanitized.ServiceKey)
	}
	if sanitized.Name != "n" || sanitized.AuthMode != "query" {
		t.Error("Name and AuthMode should not be masked")
	}
	if MaskKey("short") != "********" {
		t.Error("Short keys should be fully masked")
	}
	if Sanitize(nil) != nil {
		t.Error("Expected nil for nil credential")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "creds.enc")
	t.Setenv(EnvPassphrase, "test_passphrase_123")

	store, err := NewEncryptedFileStore(tempFile)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	cred := &Credential{Name: "enc", ServiceKey: "secret-service-key-value", AuthMode: "query"}
	if err := store.Store(cred); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Retrieve("enc")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.ServiceKey != cred.ServiceKey {
		t.Error("ServiceKey mismatch after encryption/decryption")
	}

	fileContent, err := os.ReadFile(tempFile)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(fileContent, []byte("secret-service-key-value")) {
		t.Error("File contains plaintext service key")
	}

	// A different passphrase cannot read the file
	t.Setenv(EnvPassphrase, "another_passphrase")
	other, err := NewEncryptedFileStore(tempFile)
	if err != nil {
		t.Fatalf("Failed to create second store: %v", err)
	}
	if _, err := other.Retrieve("enc"); err == nil {
		t.Error("Expected decryption to fail with the wrong passphrase")
	}

	// Deleting the last credential removes the file
	if err := store.Delete("enc"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := os.Stat(tempFile); !os.IsNotExist(err) {
		t.Error("Expected credentials file to be removed")
	}
	if err := store.Delete("enc"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPassphrase, "")

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}
	if err := store.Store(&Credential{Name: "a", ServiceKey: "key-a"}); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, ".passphrase"))
	if err != nil {
		t.Fatalf("Expected passphrase file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected passphrase file mode 0600, got %v", info.Mode().Perm())
	}

	// A second store in the same directory reuses the passphrase
	again, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	creds, err := again.List()
	if err != nil || len(creds) != 1 {
		t.Errorf("Expected 1 credential after reopening, got %d (%v)", len(creds), err)
	}
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(EnvServiceKey, "")
	if store.Exists("") {
		t.Error("Expected no credential without the variable")
	}
	creds, _ := store.List()
	if len(creds) != 0 {
		t.Errorf("Expected empty list, got %d", len(creds))
	}

	t.Setenv(EnvServiceKey, "env%2Bkey")
	t.Setenv(EnvAuthMode, "url")

	cred, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if cred.ServiceKey != "env%2Bkey" || cred.AuthMode != "url" || cred.Name != DefaultName {
		t.Errorf("Unexpected credential: %+v", cred)
	}

	if err := store.Store(&Credential{}); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
	if err := store.Delete("x"); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()

	creds, err := store.List()
	if err != nil {
		t.Errorf("Failed to list empty store: %v", err)
	}
	if len(creds) != 0 {
		t.Errorf("Expected 0 credentials, got %d", len(creds))
	}

	if err := store.Store(&Credential{Name: "mock", ServiceKey: "k"}); err != nil {
		t.Errorf("Failed to store credential: %v", err)
	}
	if !store.Exists("mock") {
		t.Error("Credential should exist")
	}

	store.ListError = fmt.Errorf("injected error")
	if _, err := store.List(); err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}
}

func TestGuessAuthMode(t *testing.T) {
	if GuessAuthMode("abc%2Bdef%3D%3D") != "url" {
		t.Error("Percent-encoded key should use url mode")
	}
	if GuessAuthMode("abc+def==") != "query" {
		t.Error("Raw key should use query mode")
	}
}

func TestShowServiceKeyGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowServiceKeyGuide(&buf)
	if !strings.Contains(buf.String(), "--auth-mode url") {
		t.Error("Guide should explain the auth modes")
	}
}
