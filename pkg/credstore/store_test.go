package credstore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/wisp-protocol/wisp-go/pkg/netstack"
)

func TestLoadMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "creds.json"))

	_, err := s.Load()
	if !errors.Is(err, netstack.ErrNoCredentials) {
		t.Fatalf("Load() error = %v, want ErrNoCredentials", err)
	}

	exists, err := s.Exists()
	if err != nil {
		t.Fatalf("Exists() failed: %v", err)
	}
	if exists {
		t.Error("Exists() = true for missing file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "creds.json"))

	creds := netstack.Credentials{SSID: "HomeNet", Passphrase: "hunter22"}
	if err := s.Save(creds); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != creds {
		t.Errorf("Load() = %+v, want %+v", got, creds)
	}

	exists, err := s.Exists()
	if err != nil {
		t.Fatalf("Exists() failed: %v", err)
	}
	if !exists {
		t.Error("Exists() = false after Save")
	}
}

func TestSaveReplaces(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "creds.json"))

	if err := s.Save(netstack.Credentials{SSID: "OldNet", Passphrase: "old"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(netstack.Credentials{SSID: "NewNet", Passphrase: "new"}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.SSID != "NewNet" {
		t.Errorf("Load().SSID = %q, want NewNet", got.SSID)
	}
}

func TestClear(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "creds.json"))

	// Clearing a store that never saved is fine
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear on empty store failed: %v", err)
	}

	if err := s.Save(netstack.Credentials{SSID: "HomeNet"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	_, err := s.Load()
	if !errors.Is(err, netstack.ErrNoCredentials) {
		t.Errorf("Load() after Clear = %v, want ErrNoCredentials", err)
	}
}

func TestStoreCreatesParentDir(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "dir", "creds.json"))

	if err := s.Save(netstack.Credentials{SSID: "HomeNet"}); err != nil {
		t.Fatalf("Save into missing directory failed: %v", err)
	}
}
