package orderscraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	cookiejar "github.com/orirawlings/persistent-cookiejar"
)

// LocalStorageFileExtension is appended to the session state path for the localStorage sidecar.
const LocalStorageFileExtension = ".storage"

// SessionState is the authentication state reused across runs.
// Cookies live in a persistent cookie jar file at the path, localStorage in a JSON sidecar.
// A Domain with a leading dot marks a cookie valid for subdomains; without it the cookie is host-only.
type SessionState struct {
	Cookies      []*http.Cookie
	LocalStorage map[string]map[string]string // origin -> key -> value
}

func SessionStateExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// LoadSessionState reads the state saved at path. A missing sidecar yields empty localStorage.
func LoadSessionState(path string) (*SessionState, error) {
	jar, err := cookiejar.New(&cookiejar.Options{
		Filename:              path,
		PersistSessionCookies: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load session state %s: %w", path, err)
	}
	storage, err := loadStorageFile(path)
	if err != nil {
		return nil, err
	}
	// the jar forgets whether a cookie was host-only; restore the leading dot of domain cookies
	domainCookies := map[string]bool{}
	for _, key := range storage.DomainCookies {
		domainCookies[key] = true
	}
	cookies := jar.AllCookies()
	for _, c := range cookies {
		host := strings.TrimPrefix(c.Domain, ".")
		if domainCookies[cookieKey(c)] {
			c.Domain = "." + host
		} else {
			c.Domain = host
		}
	}
	return &SessionState{
		Cookies:      cookies,
		LocalStorage: storage.LocalStorage,
	}, nil
}

// Save overwrites the state at path.
func (state *SessionState) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("couldn't create directory: %v: %w", dir, err)
		}
	}
	// the jar merges with what is on disk, so start from nothing
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	jar, err := cookiejar.New(&cookiejar.Options{
		Filename:              path,
		PersistSessionCookies: true,
	})
	if err != nil {
		return err
	}
	storage := storageFile{LocalStorage: state.LocalStorage}
	for _, cookie := range state.Cookies {
		u, c := cookieOrigin(cookie)
		jar.SetCookies(u, []*http.Cookie{c})
		if strings.HasPrefix(cookie.Domain, ".") {
			storage.DomainCookies = append(storage.DomainCookies, cookieKey(cookie))
		}
	}
	if err := jar.Save(); err != nil {
		return fmt.Errorf("failed to save session state %s: %w", path, err)
	}
	return saveStorageFile(path, storage)
}

// cookieKey identifies a cookie independently of how its domain is spelled.
func cookieKey(c *http.Cookie) string {
	path := c.Path
	if path == "" {
		path = "/"
	}
	return c.Name + ";" + strings.TrimPrefix(c.Domain, ".") + ";" + path
}

// cookieOrigin returns a URL the jar accepts the cookie from. A leading dot marks a domain cookie,
// anything else is stored host-only.
func cookieOrigin(cookie *http.Cookie) (*url.URL, *http.Cookie) {
	c := *cookie
	host := strings.TrimPrefix(c.Domain, ".")
	if !strings.HasPrefix(c.Domain, ".") {
		c.Domain = ""
	} else {
		c.Domain = host
	}
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	path := c.Path
	if path == "" {
		path = "/"
	}
	return &url.URL{Scheme: scheme, Host: host, Path: path}, &c
}

// storageFile is the JSON sidecar next to the cookie jar.
type storageFile struct {
	LocalStorage  map[string]map[string]string `json:"localStorage"`
	DomainCookies []string                     `json:"domainCookies,omitempty"` // cookieKey of cookies valid for subdomains
}

func loadStorageFile(path string) (storageFile, error) {
	storage := storageFile{}
	filename := path + LocalStorageFileExtension
	b, err := os.ReadFile(filename)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return storage, fmt.Errorf("failed to read local storage file %s: %v", filename, err)
	}
	if err == nil {
		if err := json.Unmarshal(b, &storage); err != nil {
			return storage, fmt.Errorf("failed to parse local storage file %s: %v", filename, err)
		}
	}
	if storage.LocalStorage == nil {
		storage.LocalStorage = map[string]map[string]string{}
	}
	return storage, nil
}

func saveStorageFile(path string, storage storageFile) error {
	filename := path + LocalStorageFileExtension
	if storage.LocalStorage == nil {
		storage.LocalStorage = map[string]map[string]string{}
	}
	b, err := json.Marshal(storage)
	if err != nil {
		return fmt.Errorf("failed to marshal local storage: %v", err)
	}
	if err := os.WriteFile(filename, b, os.FileMode(0600)); err != nil {
		return fmt.Errorf("failed to write local storage file %s: %v", filename, err)
	}
	return nil
}
