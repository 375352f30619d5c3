// Package identity is the cloud-gateway's device credential store: an
// authboss.ServerStorer over device id and shared-secret hash, plus
// the oauth2.Token minted once a HELLO handshake completes. It is
// grounded in AuthbossStorer.go's Load/Save/New/Create shape, adapted
// from a human username/password user record to a device id/shared
// secret record with no confirm/recover flows (those are dashboard-
// user concerns tracked separately, not device concerns).
package identity

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aarondl/authboss/v3"
	"golang.org/x/oauth2"
)

// DeviceCredential is the authboss.User for a device: PID is the
// device id, password is a hash of its provisioned shared secret.
type DeviceCredential struct {
	DeviceID     string
	SecretHash   string
	Permission   int
	LastHelloAt  time.Time
}

func (d *DeviceCredential) GetPID() string       { return d.DeviceID }
func (d *DeviceCredential) PutPID(pid string)    { d.DeviceID = pid }
func (d *DeviceCredential) GetPassword() string  { return d.SecretHash }
func (d *DeviceCredential) PutPassword(p string) { d.SecretHash = p }

// Store is an in-memory authboss.ServerStorer keyed by device id. A
// real deployment would back this with the same Postgres instance
// pgdescriptor uses; this is deliberately storage-agnostic so tests
// don't need a database.
type Store struct {
	mu      sync.RWMutex
	devices map[string]*DeviceCredential
}

// New returns an empty Store.
func New() *Store {
	return &Store{devices: make(map[string]*DeviceCredential)}
}

// Provision registers deviceID with secretHash, overwriting any
// existing credential.
func (s *Store) Provision(deviceID, secretHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[deviceID] = &DeviceCredential{DeviceID: deviceID, SecretHash: secretHash}
}

func (s *Store) Load(ctx context.Context, key string) (authboss.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[key]
	if !ok {
		return nil, authboss.ErrUserNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *Store) Save(ctx context.Context, user authboss.User) error {
	d, ok := user.(*DeviceCredential)
	if !ok {
		return errors.New("identity: invalid user type")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.devices[d.DeviceID]; !exists {
		return authboss.ErrUserNotFound
	}
	cp := *d
	s.devices[d.DeviceID] = &cp
	return nil
}

func (s *Store) New(ctx context.Context) authboss.User {
	return &DeviceCredential{}
}

func (s *Store) Create(ctx context.Context, user authboss.User) error {
	d, ok := user.(*DeviceCredential)
	if !ok {
		return errors.New("identity: invalid user type")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.devices[d.DeviceID]; exists {
		return authboss.ErrUserFound
	}
	cp := *d
	s.devices[d.DeviceID] = &cp
	return nil
}

// List returns every provisioned device credential, sorted by device
// id, mirroring the teacher's device-list page's "load everything,
// filter in the handler" shape but without a status filter — there is
// no pending/approved distinction for devices here, only provisioned.
func (s *Store) List() []DeviceCredential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DeviceCredential, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// TouchHello records that deviceID completed a HELLO handshake and
// mints a short-lived bearer token for it. The token is not stored;
// no endpoint in this module checks it.
func (s *Store) TouchHello(deviceID string) *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.devices[deviceID]; ok {
		d.LastHelloAt = time.Now()
	}
	return &oauth2.Token{
		AccessToken: deviceID + "." + time.Now().Format("20060102T150405"),
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(HelloWaitMs()),
	}
}

// HelloWaitMs is a small helper so the token lifetime tracks the same
// order of magnitude as the handshake's own timeout without importing
// the engine package (which would create an import cycle: engine
// never depends on identity).
func HelloWaitMs() time.Duration {
	return 4 * time.Second
}
