// Package cloudweb is the cloud-gateway's admin dashboard: a small
// gorilla/sessions-backed cookie session guarding a handful of device
// status endpoints. It reuses client_state.go's cookie-store setup
// (MaxAge/HttpOnly/SameSite) rather than the full authboss HTTP module
// stack, since the gateway only needs "is an admin logged in", not
// registration/oauth/recovery flows.
package cloudweb

import (
	"encoding/json"
	"net/http"

	"github.com/aarondl/authboss/v3"
	"github.com/gorilla/sessions"

	"github.com/nhirsama/deviceproto/internal/identity"
	"github.com/nhirsama/deviceproto/internal/store/pgdescriptor"
)

const sessionName = "deviceproto_admin"

// Server serves the admin dashboard.
type Server struct {
	sessions  sessions.Store
	identity  *identity.Store
	descs     *pgdescriptor.Store
	adminUser string
	adminPass string
}

// New returns a Server whose cookie store is keyed by secret and whose
// single admin account is user/pass.
func New(secret []byte, id *identity.Store, descs *pgdescriptor.Store, user, pass string) *Server {
	store := sessions.NewCookieStore(secret)
	store.Options.MaxAge = 86400
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.Path = "/"
	return &Server{sessions: store, identity: id, descs: descs, adminUser: user, adminPass: pass}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/device/hello", s.handleDeviceHello)
	mux.HandleFunc("/devices", s.requireAdmin(s.handleDeviceList))
	mux.HandleFunc("/devices/", s.requireAdmin(s.handleDeviceStatus))
	return mux
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user, pass := r.FormValue("user"), r.FormValue("pass")
	if user != s.adminUser || pass != s.adminPass {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	session, _ := s.sessions.Get(r, sessionName)
	session.Values["admin"] = true
	if err := session.Save(r, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessions.Get(r, sessionName)
		if err != nil || session.Values["admin"] != true {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// handleDeviceHello exchanges a device's provisioned credentials for a
// bearer token, the cloud side of the HELLO handshake's token mint.
func (s *Server) handleDeviceHello(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	deviceID, secretHash := r.FormValue("device_id"), r.FormValue("secret_hash")
	if deviceID == "" {
		http.Error(w, "missing device_id", http.StatusBadRequest)
		return
	}

	user, err := s.identity.Load(r.Context(), deviceID)
	if err != nil {
		http.Error(w, "unknown device", http.StatusUnauthorized)
		return
	}
	if user.(authboss.AuthableUser).GetPassword() != secretHash {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token := s.identity.TouchHello(deviceID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(token)
}

// handleDeviceList reports every provisioned device and when it last
// completed a HELLO handshake.
func (s *Server) handleDeviceList(w http.ResponseWriter, r *http.Request) {
	devices := s.identity.List()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(devices)
}

// handleDeviceStatus reports the cached descriptor's system and app
// CRCs for the device named by the URL's trailing path segment.
func (s *Server) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Path[len("/devices/"):]
	if deviceID == "" {
		http.Error(w, "missing device id", http.StatusBadRequest)
		return
	}

	desc, found, err := s.descs.Get(r.Context(), deviceID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	systemCRC, hasSystem := desc.SystemCRC()
	appCRC, hasApp := desc.AppCRC()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		DeviceID       string  `json:"device_id"`
		DescriptorSeen bool    `json:"descriptor_seen"`
		SystemCRC      *uint32 `json:"system_crc,omitempty"`
		AppCRC         *uint32 `json:"app_crc,omitempty"`
	}{
		DeviceID:       deviceID,
		DescriptorSeen: found,
		SystemCRC:      optionalUint32(systemCRC, hasSystem),
		AppCRC:         optionalUint32(appCRC, hasApp),
	})
}

func optionalUint32(v uint32, ok bool) *uint32 {
	if !ok {
		return nil
	}
	return &v
}
