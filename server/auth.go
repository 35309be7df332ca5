package server

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/polyneme/termeric/ark"
	"github.com/polyneme/termeric/policy"
)

// dummyHash is a bcrypt hash of a random string nobody knows. Verifying
// against it on unknown-user paths keeps the failure timing independent of
// whether the username exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

const dummyUsername = "no-such-agent"

// HashPassword produces a bcrypt hash for storage in an agent document.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// authenticate resolves the HTTP Basic credentials to an agent registered
// under naan. On any failure it writes a 401 with a WWW-Authenticate
// challenge and returns false. Unknown usernames burn a hash verification
// and a constant-time username comparison so they are indistinguishable
// from bad passwords.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, naan ark.Naan) (policy.Agent, bool) {
	username, password, ok := r.BasicAuth()
	if !ok {
		s.unauthorized(w)
		return policy.Agent{}, false
	}

	doc, err := s.store.Agents.FindID(r.Context(), ark.AgentARK(naan, username))
	if err != nil {
		bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		subtle.ConstantTimeCompare([]byte(username), []byte(dummyUsername))
		s.unauthorized(w)
		return policy.Agent{}, false
	}

	agent := policy.AgentFromDoc(doc)
	if bcrypt.CompareHashAndPassword([]byte(agent.HashedPassword), []byte(password)) != nil {
		s.unauthorized(w)
		return policy.Agent{}, false
	}
	return agent, true
}

func (s *Server) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Basic")
	writeError(w, http.StatusUnauthorized, "Incorrect username or password")
}
