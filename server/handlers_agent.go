package server

import (
	"errors"
	"net/http"

	"github.com/polyneme/termeric/ark"
	"github.com/polyneme/termeric/policy"
	"github.com/polyneme/termeric/storage"
)

// agentIn is the request body for agent creation. can_admin is
// deliberately absent: administrators are only created through the
// bootstrap path, never through this endpoint.
type agentIn struct {
	Username          string   `json:"username"`
	Type              string   `json:"type"`
	Password          string   `json:"password"`
	CanEdit           []string `json:"can_edit"`
	CanAdminShoulders []string `json:"can_admin_shoulders"`
}

// publicAgentDoc strips the credential and storage identity before an
// agent document leaves the server.
func publicAgentDoc(doc storage.Doc) storage.Doc {
	return doc.Without(storage.IDKey, "hashed_password")
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	requester, ok := s.authenticate(w, r, naan)
	if !ok {
		return
	}

	var in agentIn
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Username == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	agentType := policy.AgentType(in.Type)
	if agentType != policy.Person && agentType != policy.SoftwareAgent {
		writeError(w, http.StatusBadRequest, "type must be person or software_agent")
		return
	}

	target := policy.Agent{
		ID:       ark.AgentARK(naan, in.Username),
		Username: in.Username,
		Type:     agentType,
		CanEdit:  in.CanEdit,
	}
	for _, sh := range in.CanAdminShoulders {
		shoulder, err := ark.ParseShoulder(sh)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		target.CanAdminShoulders = append(target.CanAdminShoulders, shoulder)
	}
	if err := policy.CheckManage(requester, target); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	target.HashedPassword = hash

	if err := s.store.Agents.Insert(r.Context(), target.Doc()); err != nil {
		if errors.Is(err, storage.ErrExists) {
			writeError(w, http.StatusConflict, "Agent already exists!")
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, publicAgentDoc(target.Doc()))
}

// manageTarget loads the named agent and verifies the requester may manage
// it. Reads are gated by the same rule as writes: an agent's capability
// record is visible only to principals that could change it.
func (s *Server) manageTarget(w http.ResponseWriter, r *http.Request, naan ark.Naan, username string) (storage.Doc, policy.Agent, bool) {
	doc, err := s.store.Agents.FindID(r.Context(), ark.AgentARK(naan, username))
	if err != nil {
		s.writeStorageError(w, r, err, "Agent not found")
		return nil, policy.Agent{}, false
	}
	requester, ok := s.authenticate(w, r, naan)
	if !ok {
		return nil, policy.Agent{}, false
	}
	if err := policy.CheckManage(requester, policy.AgentFromDoc(doc)); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return nil, policy.Agent{}, false
	}
	return doc, requester, true
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	doc, _, ok := s.manageTarget(w, r, naan, params["username"])
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, publicAgentDoc(doc))
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	doc, requester, ok := s.manageTarget(w, r, naan, params["username"])
	if !ok {
		return
	}

	var envelope updateEnvelope
	if !decodeBody(w, r, &envelope) {
		return
	}
	// Delegation must stay monotone through updates too: the envelope is
	// authorized against the state it would produce, so a manager cannot
	// grant can_admin or widen can_edit past its own capabilities.
	preview, err := envelope.Update.Preview(doc)
	if err != nil {
		s.writeStorageError(w, r, err, "Agent not found")
		return
	}
	if err := policy.CheckManage(requester, policy.AgentFromDoc(preview)); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}
	updated, err := s.store.Agents.Apply(r.Context(), doc.ID(), envelope.Update)
	if err != nil {
		s.writeStorageError(w, r, err, "Agent not found")
		return
	}
	writeJSON(w, http.StatusOK, publicAgentDoc(updated))
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request, params map[string]string) {
	naan, ok := s.parseNaanParam(w, r, params)
	if !ok {
		return
	}
	doc, _, ok := s.manageTarget(w, r, naan, params["username"])
	if !ok {
		return
	}
	n, err := s.store.Agents.Delete(r.Context(), doc.ID())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"n_deleted": n})
}
