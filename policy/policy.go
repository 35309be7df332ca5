// Package policy implements the capability/authorization rules gating
// namespace, term, skolem, and agent mutations. All checks are pure
// functions over explicit capability-set values so they are testable
// without constructing HTTP requests.
//
// Namespace capabilities are org or org/repo path strings: admin at the
// org level implies edit at any repo beneath it, while edit is repo-scoped
// only. Skolem mutation is a disjoint capability axis keyed by shoulder.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/polyneme/termeric/ark"
)

// ErrForbidden is the root of every policy denial. The wrapped message
// always states the precise rule violated.
var ErrForbidden = errors.New("forbidden")

// AgentType distinguishes people from software agents in the capability
// graph.
type AgentType string

const (
	// Person is a human agent.
	Person AgentType = "person"
	// SoftwareAgent is an automated agent; software agents are leaves in
	// the capability graph and can never manage other agents.
	SoftwareAgent AgentType = "software_agent"
)

// Agent is a principal with credentials and capability lists.
type Agent struct {
	ID                string
	Username          string
	Type              AgentType
	HashedPassword    string
	CanEdit           []string       // org/repo paths this agent may mutate
	CanAdmin          []string       // org or org/repo paths it may also administer
	CanAdminShoulders []ark.Shoulder // shoulders whose skolems it may mutate
}

// CanMutateRepo reports whether the agent may create or update resources
// under org/repo: the exact org or org/repo must appear in can_admin, or
// org/repo in can_edit.
func CanMutateRepo(a Agent, org, repo string) bool {
	path := org + "/" + repo
	for _, item := range a.CanAdmin {
		if item == org || item == path {
			return true
		}
	}
	for _, item := range a.CanEdit {
		if item == path {
			return true
		}
	}
	return false
}

// CheckMutateRepo returns a forbidden error naming the agent and path when
// CanMutateRepo fails.
func CheckMutateRepo(a Agent, org, repo string) error {
	if !CanMutateRepo(a, org, repo) {
		return fmt.Errorf("%w: agent %s cannot update term in %s/%s", ErrForbidden, a.Username, org, repo)
	}
	return nil
}

// CanMutateShoulder reports whether the agent administers the shoulder.
func CanMutateShoulder(a Agent, shoulder ark.Shoulder) bool {
	for _, s := range a.CanAdminShoulders {
		if s == shoulder {
			return true
		}
	}
	return false
}

// CheckMutateShoulder returns a forbidden error naming the agent and
// shoulder when CanMutateShoulder fails.
func CheckMutateShoulder(a Agent, shoulder ark.Shoulder) error {
	if !CanMutateShoulder(a, shoulder) {
		return fmt.Errorf("%w: agent %s cannot update skolem with shoulder %s", ErrForbidden, a.Username, shoulder)
	}
	return nil
}

// capabilitySubset reports whether every capability in sub is covered by
// some capability in super. An org-level capability covers every repo
// beneath it; an org/repo capability covers only itself.
func capabilitySubset(sub, super []string) bool {
	for _, repo := range sub {
		covered := false
		for _, item := range super {
			if item == repo {
				covered = true
				break
			}
			if !strings.Contains(item, "/") && strings.HasPrefix(repo, item+"/") {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// CheckManage decides whether requester may create, read, update, or
// delete the target agent. Capability delegation is strictly monotone: a
// requester can never grant, via a managed agent, more than it holds.
func CheckManage(requester, target Agent) error {
	if len(target.CanAdmin) > 0 {
		return fmt.Errorf("%w: no one can manage agents that can_admin", ErrForbidden)
	}
	if requester.Type == SoftwareAgent {
		return fmt.Errorf("%w: software agents cannot manage other agents", ErrForbidden)
	}
	switch target.Type {
	case Person:
		if !capabilitySubset(target.CanEdit, requester.CanAdmin) {
			return fmt.Errorf("%w: a requester person agent can manage a target person agent "+
				"only if the target agent's can_edit capabilities "+
				"are a subset of the requester's can_admin capabilities", ErrForbidden)
		}
	case SoftwareAgent:
		if !capabilitySubset(target.CanEdit, append(append([]string{}, requester.CanEdit...), requester.CanAdmin...)) {
			return fmt.Errorf("%w: a requester person can manage a target software_agent "+
				"only if the target agent's can_edit capabilities "+
				"are a subset of the requester's can_edit or can_admin capabilities", ErrForbidden)
		}
	}
	return nil
}
