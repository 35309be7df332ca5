package policy

import (
	"github.com/polyneme/termeric/ark"
	"github.com/polyneme/termeric/storage"
)

// AgentFromDoc builds an Agent from its persisted document.
func AgentFromDoc(doc storage.Doc) Agent {
	a := Agent{
		ID:             str(doc["id"]),
		Username:       str(doc["username"]),
		Type:           AgentType(str(doc["type"])),
		HashedPassword: str(doc["hashed_password"]),
		CanEdit:        strs(doc["can_edit"]),
		CanAdmin:       strs(doc["can_admin"]),
	}
	for _, s := range strs(doc["can_admin_shoulders"]) {
		a.CanAdminShoulders = append(a.CanAdminShoulders, ark.Shoulder(s))
	}
	return a
}

// Doc returns the persisted form of the agent. The storage identity key is
// the agent's identifier.
func (a Agent) Doc() storage.Doc {
	shoulders := make([]any, len(a.CanAdminShoulders))
	for i, s := range a.CanAdminShoulders {
		shoulders[i] = s.String()
	}
	return storage.Doc{
		storage.IDKey:         a.ID,
		"id":                  a.ID,
		"username":            a.Username,
		"type":                string(a.Type),
		"hashed_password":     a.HashedPassword,
		"can_edit":            anys(a.CanEdit),
		"can_admin":           anys(a.CanAdmin),
		"can_admin_shoulders": shoulders,
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strs(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func anys(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
