package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"

	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
)

// The directory holds the console's configuration documents: agents,
// models, projects, users. They are plain CRUD records; only the
// project-scoped listings matter to the conversation layer.

func putDoc(key string, v interface{}) error {
	if db == nil {
		return errNotOpen()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	return db.Set([]byte(key), data, pebble.Sync)
}

func deleteDoc(key string) error {
	if db == nil {
		return errNotOpen()
	}
	return db.Delete([]byte(key), pebble.Sync)
}

func anyProjectMatch(have []string, want map[string]bool) bool {
	for _, id := range have {
		if want[id] {
			return true
		}
	}
	return false
}

func projectSet(projectIDs []string) map[string]bool {
	want := make(map[string]bool, len(projectIDs))
	for _, id := range projectIDs {
		want[id] = true
	}
	return want
}

// --- Agents ---

func SaveAgent(a models.Agent) error {
	if a.ID == "" {
		return fmt.Errorf("agent id missing")
	}
	return putDoc("agent:"+a.ID, a)
}

func GetAgent(agentID string) (models.Agent, error) {
	var a models.Agent
	raw, err := getRaw("agent:" + agentID)
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return a, fmt.Errorf("invalid agent document %s: %w", agentID, err)
	}
	return a, nil
}

func DeleteAgent(agentID string) error { return deleteDoc("agent:" + agentID) }

// ListAgentsForProjects returns agents associated with any of the project
// ids, name-ascending like the console's pickers.
func ListAgentsForProjects(projectIDs []string) ([]models.Agent, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	want := projectSet(projectIDs)
	raws, err := scanPrefix("agent:")
	if err != nil {
		return nil, err
	}
	var out []models.Agent
	for _, raw := range raws {
		var a models.Agent
		if err := json.Unmarshal(raw, &a); err != nil {
			continue
		}
		if anyProjectMatch(a.ProjectIDs, want) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- Models ---

func SaveModel(m models.Model) error {
	if m.ID == "" {
		return fmt.Errorf("model id missing")
	}
	return putDoc("model:"+m.ID, m)
}

func GetModel(modelID string) (models.Model, error) {
	var m models.Model
	raw, err := getRaw("model:" + modelID)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("invalid model document %s: %w", modelID, err)
	}
	return m, nil
}

func DeleteModel(modelID string) error { return deleteDoc("model:" + modelID) }

func ListModelsForProjects(projectIDs []string) ([]models.Model, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	want := projectSet(projectIDs)
	raws, err := scanPrefix("model:")
	if err != nil {
		return nil, err
	}
	var out []models.Model
	for _, raw := range raws {
		var m models.Model
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		if anyProjectMatch(m.ProjectIDs, want) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- Projects ---

func SaveProject(p models.Project) error {
	if p.ID == "" {
		return fmt.Errorf("project id missing")
	}
	return putDoc("project:"+p.ID, p)
}

func GetProject(projectID string) (models.Project, error) {
	var p models.Project
	raw, err := getRaw("project:" + projectID)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("invalid project document %s: %w", projectID, err)
	}
	return p, nil
}

func DeleteProject(projectID string) error { return deleteDoc("project:" + projectID) }

func ListProjects() ([]models.Project, error) {
	raws, err := scanPrefix("project:")
	if err != nil {
		return nil, err
	}
	out := make([]models.Project, 0, len(raws))
	for _, raw := range raws {
		var p models.Project
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- Users ---

func SaveUser(u models.User) error {
	if u.ID == "" {
		return fmt.Errorf("user id missing")
	}
	return putDoc("user:"+u.ID, u)
}

func GetUser(userID string) (models.User, error) {
	var u models.User
	raw, err := getRaw("user:" + userID)
	if err != nil {
		return u, err
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return u, fmt.Errorf("invalid user document %s: %w", userID, err)
	}
	return u, nil
}

func DeleteUser(userID string) error { return deleteDoc("user:" + userID) }
