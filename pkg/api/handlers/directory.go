package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rawkintrevo/agent-lab-ui/pkg/auth"
	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
	"github.com/rawkintrevo/agent-lab-ui/pkg/store"
	"github.com/rawkintrevo/agent-lab-ui/pkg/utils"
	"github.com/rawkintrevo/agent-lab-ui/pkg/validation"
)

// RegisterDirectory registers the agent/model/project/user catalog routes.
// Agents and models list by project scope; projects and users are flat.
func RegisterDirectory(r *mux.Router) {
	r.HandleFunc("/agents", createAgent).Methods(http.MethodPost)
	r.HandleFunc("/agents", listAgents).Methods(http.MethodGet)
	r.HandleFunc("/agents/{id}", getAgent).Methods(http.MethodGet)
	r.HandleFunc("/agents/{id}", updateAgent).Methods(http.MethodPut)
	r.HandleFunc("/agents/{id}", deleteAgent).Methods(http.MethodDelete)

	r.HandleFunc("/models", createModel).Methods(http.MethodPost)
	r.HandleFunc("/models", listModels).Methods(http.MethodGet)
	r.HandleFunc("/models/{id}", getModel).Methods(http.MethodGet)
	r.HandleFunc("/models/{id}", updateModel).Methods(http.MethodPut)
	r.HandleFunc("/models/{id}", deleteModel).Methods(http.MethodDelete)

	r.HandleFunc("/projects", createProject).Methods(http.MethodPost)
	r.HandleFunc("/projects", listProjects).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id}", getProject).Methods(http.MethodGet)
	r.HandleFunc("/projects/{id}", deleteProject).Methods(http.MethodDelete)

	r.HandleFunc("/users", createUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}", getUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", deleteUser).Methods(http.MethodDelete)
}

func createAgent(w http.ResponseWriter, r *http.Request) {
	var a models.Agent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if a.ID == "" {
		a.ID = "a" + utils.GenID()
	}
	if authID := auth.AuthorIDFromContext(r.Context()); authID != "" && a.UserID == "" {
		a.UserID = authID
	}
	now := time.Now().UTC().UnixNano()
	if a.CreatedTS == 0 {
		a.CreatedTS = now
	}
	a.UpdatedTS = now
	if a.DeploymentStatus == "" {
		a.DeploymentStatus = models.DeployNotDeployed
	}
	if err := validation.ValidateAgent(a); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.SaveAgent(a); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, a)
}

func listAgents(w http.ResponseWriter, r *http.Request) {
	projects := splitCSV(r.URL.Query().Get("project"))
	if len(projects) == 0 {
		utils.JSONError(w, http.StatusBadRequest, "project query parameter is required")
		return
	}
	agents, err := store.ListAgentsForProjects(projects)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Agents []models.Agent `json:"agents"`
	}{Agents: agents})
}

func getAgent(w http.ResponseWriter, r *http.Request) {
	a, err := store.GetAgent(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err, "agent not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, a)
}

func updateAgent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := store.GetAgent(id)
	if err != nil {
		writeStoreError(w, err, "agent not found")
		return
	}
	if !callerOwns(r, existing.UserID) {
		utils.JSONError(w, http.StatusForbidden, "not agent owner")
		return
	}
	var a models.Agent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	a.ID = id
	a.UserID = existing.UserID
	a.CreatedTS = existing.CreatedTS
	a.UpdatedTS = time.Now().UTC().UnixNano()
	if err := validation.ValidateAgent(a); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.SaveAgent(a); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, a)
}

func deleteAgent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := store.GetAgent(id)
	if err != nil {
		writeStoreError(w, err, "agent not found")
		return
	}
	if !callerOwns(r, existing.UserID) {
		utils.JSONError(w, http.StatusForbidden, "not agent owner")
		return
	}
	if err := store.DeleteAgent(id); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func createModel(w http.ResponseWriter, r *http.Request) {
	var m models.Model
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if m.ID == "" {
		m.ID = "md" + utils.GenID()
	}
	if authID := auth.AuthorIDFromContext(r.Context()); authID != "" && m.OwnerID == "" {
		m.OwnerID = authID
	}
	now := time.Now().UTC().UnixNano()
	if m.CreatedTS == 0 {
		m.CreatedTS = now
	}
	m.UpdatedTS = now
	if err := validation.ValidateModel(m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.SaveModel(m); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

func listModels(w http.ResponseWriter, r *http.Request) {
	projects := splitCSV(r.URL.Query().Get("project"))
	if len(projects) == 0 {
		utils.JSONError(w, http.StatusBadRequest, "project query parameter is required")
		return
	}
	ms, err := store.ListModelsForProjects(projects)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Models []models.Model `json:"models"`
	}{Models: ms})
}

func getModel(w http.ResponseWriter, r *http.Request) {
	m, err := store.GetModel(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err, "model not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

func updateModel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := store.GetModel(id)
	if err != nil {
		writeStoreError(w, err, "model not found")
		return
	}
	if !callerOwns(r, existing.OwnerID) {
		utils.JSONError(w, http.StatusForbidden, "not model owner")
		return
	}
	var m models.Model
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	m.ID = id
	m.OwnerID = existing.OwnerID
	m.CreatedTS = existing.CreatedTS
	m.UpdatedTS = time.Now().UTC().UnixNano()
	if err := validation.ValidateModel(m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := store.SaveModel(m); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

func deleteModel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := store.GetModel(id)
	if err != nil {
		writeStoreError(w, err, "model not found")
		return
	}
	if !callerOwns(r, existing.OwnerID) {
		utils.JSONError(w, http.StatusForbidden, "not model owner")
		return
	}
	if err := store.DeleteModel(id); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func createProject(w http.ResponseWriter, r *http.Request) {
	var p models.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if p.Name == "" {
		utils.JSONError(w, http.StatusBadRequest, "project name is required")
		return
	}
	if p.ID == "" {
		p.ID = "p" + utils.GenID()
	}
	if authID := auth.AuthorIDFromContext(r.Context()); authID != "" && p.OwnerID == "" {
		p.OwnerID = authID
	}
	now := time.Now().UTC().UnixNano()
	if p.CreatedTS == 0 {
		p.CreatedTS = now
	}
	p.UpdatedTS = now
	if err := store.SaveProject(p); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, p)
}

func listProjects(w http.ResponseWriter, _ *http.Request) {
	ps, err := store.ListProjects()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Projects []models.Project `json:"projects"`
	}{Projects: ps})
}

func getProject(w http.ResponseWriter, r *http.Request) {
	p, err := store.GetProject(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err, "project not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, p)
}

func deleteProject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := store.GetProject(id)
	if err != nil {
		writeStoreError(w, err, "project not found")
		return
	}
	if !callerOwns(r, existing.OwnerID) {
		utils.JSONError(w, http.StatusForbidden, "not project owner")
		return
	}
	if err := store.DeleteProject(id); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func createUser(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if u.ID == "" {
		utils.JSONError(w, http.StatusBadRequest, "user id is required")
		return
	}
	if u.CreatedTS == 0 {
		u.CreatedTS = time.Now().UTC().UnixNano()
	}
	if err := store.SaveUser(u); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u)
}

func getUser(w http.ResponseWriter, r *http.Request) {
	u, err := store.GetUser(mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err, "user not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u)
}

func deleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !callerOwns(r, id) {
		utils.JSONError(w, http.StatusForbidden, "not account owner")
		return
	}
	if err := store.DeleteUser(id); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "deleted"})
}
