package models

// Agent orchestration kinds. Plain agents wrap one LLM call; the composite
// kinds run their child agents sequentially, in parallel, or in a loop.
const (
	AgentTypeAgent      = "Agent"
	AgentTypeSequential = "SequentialAgent"
	AgentTypeParallel   = "ParallelAgent"
	AgentTypeLoop       = "LoopAgent"
)

// Deployment status values for platform-managed agents.
const (
	DeployNotDeployed   = "not_deployed"
	DeployNotApplicable = "n/a"
)

// Agent is a configured LLM wrapper, optionally composed of child agents.
type Agent struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	UserID      string   `json:"user_id,omitempty"`
	ProjectIDs  []string `json:"project_ids,omitempty"`
	IsPublic    bool     `json:"is_public,omitempty"`

	AgentType    string  `json:"agent_type"`
	Platform     string  `json:"platform,omitempty"`
	Instruction  string  `json:"instruction,omitempty"`
	ModelID      string  `json:"model_id,omitempty"`
	MaxLoops     int     `json:"max_loops,omitempty"`
	ChildAgents  []Agent `json:"child_agents,omitempty"`
	OutputKey    string  `json:"output_key,omitempty"`
	EnableCodeEx bool    `json:"enable_code_execution,omitempty"`

	DeploymentStatus string `json:"deployment_status,omitempty"`
	DeploymentError  string `json:"deployment_error,omitempty"`

	CreatedTS int64 `json:"created_ts,omitempty"`
	UpdatedTS int64 `json:"updated_ts,omitempty"`
}

// Model is a provider + parameter preset reusable across agents and chats.
type Model struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	OwnerID     string   `json:"owner_id,omitempty"`
	ProjectIDs  []string `json:"project_ids,omitempty"`
	IsPublic    bool     `json:"is_public,omitempty"`

	Provider    string  `json:"provider,omitempty"`
	ModelString string  `json:"model_string,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	SystemInstr string  `json:"system_instruction,omitempty"`

	CreatedTS int64 `json:"created_ts,omitempty"`
	UpdatedTS int64 `json:"updated_ts,omitempty"`
}

// Project groups agents, models and chats for access scoping.
type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id,omitempty"`
	CreatedTS int64  `json:"created_ts,omitempty"`
	UpdatedTS int64  `json:"updated_ts,omitempty"`
}

// User is a console account. Authentication itself is external; this is
// only the profile document other records reference by id.
type User struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name,omitempty"`
	Email       string   `json:"email,omitempty"`
	ProjectIDs  []string `json:"project_ids,omitempty"`
	CreatedTS   int64    `json:"created_ts,omitempty"`
}
