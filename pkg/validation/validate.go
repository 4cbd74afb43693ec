// Package validation checks incoming console payloads before they reach
// the store. Rules mirror what the configuration forms enforce client-side;
// the server re-checks because the API is also scriptable.
package validation

import (
	"fmt"
	"strings"

	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
)

var agentTypes = map[string]bool{
	models.AgentTypeAgent:      true,
	models.AgentTypeSequential: true,
	models.AgentTypeParallel:   true,
	models.AgentTypeLoop:       true,
}

// ValidateParticipant checks a participant tag: "user:<id>", "agent:<id>",
// "model:<id>" or the context_stuffed sentinel.
func ValidateParticipant(p string) error {
	if p == models.ParticipantContextStuffed {
		return nil
	}
	prefix, id, ok := strings.Cut(p, ":")
	if !ok || id == "" {
		return fmt.Errorf("invalid participant %q", p)
	}
	switch prefix {
	case models.ParticipantUserPrefix, models.ParticipantAgentPrefix, models.ParticipantModelPrefix:
		return nil
	}
	return fmt.Errorf("unknown participant kind %q", prefix)
}

// ValidateMessage checks a message append payload.
func ValidateMessage(m models.Message) error {
	if err := ValidateParticipant(m.Participant); err != nil {
		return err
	}
	switch m.Status {
	case "", models.StatusInitializing, models.StatusRunning:
	default:
		return fmt.Errorf("invalid status %q", m.Status)
	}
	if m.Participant == models.ParticipantContextStuffed && len(m.Parts) == 0 {
		return fmt.Errorf("context message requires parts")
	}
	return nil
}

// ValidateEvent checks an ingested output fragment.
func ValidateEvent(ev models.Event) error {
	if ev.MessageID == "" {
		return fmt.Errorf("event message id missing")
	}
	if ev.EventIndex < 0 {
		return fmt.Errorf("negative event index")
	}
	return nil
}

// ValidateAgent checks an agent configuration payload.
func ValidateAgent(a models.Agent) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("agent name required")
	}
	if !agentTypes[a.AgentType] {
		return fmt.Errorf("unknown agent type %q", a.AgentType)
	}
	switch a.AgentType {
	case models.AgentTypeAgent:
		if len(a.ChildAgents) > 0 {
			return fmt.Errorf("plain agents cannot have child agents")
		}
	case models.AgentTypeLoop:
		if a.MaxLoops <= 0 {
			return fmt.Errorf("loop agent requires max_loops > 0")
		}
		fallthrough
	default:
		if len(a.ChildAgents) == 0 {
			return fmt.Errorf("%s requires child agents", a.AgentType)
		}
		for i, child := range a.ChildAgents {
			if err := ValidateAgent(child); err != nil {
				return fmt.Errorf("child agent %d: %w", i, err)
			}
		}
	}
	return nil
}

// ValidateModel checks a model preset payload.
func ValidateModel(m models.Model) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("model name required")
	}
	if strings.TrimSpace(m.Provider) == "" {
		return fmt.Errorf("model provider required")
	}
	if m.Temperature < 0 || m.Temperature > 2 {
		return fmt.Errorf("temperature out of range")
	}
	return nil
}
