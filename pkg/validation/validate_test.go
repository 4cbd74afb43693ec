package validation

import (
	"testing"

	"github.com/rawkintrevo/agent-lab-ui/pkg/models"
)

func TestValidateParticipant(t *testing.T) {
	valid := []string{"user:u1", "agent:a1", "model:m1", "context_stuffed"}
	for _, p := range valid {
		if err := ValidateParticipant(p); err != nil {
			t.Fatalf("%s: %v", p, err)
		}
	}
	invalid := []string{"", "user:", "bot:x", "user", "agent"}
	for _, p := range invalid {
		if err := ValidateParticipant(p); err == nil {
			t.Fatalf("%q should be rejected", p)
		}
	}
}

func TestValidateMessage(t *testing.T) {
	if err := ValidateMessage(models.Message{Participant: "user:u1"}); err != nil {
		t.Fatal(err)
	}
	if err := ValidateMessage(models.Message{Participant: "agent:a1", Status: "exploded"}); err == nil {
		t.Fatal("bad status accepted")
	}
	if err := ValidateMessage(models.Message{Participant: models.ParticipantContextStuffed}); err == nil {
		t.Fatal("context message without parts accepted")
	}
}

func TestValidateAgent(t *testing.T) {
	plain := models.Agent{Name: "helper", AgentType: models.AgentTypeAgent}
	if err := ValidateAgent(plain); err != nil {
		t.Fatal(err)
	}
	child := models.Agent{Name: "step", AgentType: models.AgentTypeAgent}
	seq := models.Agent{Name: "pipeline", AgentType: models.AgentTypeSequential, ChildAgents: []models.Agent{child}}
	if err := ValidateAgent(seq); err != nil {
		t.Fatal(err)
	}
	loop := models.Agent{Name: "looper", AgentType: models.AgentTypeLoop, ChildAgents: []models.Agent{child}}
	if err := ValidateAgent(loop); err == nil {
		t.Fatal("loop without max_loops accepted")
	}
	loop.MaxLoops = 3
	if err := ValidateAgent(loop); err != nil {
		t.Fatal(err)
	}
	if err := ValidateAgent(models.Agent{Name: "x", AgentType: "Swarm"}); err == nil {
		t.Fatal("unknown agent type accepted")
	}
}

func TestValidateModel(t *testing.T) {
	if err := ValidateModel(models.Model{Name: "fast", Provider: "openai"}); err != nil {
		t.Fatal(err)
	}
	if err := ValidateModel(models.Model{Provider: "openai"}); err == nil {
		t.Fatal("missing name accepted")
	}
	if err := ValidateModel(models.Model{Name: "x", Provider: "openai", Temperature: 3}); err == nil {
		t.Fatal("out-of-range temperature accepted")
	}
}
