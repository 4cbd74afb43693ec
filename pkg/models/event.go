package models

import "encoding/json"

// Event is one immutable, append-only fragment of an assistant message's
// generated output, keyed by (message id, event index). Concatenating a
// message's events by ascending EventIndex reconstitutes its full text.
type Event struct {
	ID         string       `json:"id,omitempty"`
	MessageID  string       `json:"message_id,omitempty"`
	EventIndex int64        `json:"event_index"`
	Content    EventContent `json:"content"`
	TS         int64        `json:"ts,omitempty"`
}

// EventContent is either a raw string or a structured object carrying a
// parts sequence. Generation backends have produced both shapes over time,
// so both decode.
type EventContent struct {
	Text  string
	Parts []Part
}

func (c *EventContent) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &c.Text)
	}
	var obj struct {
		Parts []Part `json:"parts"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	c.Parts = obj.Parts
	return nil
}

func (c EventContent) MarshalJSON() ([]byte, error) {
	if c.Parts == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(struct {
		Parts []Part `json:"parts"`
	}{Parts: c.Parts})
}

// TextFragments returns every text fragment of the content in encounter
// order. Non-text fragments are silently skipped.
func (c EventContent) TextFragments() []string {
	if c.Parts == nil {
		if c.Text == "" {
			return nil
		}
		return []string{c.Text}
	}
	var out []string
	for _, p := range c.Parts {
		if p.Text != "" {
			out = append(out, p.Text)
		}
	}
	return out
}
