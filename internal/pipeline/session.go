// Package pipeline coordinates the document generation flow: sanitize →
// prompt → model → recover → restore, in chat mode and in serial batch
// mode. Errors never escape the orchestrator; they come back as
// phase-"errore" payloads.
package pipeline

import (
	"strings"

	"github.com/studiolegale/fascicolo/internal/extract"
	"github.com/studiolegale/fascicolo/internal/privacy"
	"github.com/studiolegale/fascicolo/internal/repository"
)

// Message is one transcript entry.
type Message struct {
	Role    string `json:"role"` // user | assistant
	Content string `json:"content"`
}

// Session is the explicit per-user working state: the open case, its
// transcript, the privacy shield and the extracted uploads. One session
// per user, exclusively owned; cleared only on case close or switch.
type Session struct {
	Case       *repository.Case
	Transcript []Message
	Sanitizer  *privacy.Sanitizer
	Step       string
	Fragments  []extract.Fragment
	FullText   string
}

// NewSession opens a session on a case and registers the party names with
// the privacy shield.
func NewSession(c *repository.Case) *Session {
	san := privacy.NewSanitizer()
	san.Add(c.ClientName, "CLIENTE")
	san.Add(c.CounterpartyName, "CONTROPARTE")
	return &Session{
		Case:      c,
		Sanitizer: san,
		Step:      "intervista",
	}
}

// AttachUploads stores the extracted evidence on the session.
func (s *Session) AttachUploads(frags []extract.Fragment, fullText string) {
	s.Fragments = frags
	s.FullText = fullText
}

// Append adds a transcript entry in arrival order.
func (s *Session) Append(role, content string) {
	s.Transcript = append(s.Transcript, Message{Role: role, Content: content})
}

// contextText renders the transcript for prompt building.
func (s *Session) contextText() string {
	var b strings.Builder
	for _, m := range s.Transcript {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// sanitizedFragments returns the uploaded texts, headers included, after
// the privacy shield.
func (s *Session) sanitizedFragments() []string {
	out := make([]string, 0, len(s.Fragments))
	for _, f := range s.Fragments {
		out = append(out, f.Header()+"\n"+s.Sanitizer.Sanitize(f.Text))
	}
	return out
}
