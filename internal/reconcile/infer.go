package reconcile

import (
	"strings"

	"github.com/kjarisk/athena/internal/model"
)

// InferenceInput is what the rules see of one fetched event.
type InferenceInput struct {
	Title          string
	AttendeeEmails []string
}

// Candidate is a work area together with its linked employees' emails.
type Candidate struct {
	Area   model.WorkArea
	Emails []string
}

// Rule picks a work area for an event, or returns nil.
type Rule interface {
	Name() string
	Match(in InferenceInput, candidates []Candidate) *model.WorkArea
}

// ParticipantRule matches when an attendee address contains the address of
// an employee linked to the area, ignoring case.
type ParticipantRule struct{}

func (ParticipantRule) Name() string { return "participant" }

func (ParticipantRule) Match(in InferenceInput, candidates []Candidate) *model.WorkArea {
	if len(in.AttendeeEmails) == 0 {
		return nil
	}
	attendees := make([]string, 0, len(in.AttendeeEmails))
	for _, a := range in.AttendeeEmails {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
			attendees = append(attendees, a)
		}
	}

	for i := range candidates {
		for _, email := range candidates[i].Emails {
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" {
				continue
			}
			for _, a := range attendees {
				if strings.Contains(a, email) {
					return &candidates[i].Area
				}
			}
		}
	}
	return nil
}

// TitleRule matches when a word of the area name longer than three
// characters occurs in the lower-cased event title.
type TitleRule struct{}

// minTitleWordLen excludes short filler words like "the" or "and".
const minTitleWordLen = 4

func (TitleRule) Name() string { return "title" }

func (TitleRule) Match(in InferenceInput, candidates []Candidate) *model.WorkArea {
	title := strings.ToLower(in.Title)
	if title == "" {
		return nil
	}
	for i := range candidates {
		for _, word := range strings.Fields(strings.ToLower(candidates[i].Area.Name)) {
			if len([]rune(word)) >= minTitleWordLen && strings.Contains(title, word) {
				return &candidates[i].Area
			}
		}
	}
	return nil
}

// Chain runs rules in order and returns the first match.
type Chain []Rule

// DefaultChain prefers people over wording.
func DefaultChain() Chain {
	return Chain{ParticipantRule{}, TitleRule{}}
}

// Infer returns the chosen area and the name of the rule that chose it.
// Hidden areas never match. A nil area means the event stays untagged.
func (c Chain) Infer(in InferenceInput, candidates []Candidate) (*model.WorkArea, string) {
	visible := make([]Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if !cand.Area.Hidden {
			visible = append(visible, cand)
		}
	}
	if len(visible) == 0 {
		return nil, ""
	}

	for _, rule := range c {
		if area := rule.Match(in, visible); area != nil {
			return area, rule.Name()
		}
	}
	return nil, ""
}
