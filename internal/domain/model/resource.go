package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ResourceType names an analysable resource kind. Values mirror the type discriminators stored
// on comments and jobs (e.g. "Poll::Question").
type ResourceType string

const (
	ResourceDebate                    ResourceType = "Debate"
	ResourceProposal                  ResourceType = "Proposal"
	ResourcePoll                      ResourceType = "Poll"
	ResourcePollQuestion              ResourceType = "Poll::Question"
	ResourceLegislationProposal       ResourceType = "Legislation::Proposal"
	ResourceLegislationQuestion       ResourceType = "Legislation::Question"
	ResourceLegislationQuestionOption ResourceType = "Legislation::QuestionOption"
	ResourceBudget                    ResourceType = "Budget"
	ResourceBudgetGroup               ResourceType = "Budget::Group"
	ResourceBudgetInvestment          ResourceType = "Budget::Investment"
	ResourceTopic                     ResourceType = "Topic"
)

// ResourceTypes returns every supported resource type.
func ResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceDebate,
		ResourceProposal,
		ResourcePoll,
		ResourcePollQuestion,
		ResourceLegislationProposal,
		ResourceLegislationQuestion,
		ResourceLegislationQuestionOption,
		ResourceBudget,
		ResourceBudgetGroup,
		ResourceBudgetInvestment,
		ResourceTopic,
	}
}

// Valid returns true if the type is in the supported enumeration.
func (t ResourceType) Valid() bool {
	for _, v := range ResourceTypes() {
		if t == v {
			return true
		}
	}
	return false
}

// RequiresID reports whether the type needs an id. Only the site-wide Proposal aggregate may omit it.
func (t ResourceType) RequiresID() bool {
	return t != ResourceProposal
}

// ResourceRef points at one analysable resource. ID is nil only for the Proposal aggregate.
type ResourceRef struct {
	Type ResourceType
	ID   *int64
}

// NewRef builds a reference to a resource with an id.
func NewRef(t ResourceType, id int64) ResourceRef {
	return ResourceRef{Type: t, ID: &id}
}

// IDValue returns the id or 0 when absent.
func (r ResourceRef) IDValue() int64 {
	if r.ID == nil {
		return 0
	}
	return *r.ID
}

// Aggregate reports whether the reference names the site-wide Proposal aggregate.
func (r ResourceRef) Aggregate() bool {
	return r.Type == ResourceProposal && r.ID == nil
}

// String renders "Type#id", or just "Type" for the aggregate.
func (r ResourceRef) String() string {
	if r.ID == nil {
		return string(r.Type)
	}
	return string(r.Type) + "#" + strconv.FormatInt(*r.ID, 10)
}

// ParseRef parses "Type" or "Type#id" as produced by String.
func ParseRef(s string) (ResourceRef, error) {
	s = strings.TrimSpace(s)
	typ, idStr, hasID := strings.Cut(s, "#")
	ref := ResourceRef{Type: ResourceType(typ)}
	if !hasID {
		return ref, nil
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return ResourceRef{}, fmt.Errorf("parse resource id %q: %w", idStr, err)
	}
	ref.ID = &id
	return ref, nil
}
