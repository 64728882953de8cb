package jira

import (
	"fmt"
	"strings"
	"time"
)

// IssueSummary is the search-result shape of an issue.
//
// ID is the remote primary key. Jira sends it as a JSON string most of the
// time, so it is parsed leniently and is 0 when it cannot be read. Key is the
// natural unique key used for storage. Updated is nil when the search result
// did not carry a readable "updated" field.
type IssueSummary struct {
	ID      int64
	Key     string
	Updated *time.Time
}

// IssueDetail is the full-record shape of an issue.
//
// Summary and Description use the empty string for "absent". Assignee and
// ResolutionDate are nil when absent.
type IssueDetail struct {
	ID             int64       `json:"id" yaml:"id"`
	Key            string      `json:"key" yaml:"key"`
	Summary        string      `json:"summary" yaml:"summary"`
	Description    string      `json:"description" yaml:"description"`
	IssueType      IssueType   `json:"issue_type" yaml:"issue_type"`
	Components     []Component `json:"components" yaml:"components"`
	Status         Status      `json:"status" yaml:"status"`
	ResolutionDate *time.Time  `json:"resolution_date,omitempty" yaml:"resolution_date,omitempty"`
	Created        time.Time   `json:"created" yaml:"created"`
	Updated        time.Time   `json:"updated" yaml:"updated"`
	Assignee       *Person     `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Points         float64     `json:"points" yaml:"points"`
}

// Person is a Jira user. A Person only exists when Key is non-empty.
type Person struct {
	Key   string `json:"key" yaml:"key"`
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name" yaml:"name"`
}

// IssueType is an open enumeration: the named constants are the known
// variants, any other value is kept verbatim.
type IssueType string

const (
	IssueTypeStory   IssueType = "Story"
	IssueTypeEpic    IssueType = "Epic"
	IssueTypeBug     IssueType = "Bug"
	IssueTypeTask    IssueType = "Task"
	IssueTypeSubTask IssueType = "Sub-task"
)

var knownIssueTypes = []IssueType{IssueTypeStory, IssueTypeEpic, IssueTypeBug, IssueTypeTask, IssueTypeSubTask}

// ParseIssueType never fails.
func ParseIssueType(s string) IssueType {
	return lookup(knownIssueTypes, s)
}

// Known reports whether t is one of the named variants.
func (t IssueType) Known() bool { return isKnown(knownIssueTypes, t) }

// Status is an open enumeration of workflow states.
type Status string

const (
	StatusBacklog      Status = "Backlog"
	StatusReadyForWork Status = "Ready for Work"
	StatusActive       Status = "Active"
	StatusDone         Status = "Done"
	StatusDeleted      Status = "Deleted"
)

var knownStatuses = []Status{StatusBacklog, StatusReadyForWork, StatusActive, StatusDone, StatusDeleted}

// ParseStatus never fails.
func ParseStatus(s string) Status {
	return lookup(knownStatuses, s)
}

func (s Status) Known() bool { return isKnown(knownStatuses, s) }

// Component is an open enumeration of project components.
type Component string

const (
	ComponentMojo      Component = "Mojo"
	ComponentPhoenix   Component = "Phoenix"
	ComponentWolverine Component = "Wolverine"
	ComponentIronman   Component = "Ironman"
	ComponentProduct   Component = "Product"
	ComponentDesign    Component = "Design"
)

var knownComponents = []Component{ComponentMojo, ComponentPhoenix, ComponentWolverine, ComponentIronman, ComponentProduct, ComponentDesign}

// ParseComponent never fails.
func ParseComponent(s string) Component {
	return lookup(knownComponents, s)
}

func (c Component) Known() bool { return isKnown(knownComponents, c) }

// lookup returns the canonical known variant matching raw case-insensitively,
// or raw itself unchanged.
func lookup[T ~string](known []T, raw string) T {
	for _, k := range known {
		if strings.EqualFold(string(k), raw) {
			return k
		}
	}
	return T(raw)
}

func isKnown[T ~string](known []T, v T) bool {
	for _, k := range known {
		if k == v {
			return true
		}
	}
	return false
}

// PageResult is one page of search results.
//
// Rejected holds records that were present in the page but could not be
// mapped. They count toward Len so pagination advances past them.
type PageResult struct {
	Offset     int
	MaxResults int
	Total      int
	Records    []IssueSummary
	Rejected   []RecordError
	Err        error
}

// Len is the number of records the server returned in this page.
func (p PageResult) Len() int {
	return len(p.Records) + len(p.Rejected)
}

// RecordError describes one record of a batch that could not be mapped.
type RecordError struct {
	Index int
	Key   string
	Err   error
}

func (e RecordError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("record %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("record #%d: %v", e.Index, e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }
