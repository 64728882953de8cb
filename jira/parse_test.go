package jira

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullIssue = `{
  "id": "10001",
  "key": "PROJ-1",
  "fields": {
    "summary": "Checkout flow",
    "description": "Rework the checkout flow",
    "issuetype": {"name": "Epic"},
    "status": {"name": "Done"},
    "components": [{"name": "Phoenix"}, {"name": "Platform"}],
    "created": "2019-08-01T09:30:00.000-0500",
    "updated": "2019-09-03T16:45:12.345-0500",
    "resolutiondate": "2019-09-03T16:45:12.000-0500",
    "assignee": {"key": "jdoe", "emailAddress": "jdoe@example.com", "displayName": "Jane Doe"},
    "customfield_10002": 5
  }
}`

func TestParseDetail(t *testing.T) {
	d, err := ParseDetail([]byte(fullIssue))
	require.NoError(t, err)

	assert.Equal(t, int64(10001), d.ID)
	assert.Equal(t, "PROJ-1", d.Key)
	assert.Equal(t, "Checkout flow", d.Summary)
	assert.Equal(t, IssueTypeEpic, d.IssueType)
	assert.Equal(t, StatusDone, d.Status)
	assert.Equal(t, []Component{ComponentPhoenix, Component("Platform")}, d.Components)
	assert.Equal(t, 5.0, d.Points)

	require.NotNil(t, d.Assignee)
	assert.Equal(t, Person{Key: "jdoe", Email: "jdoe@example.com", Name: "Jane Doe"}, *d.Assignee)

	require.NotNil(t, d.ResolutionDate)
	wantUpdated := time.Date(2019, 9, 3, 21, 45, 12, 345000000, time.UTC)
	assert.True(t, d.Updated.Equal(wantUpdated), "updated = %v", d.Updated)
}

func TestParseDetail_UnknownStatusIsPreserved(t *testing.T) {
	raw := `{"key":"PROJ-2","fields":{"status":{"name":"Triaged"},"issuetype":{"name":"Spike"},
		"created":"2019-08-01T09:30:00.000-0500","updated":"2019-08-01T09:30:00.000-0500"}}`

	d, err := ParseDetail([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, Status("Triaged"), d.Status)
	assert.False(t, d.Status.Known())
	assert.Equal(t, IssueType("Spike"), d.IssueType)
	assert.False(t, d.IssueType.Known())
}

func TestParseDetail_AbsentAndMistypedFields(t *testing.T) {
	raw := `{"id":17,"key":"PROJ-3","fields":{
		"summary":null,"description":{"type":"doc"},"assignee":null,
		"status":{"name":42},"components":"oops","customfield_10002":"n/a",
		"resolutiondate":null,
		"created":"2019-08-01T09:30:00.000-0500","updated":"2019-08-01T09:30:00.000-0500"}}`

	d, err := ParseDetail([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, int64(17), d.ID)
	assert.Empty(t, d.Summary)
	assert.Empty(t, d.Description)
	assert.Nil(t, d.Assignee)
	assert.Equal(t, Status(""), d.Status)
	assert.Empty(t, d.Components)
	assert.Zero(t, d.Points)
	assert.Nil(t, d.ResolutionDate)
}

func TestParseDetail_AssigneeWithoutKeyIsAbsent(t *testing.T) {
	raw := `{"key":"PROJ-4","fields":{"assignee":{"key":"","displayName":"Ghost"},
		"created":"2019-08-01T09:30:00.000-0500","updated":"2019-08-01T09:30:00.000-0500"}}`

	d, err := ParseDetail([]byte(raw))
	require.NoError(t, err)
	assert.Nil(t, d.Assignee)
}

func TestParseDetail_MalformedRequiredTimestamp(t *testing.T) {
	raw := `{"key":"PROJ-5","fields":{"summary":"still mapped","created":"yesterday",
		"updated":"2019-08-01T09:30:00.000-0500"}}`

	d, err := ParseDetail([]byte(raw))
	require.Error(t, err)
	var rerr RecordError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "PROJ-5", rerr.Key)
	assert.Contains(t, err.Error(), "created")
	assert.Equal(t, "still mapped", d.Summary)
}

func TestParseDetail_InvalidJSON(t *testing.T) {
	_, err := ParseDetail([]byte(`{"key":`))
	var derr *DecodeError
	assert.True(t, errors.As(err, &derr))
}

func TestParseSummary(t *testing.T) {
	s := ParseSummary([]byte(`{"id":"10042","key":"PROJ-42"}`))
	assert.Equal(t, IssueSummary{ID: 10042, Key: "PROJ-42"}, s)

	s = ParseSummary([]byte(`{"id":"not-a-number","key":7}`))
	assert.Equal(t, IssueSummary{}, s)
}

func TestParseSearchPage(t *testing.T) {
	raw := `{"startAt":100,"maxResults":50,"total":"120","issues":[
		{"id":"1","key":"PROJ-1"},{"id":"2"},{"id":"3","key":"PROJ-3"}]}`

	page := ParseSearchPage([]byte(raw), 100)
	require.NoError(t, page.Err)
	assert.Equal(t, 100, page.Offset)
	assert.Equal(t, 50, page.MaxResults)
	assert.Equal(t, 120, page.Total)
	assert.Len(t, page.Records, 2)
	require.Len(t, page.Rejected, 1)
	assert.Equal(t, 101, page.Rejected[0].Index)
	assert.Equal(t, 3, page.Len())
}

func TestParseSearchPage_MissingStartAtUsesRequestedOffset(t *testing.T) {
	page := ParseSearchPage([]byte(`{"total":10,"issues":[]}`), 40)
	require.NoError(t, page.Err)
	assert.Equal(t, 40, page.Offset)
}

func TestParseSearchPage_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated", `{"total":3,"issues":[`},
		{"not an object", `[1,2,3]`},
		{"error envelope", `{"errorMessages":["The value 'NOPE' does not exist for the field 'project'."]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := ParseSearchPage([]byte(tt.raw), 0)
			var derr *DecodeError
			assert.True(t, errors.As(page.Err, &derr), "got %v", page.Err)
		})
	}
}

func TestOpenEnumsAreTotal(t *testing.T) {
	inputs := []string{"", " ", "Done", "done", "DONE", "Triaged", "Ready for Work", "Épica", "Sub-task", "\x00"}
	for _, s := range inputs {
		st := ParseStatus(s)
		if st.Known() {
			assert.Truef(t, strings.EqualFold(string(st), s), "ParseStatus(%q) = %q", s, st)
		} else {
			assert.Equal(t, Status(s), st)
		}

		it := ParseIssueType(s)
		if !it.Known() {
			assert.Equal(t, IssueType(s), it)
		}

		c := ParseComponent(s)
		if !c.Known() {
			assert.Equal(t, Component(s), c)
		}
	}
	assert.Equal(t, StatusReadyForWork, ParseStatus("ready for work"))
	assert.Equal(t, IssueTypeSubTask, ParseIssueType("Sub-task"))
}
