package jira

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// TimeLayout is the timestamp format of the Jira REST API v2.
const TimeLayout = "2006-01-02T15:04:05.000-0700"

const DefaultPointsField = "customfield_10002"

var (
	errInvalidJSON = errors.New("invalid JSON")
	errMissingKey  = errors.New("missing issue key")
)

// Mapper converts raw issue JSON into domain values. Field anomalies (absent
// fields, wrong JSON types, unknown enum values) are absorbed, never returned.
type Mapper struct {
	// PointsField is the custom field holding the estimate.
	PointsField string
}

var defaultMapper = Mapper{PointsField: DefaultPointsField}

// ParseSummary maps one search result. It never fails on valid JSON.
func ParseSummary(raw []byte) IssueSummary {
	return summaryFrom(gjson.ParseBytes(raw))
}

// ParseDetail maps a full issue document using the default points field.
func ParseDetail(raw []byte) (IssueDetail, error) {
	return defaultMapper.ParseDetail(raw)
}

// ParseSearchPage maps a search response. offset is the startAt that was
// requested and is used when the response does not echo it.
func ParseSearchPage(raw []byte, offset int) PageResult {
	return defaultMapper.ParseSearchPage(raw, offset)
}

func (m Mapper) ParseSearchPage(raw []byte, offset int) PageResult {
	page := PageResult{Offset: offset}
	if !gjson.ValidBytes(raw) {
		page.Err = &DecodeError{Err: errInvalidJSON}
		return page
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		page.Err = &DecodeError{Err: fmt.Errorf("expected object, got %s", doc.Type)}
		return page
	}
	if msgs := doc.Get("errorMessages"); msgs.IsArray() && len(msgs.Array()) > 0 {
		page.Err = &DecodeError{Err: fmt.Errorf("server error: %s", joinStrings(msgs))}
		return page
	}

	if v := doc.Get("startAt"); v.Exists() {
		page.Offset = intOrZero(v)
	}
	page.MaxResults = intOrZero(doc.Get("maxResults"))
	page.Total = intOrZero(doc.Get("total"))

	for i, issue := range arrayOf(doc.Get("issues")) {
		s := summaryFrom(issue)
		if s.Key == "" {
			page.Rejected = append(page.Rejected, RecordError{Index: page.Offset + i, Err: errMissingKey})
			continue
		}
		page.Records = append(page.Records, s)
	}
	return page
}

func summaryFrom(r gjson.Result) IssueSummary {
	s := IssueSummary{
		ID:  int64OrZero(r.Get("id")),
		Key: str(r.Get("key")),
	}
	if t, err := parseTime(r.Get("fields.updated")); err == nil {
		s.Updated = &t
	}
	return s
}

// ParseDetail maps a full issue document. The returned error reports invalid
// JSON or an unreadable created/updated timestamp; in the latter case the
// detail is still filled with everything that could be read.
func (m Mapper) ParseDetail(raw []byte) (IssueDetail, error) {
	if !gjson.ValidBytes(raw) {
		return IssueDetail{}, &DecodeError{Err: errInvalidJSON}
	}
	doc := gjson.ParseBytes(raw)
	f := doc.Get("fields")

	d := IssueDetail{
		ID:          int64OrZero(doc.Get("id")),
		Key:         str(doc.Get("key")),
		Summary:     str(f.Get("summary")),
		Description: str(f.Get("description")),
		IssueType:   ParseIssueType(str(f.Get("issuetype.name"))),
		Status:      ParseStatus(str(f.Get("status.name"))),
		Assignee:    personFrom(f.Get("assignee")),
	}
	for _, c := range arrayOf(f.Get("components")) {
		d.Components = append(d.Components, ParseComponent(str(c.Get("name"))))
	}
	if m.PointsField != "" {
		d.Points = floatOrZero(f.Get(gjson.Escape(m.PointsField)))
	}
	if t, err := parseTime(f.Get("resolutiondate")); err == nil {
		d.ResolutionDate = &t
	}

	var errs []error
	var err error
	if d.Created, err = parseTime(f.Get("created")); err != nil {
		errs = append(errs, fmt.Errorf("created: %w", err))
	}
	if d.Updated, err = parseTime(f.Get("updated")); err != nil {
		errs = append(errs, fmt.Errorf("updated: %w", err))
	}
	if len(errs) > 0 {
		return d, RecordError{Key: d.Key, Err: errors.Join(errs...)}
	}
	return d, nil
}

func personFrom(r gjson.Result) *Person {
	key := str(r.Get("key"))
	if key == "" {
		return nil
	}
	name := str(r.Get("displayName"))
	if name == "" {
		name = str(r.Get("name"))
	}
	return &Person{
		Key:   key,
		Email: str(r.Get("emailAddress")),
		Name:  name,
	}
}

// str returns the value of a JSON string, or "" for anything else.
func str(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return r.Str
}

func floatOrZero(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return r.Num
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func int64OrZero(r gjson.Result) int64 {
	switch r.Type {
	case gjson.Number:
		return r.Int()
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(r.Str), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

func intOrZero(r gjson.Result) int {
	n := int64OrZero(r)
	if n < 0 {
		return 0
	}
	return int(n)
}

func parseTime(r gjson.Result) (time.Time, error) {
	if r.Type != gjson.String {
		return time.Time{}, errors.New("missing timestamp")
	}
	return time.Parse(TimeLayout, r.Str)
}

// arrayOf returns the elements of a JSON array, or nil for anything else.
func arrayOf(r gjson.Result) []gjson.Result {
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}

func joinStrings(r gjson.Result) string {
	var parts []string
	for _, v := range r.Array() {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "; ")
}
