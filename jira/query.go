package jira

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// jqlTimeLayout is the minute-precision date format JQL accepts.
const jqlTimeLayout = "2006-01-02 15:04"

// ChangedSinceJQL returns the filter selecting issues of project updated on
// or after since. since is converted to UTC before it is truncated to the
// minute, so the same instant always yields the same JQL.
func ChangedSinceJQL(project string, since time.Time) (string, error) {
	if strings.TrimSpace(project) == "" {
		return "", errors.New("jira: empty project")
	}
	return fmt.Sprintf("project=%s AND updatedDate >= %q", project, since.UTC().Format(jqlTimeLayout)), nil
}

// BuildChangedSinceQuery returns ChangedSinceJQL percent-encoded for use as a
// query string value.
func BuildChangedSinceQuery(project string, since time.Time) (string, error) {
	jql, err := ChangedSinceJQL(project, since)
	if err != nil {
		return "", err
	}
	return escape(jql), nil
}

// escape percent-encodes s, spaces included.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
