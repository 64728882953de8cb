package jira

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangedSinceJQL(t *testing.T) {
	since := time.Date(2019, 9, 1, 0, 0, 59, 999, time.UTC)

	jql, err := ChangedSinceJQL("RCTFD", since)
	require.NoError(t, err)
	assert.Equal(t, `project=RCTFD AND updatedDate >= "2019-09-01 00:00"`, jql)
}

func TestChangedSinceJQL_NormalizesZone(t *testing.T) {
	utc := time.Date(2019, 9, 1, 5, 0, 0, 0, time.UTC)
	cdt := utc.In(time.FixedZone("CDT", -5*3600))
	ist := utc.In(time.FixedZone("IST", 5*3600+1800))

	want, err := BuildChangedSinceQuery("PROJ", utc)
	require.NoError(t, err)
	for _, since := range []time.Time{cdt, ist} {
		got, err := BuildChangedSinceQuery("PROJ", since)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestBuildChangedSinceQuery_Encoding(t *testing.T) {
	q, err := BuildChangedSinceQuery("PROJ", time.Unix(0, 0))
	require.NoError(t, err)

	assert.Equal(t, "project%3DPROJ%20AND%20updatedDate%20%3E%3D%20%221970-01-01%2000%3A00%22", q)
	assert.False(t, strings.ContainsAny(q, ` "=+`))

	decoded, err := url.QueryUnescape(q)
	require.NoError(t, err)
	assert.Equal(t, `project=PROJ AND updatedDate >= "1970-01-01 00:00"`, decoded)
}

func TestBuildChangedSinceQuery_EmptyProject(t *testing.T) {
	_, err := BuildChangedSinceQuery("  ", time.Now())
	assert.Error(t, err)
}
