package hira

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthMode(t *testing.T) {
	for in, want := range map[string]AuthMode{
		"url": KeyInURL, "URL": KeyInURL, "encoded": KeyInURL, "": KeyInURL,
		"query": KeyInQuery, "decoded": KeyInQuery,
	} {
		got, err := ParseAuthMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAuthMode("header")
	assert.Error(t, err)
}

func TestURLKeyInURLKeepsKeyVerbatim(t *testing.T) {
	req := NewListRequest("http://apis.example/list", KeyInURL, map[string]string{FilterSido: "110000"}, 100)

	raw, err := req.URL("abc%2Bdef%3D%3D")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, "http://apis.example/list?ServiceKey=abc%2Bdef%3D%3D&"), raw)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "abc+def==", q.Get(ParamServiceKey))
	assert.Equal(t, "1", q.Get(ParamPageNo))
	assert.Equal(t, "100", q.Get(ParamNumOfRows))
	assert.Equal(t, "json", q.Get(ParamType))
	assert.Equal(t, "110000", q.Get(FilterSido))
}

func TestURLKeyInQueryEncodesKey(t *testing.T) {
	req := NewListRequest("http://apis.example/list", KeyInQuery, nil, 10)

	raw, err := req.URL("abc+def==")
	require.NoError(t, err)

	assert.Contains(t, raw, "ServiceKey=abc%2Bdef%3D%3D")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "abc+def==", u.Query().Get(ParamServiceKey))
}

func TestURLOmitsUnsetValues(t *testing.T) {
	req := NewDetailRequest("http://apis.example/detail", KeyInQuery, "YK1")
	raw, err := req.URL("k")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "YK1", q.Get(FilterYkiho))
	assert.False(t, q.Has(ParamPageNo))
	assert.False(t, q.Has(ParamNumOfRows))

	list := NewListRequest("http://apis.example/list", KeyInQuery, map[string]string{FilterName: "", FilterClass: "31"}, 10)
	raw, err = list.URL("k")
	require.NoError(t, err)
	u, _ = url.Parse(raw)
	assert.False(t, u.Query().Has(FilterName))
	assert.Equal(t, "31", u.Query().Get(FilterClass))
}

func TestURLPreservesExistingQuery(t *testing.T) {
	req := NewListRequest("http://apis.example/list?version=2", KeyInURL, nil, 10)
	raw, err := req.URL("k")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "http://apis.example/list?version=2&ServiceKey=k&"), raw)
}

func TestURLRejectsBadInput(t *testing.T) {
	_, err := NewListRequest("not a url", KeyInURL, nil, 10).URL("k")
	assert.Error(t, err)

	req := NewListRequest("http://apis.example/list", AuthMode("header"), nil, 10)
	_, err = req.URL("k")
	assert.Error(t, err)
}

func TestWithPageCopies(t *testing.T) {
	base := NewListRequest("http://apis.example/list", KeyInURL, map[string]string{FilterSido: "110000"}, 10)
	next := base.WithPage(3)
	next.Filters[FilterSido] = "260000"

	assert.Equal(t, 1, base.PageNo)
	assert.Equal(t, 3, next.PageNo)
	assert.Equal(t, "110000", base.Filters[FilterSido])
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "http://x/list?ServiceKey=***&pageNo=1", RedactURL("http://x/list?ServiceKey=secret&pageNo=1"))
	assert.Equal(t, "http://x/list?a=1&ServiceKey=***", RedactURL("http://x/list?a=1&ServiceKey=secret"))
	assert.Equal(t, "http://x/list?a=1", RedactURL("http://x/list?a=1"))
}
