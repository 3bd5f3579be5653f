package hira

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// AuthMode selects how the service key is placed in the request URL
type AuthMode string

const (
	// KeyInURL concatenates the key, already percent-encoded as issued by
	// data.go.kr, onto the URL without re-encoding it
	KeyInURL AuthMode = "url"
	// KeyInQuery adds the decoded key as an ordinary query parameter
	KeyInQuery AuthMode = "query"
)

// ParseAuthMode maps a configuration string to an AuthMode
func ParseAuthMode(s string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "url", "encoded", "":
		return KeyInURL, nil
	case "query", "decoded":
		return KeyInQuery, nil
	default:
		return "", fmt.Errorf("unknown auth mode: %s", s)
	}
}

// Query parameter names understood by the hospital APIs
const (
	ParamServiceKey = "ServiceKey"
	ParamPageNo     = "pageNo"
	ParamNumOfRows  = "numOfRows"
	ParamType       = "_type"

	FilterSido   = "sidoCd"
	FilterSggu   = "sgguCd"
	FilterEmdong = "emdongNm"
	FilterName   = "yadmNm"
	FilterClass  = "clCd"
	FilterDept   = "dgsbjtCd"
	FilterYkiho  = "ykiho"
)

// FetchRequest describes one API call. It is a value; With* methods return copies.
type FetchRequest struct {
	BaseURL  string
	AuthMode AuthMode
	// Filters holds optional parameters; empty values are omitted
	Filters map[string]string
	// PageNo and NumOfRows are omitted when zero
	PageNo    int
	NumOfRows int
}

// NewListRequest returns a paginated request for the list endpoint
func NewListRequest(baseURL string, mode AuthMode, filters map[string]string, pageSize int) FetchRequest {
	return FetchRequest{
		BaseURL:   baseURL,
		AuthMode:  mode,
		Filters:   copyFilters(filters),
		PageNo:    1,
		NumOfRows: pageSize,
	}
}

// NewDetailRequest returns an unpaginated request for one institution
func NewDetailRequest(baseURL string, mode AuthMode, ykiho string) FetchRequest {
	return FetchRequest{
		BaseURL:  baseURL,
		AuthMode: mode,
		Filters:  map[string]string{FilterYkiho: ykiho},
	}
}

// WithPage returns a copy targeting another page
func (r FetchRequest) WithPage(page int) FetchRequest {
	r.PageNo = page
	r.Filters = copyFilters(r.Filters)
	return r
}

func copyFilters(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// params returns the encoded query without the service key
func (r FetchRequest) params() url.Values {
	params := url.Values{}
	if r.PageNo > 0 {
		params.Set(ParamPageNo, strconv.Itoa(r.PageNo))
	}
	if r.NumOfRows > 0 {
		params.Set(ParamNumOfRows, strconv.Itoa(r.NumOfRows))
	}
	params.Set(ParamType, "json")
	for k, v := range r.Filters {
		if v != "" {
			params.Set(k, v)
		}
	}
	return params
}

// URL renders the full request URL with the key placed per AuthMode
func (r FetchRequest) URL(serviceKey string) (string, error) {
	base, err := url.Parse(r.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid base URL: %q", r.BaseURL)
	}

	params := r.params()
	prefix := r.BaseURL
	sep := "?"
	if base.RawQuery != "" {
		sep = "&"
	}

	switch r.AuthMode {
	case KeyInQuery:
		params.Set(ParamServiceKey, serviceKey)
		return prefix + sep + params.Encode(), nil
	case KeyInURL, "":
		return prefix + sep + ParamServiceKey + "=" + serviceKey + "&" + params.Encode(), nil
	default:
		return "", fmt.Errorf("unknown auth mode: %s", r.AuthMode)
	}
}

// RedactURL hides the service key in a request URL for logging
func RedactURL(raw string) string {
	idx := strings.Index(raw, ParamServiceKey+"=")
	if idx < 0 {
		return raw
	}
	start := idx + len(ParamServiceKey) + 1
	end := strings.IndexByte(raw[start:], '&')
	if end < 0 {
		return raw[:start] + "***"
	}
	return raw[:start] + "***" + raw[start+end:]
}
