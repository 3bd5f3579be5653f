package hira

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strconv"
	"strings"

	errs "hirafetch/pkg/errors"
	"hirafetch/pkg/models"
)

// ResultCodeOK is the envelope result code for a successful call
const ResultCodeOK = "00"

// Page is one decoded API response
type Page struct {
	Items      []models.Record
	TotalCount int
	PageNo     int
	NumOfRows  int
	ResultCode string
	ResultMsg  string
}

type envelope struct {
	Response *struct {
		Header *struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body *struct {
			Items      json.RawMessage `json:"items"`
			NumOfRows  flexInt         `json:"numOfRows"`
			PageNo     flexInt         `json:"pageNo"`
			TotalCount flexInt         `json:"totalCount"`
		} `json:"body"`
	} `json:"response"`
}

// flexInt accepts a JSON number, a numeric string, an empty string or null
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(s)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// gatewayError is the XML document data.go.kr returns for key and quota failures
type gatewayError struct {
	XMLName xml.Name `xml:"OpenAPI_ServiceResponse"`
	Header  struct {
		ErrMsg           string `xml:"errMsg"`
		ReturnAuthMsg    string `xml:"returnAuthMsg"`
		ReturnReasonCode string `xml:"returnReasonCode"`
	} `xml:"cmmMsgHeader"`
}

func decodeUseNumber(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// parseEnvelope decodes a response body into a Page, classifying failures
func parseEnvelope(body []byte, status int) (*Page, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return nil, parseGatewayError(trimmed, status)
	}

	var env envelope
	if err := decodeUseNumber(trimmed, &env); err != nil {
		return nil, errs.New(errs.KindMalformedResponse, status, "failed to parse JSON: %v (body: %s)", err, preview(trimmed))
	}
	if env.Response == nil || env.Response.Header == nil {
		return nil, errs.New(errs.KindMalformedResponse, status, "response.header missing (body: %s)", preview(trimmed))
	}

	header := env.Response.Header
	if header.ResultCode != ResultCodeOK {
		e := errs.New(errs.KindAPI, status, "%s", header.ResultMsg)
		e.ResultCode = header.ResultCode
		return nil, e
	}

	if env.Response.Body == nil {
		return nil, errs.New(errs.KindMalformedResponse, status, "response.body missing (body: %s)", preview(trimmed))
	}

	items, err := normalizeItems(env.Response.Body.Items)
	if err != nil {
		return nil, errs.New(errs.KindMalformedResponse, status, "unexpected items shape: %v", err)
	}

	return &Page{
		Items:      items,
		TotalCount: int(env.Response.Body.TotalCount),
		PageNo:     int(env.Response.Body.PageNo),
		NumOfRows:  int(env.Response.Body.NumOfRows),
		ResultCode: header.ResultCode,
		ResultMsg:  header.ResultMsg,
	}, nil
}

// normalizeItems flattens the items field to a list. The API sends "" or null
// for no results, {"item": {...}} for one and {"item": [...]} for several.
func normalizeItems(raw json.RawMessage) ([]models.Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []models.Record{}, nil
	}

	switch raw[0] {
	case '"':
		return []models.Record{}, nil
	case '[':
		var list []models.Record
		if err := decodeUseNumber(raw, &list); err != nil {
			return nil, err
		}
		return nonNil(list), nil
	case '{':
		var wrapper struct {
			Item json.RawMessage `json:"item"`
		}
		if err := decodeUseNumber(raw, &wrapper); err != nil {
			return nil, err
		}
		item := bytes.TrimSpace(wrapper.Item)
		if len(item) == 0 || bytes.Equal(item, []byte("null")) || item[0] == '"' {
			return []models.Record{}, nil
		}
		if item[0] == '[' {
			var list []models.Record
			if err := decodeUseNumber(item, &list); err != nil {
				return nil, err
			}
			return nonNil(list), nil
		}
		var single models.Record
		if err := decodeUseNumber(item, &single); err != nil {
			return nil, err
		}
		return []models.Record{single}, nil
	default:
		return nil, errs.New(errs.KindMalformedResponse, 0, "items is neither object nor list")
	}
}

func nonNil(list []models.Record) []models.Record {
	if list == nil {
		return []models.Record{}
	}
	out := list[:0]
	for _, r := range list {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func parseGatewayError(body []byte, status int) error {
	var ge gatewayError
	if err := xml.Unmarshal(body, &ge); err != nil || ge.Header.ReturnReasonCode == "" {
		return errs.New(errs.KindMalformedResponse, status, "unexpected XML response (body: %s)", preview(body))
	}
	msg := ge.Header.ReturnAuthMsg
	if msg == "" {
		msg = ge.Header.ErrMsg
	}
	e := errs.New(errs.KindAPI, status, "%s", msg)
	e.ResultCode = ge.Header.ReturnReasonCode
	return e
}

// preview shortens a body for error messages
func preview(body []byte) string {
	r := []rune(string(body))
	if len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return string(r)
}
