package models

import (
	"encoding/json"
	"fmt"
)

// Record is one hospital item as returned by the API. Numbers are kept as
// json.Number so that codes with leading zeros and large counts survive.
type Record map[string]any

// Detail annotation keys added to every detail-fetch record
const (
	FieldDetailStatus = "detailStatus"
	FieldDetailError  = "detailError"
	FieldSourceName   = "sourceYadmNm"
	FieldSourceAddr   = "sourceAddr"
	FieldYkiho        = "ykiho"
)

// Detail status values
const (
	DetailStatusOK       = "ok"
	DetailStatusNoDetail = "no_detail"
)

// String returns the value under key rendered as text, or "" when absent
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Clone returns a shallow copy
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ListColumns is the preferred column order for list output
var ListColumns = []string{
	"yadmNm", "clCdNm", "sidoCdNm", "sgguCdNm", "emdongNm", "addr", "postNo",
	"telno", "hospUrl", "estbDd", "drTotCnt", "mdeptSdrCnt", "detySdrCnt",
	"cmdcSdrCnt", "XPos", "YPos", "ykiho",
}

// DetailColumns is the preferred column order for detail output
var DetailColumns = []string{
	FieldSourceName, FieldSourceAddr, FieldDetailStatus, FieldDetailError, FieldYkiho,
}

// KeyColumnCandidates are header names that may hold the encrypted institution code
var KeyColumnCandidates = []string{"ykiho", "암호화요양기호", "요양기호", "YKIHO"}

// NameColumnCandidates are header names that may hold the institution name
var NameColumnCandidates = []string{"yadmNm", "병원명", "요양기관명"}

// AddrColumnCandidates are header names that may hold the address
var AddrColumnCandidates = []string{"addr", "주소"}
