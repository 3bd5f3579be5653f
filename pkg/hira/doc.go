// Package hira talks to the HIRA hospital information APIs published on
// data.go.kr.
//
// A FetchRequest describes one call: endpoint, key placement, filters and
// paging. Client.Execute performs exactly one HTTP exchange and returns either
// a normalized Page or a classified *errors.Error whose Kind tells the caller
// whether a retry can help.
//
// The API wraps results in an envelope whose items field changes shape with
// the result count:
//
//	{"response": {"header": {"resultCode": "00", "resultMsg": "NORMAL SERVICE."},
//	              "body": {"items": {"item": [...]}, "totalCount": 250}}}
//
// Execute flattens items to a list and accepts totalCount as a number or a
// string.
package hira
