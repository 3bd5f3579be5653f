// Package testutil provides a mock HIRA API server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
)

// Endpoint paths served by MockAPI
const (
	ListPath   = "/getHospBasisList"
	DetailPath = "/getDtlInfo"
)

// Fault describes an injected failure
type Fault struct {
	// Status is written as the HTTP status; ignored when Drop is set
	Status int
	// Drop closes the connection without a response
	Drop bool
	// ResultCode, when set, returns HTTP 200 with this envelope resultCode
	ResultCode string
	// Times is how many requests fail before the fault clears; negative means forever
	Times int
}

// MockAPI is a configurable stand-in for the hospital list and detail APIs
type MockAPI struct {
	server *httptest.Server
	mu     sync.Mutex

	hospitals     []map[string]interface{}
	totalOverride int
	listFaults    map[int]*Fault
	detailFaults  map[string]*Fault
	emptyDetails  map[string]bool

	listCalls   map[int]int
	detailCalls map[string]int
	lastQuery   url.Values
	lastRawURL  string
}

// NewMockAPI starts a server holding n generated hospitals
func NewMockAPI(n int) *MockAPI {
	m := &MockAPI{
		hospitals:    GenerateHospitals(n),
		listFaults:   make(map[int]*Fault),
		detailFaults: make(map[string]*Fault),
		emptyDetails: make(map[string]bool),
		listCalls:    make(map[int]int),
		detailCalls:  make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(ListPath, m.handleList)
	mux.HandleFunc(DetailPath, m.handleDetail)
	m.server = httptest.NewServer(mux)
	return m
}

// GenerateHospitals builds n deterministic hospital list records
func GenerateHospitals(n int) []map[string]interface{} {
	out := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		out[i] = map[string]interface{}{
			"ykiho":    Ykiho(i),
			"yadmNm":   fmt.Sprintf("테스트병원%d", i+1),
			"clCdNm":   "의원",
			"sidoCdNm": "서울",
			"sgguCdNm": "강남구",
			"addr":     fmt.Sprintf("서울특별시 강남구 테헤란로 %d", i+1),
			"telno":    fmt.Sprintf("02-555-%04d", i+1),
			"drTotCnt": i%5 + 1,
		}
	}
	return out
}

// Ykiho returns the generated institution code for index i
func Ykiho(i int) string {
	return fmt.Sprintf("YK%06d", i+1)
}

// ListURL returns the list endpoint URL
func (m *MockAPI) ListURL() string { return m.server.URL + ListPath }

// DetailURL returns the detail endpoint URL
func (m *MockAPI) DetailURL() string { return m.server.URL + DetailPath }

// Close shuts down the server
func (m *MockAPI) Close() { m.server.Close() }

// SetTotalCount reports a different totalCount than the number of hospitals
func (m *MockAPI) SetTotalCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalOverride = n
}

// FailPage injects a fault for a list page
func (m *MockAPI) FailPage(page int, f Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listFaults[page] = &f
}

// FailDetail injects a fault for one institution code
func (m *MockAPI) FailDetail(ykiho string, f Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detailFaults[ykiho] = &f
}

// EmptyDetail makes the detail endpoint return no items for a code
func (m *MockAPI) EmptyDetail(ykiho string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emptyDetails[ykiho] = true
}

// PageCalls returns how many times a list page was requested
func (m *MockAPI) PageCalls(page int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls[page]
}

// ListCalls returns the total number of list requests
func (m *MockAPI) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.listCalls {
		total += n
	}
	return total
}

// DetailCalls returns the total number of detail requests
func (m *MockAPI) DetailCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.detailCalls {
		total += n
	}
	return total
}

// LastQuery returns the parsed query of the most recent request
func (m *MockAPI) LastQuery() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

// LastRawURL returns the raw request URI of the most recent request
func (m *MockAPI) LastRawURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRawURL
}

func (m *MockAPI) track(r *http.Request) {
	m.lastQuery = r.URL.Query()
	m.lastRawURL = r.RequestURI
}

// takeFault consumes one use of a fault, returning it if still active
func takeFault(f *Fault) *Fault {
	if f == nil || f.Times == 0 {
		return nil
	}
	if f.Times > 0 {
		f.Times--
	}
	return f
}

func (m *MockAPI) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("pageNo"))
	if page < 1 {
		page = 1
	}
	rows, _ := strconv.Atoi(q.Get("numOfRows"))
	if rows < 1 {
		rows = 10
	}

	m.mu.Lock()
	m.track(r)
	m.listCalls[page]++
	fault := takeFault(m.listFaults[page])
	total := len(m.hospitals)
	if m.totalOverride > 0 {
		total = m.totalOverride
	}
	start := (page - 1) * rows
	end := start + rows
	var items []map[string]interface{}
	if start < len(m.hospitals) {
		if end > len(m.hospitals) {
			end = len(m.hospitals)
		}
		items = m.hospitals[start:end]
	}
	m.mu.Unlock()

	if fault != nil {
		writeFault(w, fault)
		return
	}
	WriteEnvelope(w, items, total)
}

func (m *MockAPI) handleDetail(w http.ResponseWriter, r *http.Request) {
	ykiho := r.URL.Query().Get("ykiho")

	m.mu.Lock()
	m.track(r)
	m.detailCalls[ykiho]++
	fault := takeFault(m.detailFaults[ykiho])
	empty := m.emptyDetails[ykiho]
	m.mu.Unlock()

	if fault != nil {
		writeFault(w, fault)
		return
	}
	if empty {
		WriteEnvelope(w, nil, 0)
		return
	}

	detail := map[string]interface{}{
		"ykiho":     ykiho,
		"parkQty":   3,
		"lunchWeek": "12:30-13:30",
		"rcvWeek":   "09:00-18:00",
	}
	// Single results come back as an object rather than a one-element list
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"response": map[string]interface{}{
			"header": map[string]interface{}{"resultCode": "00", "resultMsg": "NORMAL SERVICE."},
			"body": map[string]interface{}{
				"items":      map[string]interface{}{"item": detail},
				"numOfRows":  10,
				"pageNo":     1,
				"totalCount": 1,
			},
		},
	})
}

// WriteEnvelope writes a successful response in the API's JSON envelope.
// An empty page is sent with items as "" the way the live API does.
func WriteEnvelope(w http.ResponseWriter, items []map[string]interface{}, total int) {
	var itemsField interface{} = ""
	if len(items) > 0 {
		itemsField = map[string]interface{}{"item": items}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"response": map[string]interface{}{
			"header": map[string]interface{}{"resultCode": "00", "resultMsg": "NORMAL SERVICE."},
			"body": map[string]interface{}{
				"items":      itemsField,
				"numOfRows":  len(items),
				"pageNo":     1,
				"totalCount": total,
			},
		},
	})
}

func writeFault(w http.ResponseWriter, f *Fault) {
	if f.Drop {
		hj, ok := w.(http.Hijacker)
		if ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				conn.Close()
				return
			}
		}
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	if f.ResultCode != "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"response": map[string]interface{}{
				"header": map[string]interface{}{"resultCode": f.ResultCode, "resultMsg": "SERVICE ERROR"},
			},
		})
		return
	}
	status := f.Status
	if status == 0 {
		status = http.StatusServiceUnavailable
	}
	w.WriteHeader(status)
	fmt.Fprintf(w, "injected failure %d", status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
