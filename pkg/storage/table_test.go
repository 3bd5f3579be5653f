package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"

	"hirafetch/pkg/models"
)

func sampleRecords() []models.Record {
	return []models.Record{
		{"ykiho": "YK000001", "yadmNm": "테스트병원1", "drTotCnt": json.Number("3"), "zeta": "z"},
		{"ykiho": "YK000002", "yadmNm": "테스트병원2", "alpha": "a", "extra": map[string]interface{}{"k": "v"}},
	}
}

func TestColumnsOrder(t *testing.T) {
	cols := Columns(sampleRecords(), []string{"yadmNm", "missing", "ykiho"})
	assert.Equal(t, []string{"yadmNm", "ykiho", "drTotCnt", "zeta", "alpha", "extra"}, cols)
}

func TestColumnsEmpty(t *testing.T) {
	assert.Empty(t, Columns(nil, models.ListColumns))
}

func TestWriteRecordsCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.csv")
	require.NoError(t, WriteRecords(path, sampleRecords(), []string{"yadmNm"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), utf8BOM), "CSV starts with a BOM")

	header, rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, "yadmNm", header[0])
	require.Len(t, rows, 2)
	assert.Equal(t, "테스트병원1", rows[0].String("yadmNm"))
	assert.Equal(t, "3", rows[0].String("drTotCnt"))
	assert.Equal(t, "", rows[0].String("alpha"))
	assert.Equal(t, `{"k":"v"}`, rows[1].String("extra"))
}

func TestWriteRecordsXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "list.xlsx")
	require.NoError(t, WriteRecords(path, sampleRecords(), models.ListColumns))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	header, rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"yadmNm", "drTotCnt", "ykiho", "zeta", "alpha", "extra"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, "YK000002", rows[1].String("ykiho"))
	assert.Equal(t, "3", rows[0].String("drTotCnt"))
	assert.Equal(t, `{"k":"v"}`, rows[1].String("extra"))
}

func TestWriteRecordsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteRecords(path, nil, nil))

	header, rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Empty(t, header)
	assert.Empty(t, rows)
}

func TestReadRowsEUCKR(t *testing.T) {
	encoded, err := korean.EUCKR.NewEncoder().String("요양기관명,암호화요양기호\n서울병원,ABC123\n")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0644))

	header, rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"요양기관명", "암호화요양기호"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, "서울병원", rows[0].String("요양기관명"))
}

func TestReadRowsShortAndBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte("ykiho,addr\nYK1\n,\nYK2,서울\n"), 0644))

	_, rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[0].String("addr"))
	assert.Equal(t, "서울", rows[1].String("addr"))
}

func TestReadRowsErrors(t *testing.T) {
	_, _, err := ReadRows(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	broken := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(broken, []byte("not a workbook"), 0644))
	_, _, err = ReadRows(broken)
	assert.Error(t, err)
}

func TestDetectKeyColumn(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   string
		ok     bool
	}{
		{name: "api field", header: []string{"yadmNm", "ykiho"}, want: "ykiho", ok: true},
		{name: "korean header", header: []string{"병원명", "암호화요양기호"}, want: "암호화요양기호", ok: true},
		{name: "preference order", header: []string{"요양기호", "ykiho"}, want: "ykiho", ok: true},
		{name: "case insensitive", header: []string{"Ykiho"}, want: "Ykiho", ok: true},
		{name: "absent", header: []string{"name", "addr"}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectKeyColumn(tt.header)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectColumn(t *testing.T) {
	col, ok := DetectColumn([]string{"주소", "요양기관명"}, models.NameColumnCandidates)
	assert.True(t, ok)
	assert.Equal(t, "요양기관명", col)

	_, ok = DetectColumn([]string{"x"}, models.AddrColumnCandidates)
	assert.False(t, ok)
}
