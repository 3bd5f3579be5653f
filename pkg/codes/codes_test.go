package codes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	set := Default()

	assert.Equal(t, []string{Cl, Dgsbjt, Sggu, Sido}, set.Names())

	sido, ok := set.Table(Sido)
	require.True(t, ok)
	assert.Len(t, sido.Entries, 17)

	sggu, ok := set.Table(Sggu)
	require.True(t, ok)
	assert.Len(t, sggu.Entries, 25)
}

func TestResolve(t *testing.T) {
	set := Default()

	tests := []struct {
		table, value, want string
	}{
		{Sido, "서울", "110000"},
		{Sido, "110000", "110000"},
		{Sggu, "강남구", "110001"},
		{Sggu, "중랑구", "110025"},
		{Dgsbjt, "피부과", "14"},
		{Dgsbjt, "01", "01"},
		{Cl, "종합병원", "11"},
		{Cl, " 의원 ", "31"},
		{Cl, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.table+"/"+tt.value, func(t *testing.T) {
			got, err := set.Resolve(tt.table, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveErrors(t *testing.T) {
	set := Default()

	_, err := set.Resolve("zip", "x")
	assert.ErrorContains(t, err, "unknown code table")

	_, err = set.Resolve(Sido, "아틀란티스")
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	set := Default()
	assert.Equal(t, "피부과", set.Name(Dgsbjt, "14"))
	assert.Equal(t, "", set.Name(Dgsbjt, "99"))
	assert.Equal(t, "", set.Name("zip", "14"))
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.yaml")
	data := "sido:\n  entries:\n    - {name: 부산, code: \"260000\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	set, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{Sido}, set.Names())

	code, err := set.Resolve(Sido, "부산")
	require.NoError(t, err)
	assert.Equal(t, "260000", code)
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	set, err := Load("")
	require.NoError(t, err)
	assert.Len(t, set.Names(), 4)
}

func TestParseRejectsIncompleteEntries(t *testing.T) {
	_, err := Parse([]byte("cl:\n  entries:\n    - {name: 의원}\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("cl: ["))
	assert.Error(t, err)
}
