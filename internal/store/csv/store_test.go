package csvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscurecore/eduscan/internal/institution"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "institutions.csv"))
	require.NoError(t, err)
	require.NoError(t, s.EnsureInitialized())
	return s
}

func TestEnsureInitializedIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Append(institution.Record{ID: "100", Type: institution.TypeSchool}))

	// A second initialization must not truncate existing data.
	require.NoError(t, s.EnsureInitialized())
	records, err := s.ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAppendReadAllRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	rec := institution.Record{
		ID:            "sch123",
		Type:          institution.TypeSchool,
		Number:        "12",
		StudentsCount: "350",
		District:      "Московский",
		URL:           "https://edu.tatar.ru/moscow/page/sch123.htm",
	}
	require.NoError(t, s.Append(rec))

	records, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec, records[0])
}

func TestExists(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Append(institution.Record{ID: "42", Type: institution.TypeKindergarten}))

	ok, err := s.Exists("42")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists("43")
	require.NoError(t, err)
	assert.False(t, ok)

	// The header row must not satisfy an existence check.
	ok, err = s.Exists("ID")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadAllSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Append(institution.Record{ID: "1", Type: institution.TypeSchool, Number: "5", StudentsCount: "100", District: "Кировский", URL: "https://example.com/1.htm"}))

	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("broken,row,with,five,fields\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, s.Append(institution.Record{ID: "2", Type: institution.TypeSchool, Number: "7", StudentsCount: "200", District: "Советский", URL: "https://example.com/2.htm"}))

	records, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "2", records[1].ID)
}

func TestReadAllNeverReturnsDuplicateIDs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		ok, err := s.Exists(id)
		require.NoError(t, err)
		if !ok {
			require.NoError(t, s.Append(institution.Record{ID: id, Type: institution.TypeSchool}))
		}
	}

	records, err := s.ReadAll()
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, rec := range records {
		assert.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
	assert.Len(t, records, len(ids))
}

func TestNewRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := New("")
	assert.Error(t, err)
}
