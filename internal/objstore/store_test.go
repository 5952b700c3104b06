package objstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrondb/chrondb/internal/value"
)

func testAuthor() CommitAuthor {
	return CommitAuthor{Name: "chrondb", Email: "chrondb@localhost"}
}

func doc(id string, fields map[string]value.Value) value.Value {
	m := map[string]value.Value{"id": value.String(id)}
	for k, v := range fields {
		m[k] = v
	}
	return value.Map(m)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestPutThenGetDocumentRoundTrips(t *testing.T) {
	s := openTestStore(t)
	d := doc("user:1", map[string]value.Value{"name": value.String("ada")})

	saved, err := s.PutDocument("main", d, testAuthor(), "save user:1", time.Now())
	require.NoError(t, err)
	assert.True(t, value.Equal(d, saved))

	got, ok, err := s.GetDocument("main", "user:1", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, value.Equal(d, got))
}

func TestGetMissingDocumentReturnsFalseNotError(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.GetDocument("main", "user:missing", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutUpdatesExistingDocument(t *testing.T) {
	s := openTestStore(t)
	d1 := doc("user:1", map[string]value.Value{"name": value.String("ada")})
	_, err := s.PutDocument("main", d1, testAuthor(), "v1", time.Now())
	require.NoError(t, err)

	d2 := doc("user:1", map[string]value.Value{"name": value.String("grace")})
	_, err = s.PutDocument("main", d2, testAuthor(), "v2", time.Now())
	require.NoError(t, err)

	got, ok, err := s.GetDocument("main", "user:1", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, value.Equal(d2, got))
}

func TestDeleteDocumentRemovesIt(t *testing.T) {
	s := openTestStore(t)
	d := doc("user:1", nil)
	_, err := s.PutDocument("main", d, testAuthor(), "save", time.Now())
	require.NoError(t, err)

	existed, err := s.DeleteDocument("main", "user:1", testAuthor(), "delete", time.Now())
	require.NoError(t, err)
	assert.True(t, existed)

	_, ok, err := s.GetDocument("main", "user:1", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteMissingDocumentReportsNotExisted(t *testing.T) {
	s := openTestStore(t)
	existed, err := s.DeleteDocument("main", "user:1", testAuthor(), "delete", time.Now())
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestGetByTableReturnsOnlyThatTableSortedByID(t *testing.T) {
	s := openTestStore(t)
	_, err := s.PutDocument("main", doc("user:2", nil), testAuthor(), "m", time.Now())
	require.NoError(t, err)
	_, err = s.PutDocument("main", doc("user:1", nil), testAuthor(), "m", time.Now())
	require.NoError(t, err)
	_, err = s.PutDocument("main", doc("order:1", nil), testAuthor(), "m", time.Now())
	require.NoError(t, err)

	docs, err := s.GetByTable("main", "user")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	id0, _ := value.ID(docs[0])
	id1, _ := value.ID(docs[1])
	assert.Equal(t, "user:1", id0)
	assert.Equal(t, "user:2", id1)
}

func TestGetByPrefixSpansTables(t *testing.T) {
	s := openTestStore(t)
	_, err := s.PutDocument("main", doc("user:abc", nil), testAuthor(), "m", time.Now())
	require.NoError(t, err)
	_, err = s.PutDocument("main", doc("user:abd", nil), testAuthor(), "m", time.Now())
	require.NoError(t, err)
	_, err = s.PutDocument("main", doc("user:zzz", nil), testAuthor(), "m", time.Now())
	require.NoError(t, err)

	docs, err := s.GetByPrefix("main", "user:ab")
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestBranchesAreIndependent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateBranch("feature", "main"))

	_, err := s.PutDocument("feature", doc("user:1", nil), testAuthor(), "m", time.Now())
	require.NoError(t, err)

	_, ok, err := s.GetDocument("main", "user:1", nil)
	require.NoError(t, err)
	assert.False(t, ok, "writes on feature must not appear on main")

	_, ok, err = s.GetDocument("feature", "user:1", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateBranchIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateBranch("feature", "main"))
	require.NoError(t, s.CreateBranch("feature", "main"))
}

func TestListBranchesReturnsSortedNames(t *testing.T) {
	s := openTestStore(t)
	_, err := s.PutDocument("main", doc("user:1", nil), testAuthor(), "m", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.CreateBranch("zeta", "main"))
	require.NoError(t, s.CreateBranch("alpha", "main"))

	names, err := s.ListBranches()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "main", "zeta"}, names)
}

func TestDeleteBranchRemovesRef(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateBranch("feature", "main"))
	require.NoError(t, s.DeleteBranch("feature"))

	names, err := s.ListBranches()
	require.NoError(t, err)
	assert.NotContains(t, names, "feature")
}

func TestPutDetectsStaleBranch(t *testing.T) {
	s := openTestStore(t)
	_, err := s.PutDocument("main", doc("user:1", nil), testAuthor(), "m", time.Now())
	require.NoError(t, err)

	head, _, err := headTreeHash(s, "main")
	require.NoError(t, err)

	// Simulate a concurrent writer moving the branch after we observed head.
	_, err = s.PutDocument("main", doc("user:2", nil), testAuthor(), "m", time.Now())
	require.NoError(t, err)

	err = casAdvanceBranch(s.repo, "main", head, head)
	var stale *StaleBranch
	assert.ErrorAs(t, err, &stale)
}
