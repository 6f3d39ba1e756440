package mirror

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/record"
)

func stores(t *testing.T) map[string]Store {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "mirror"))
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func TestMirror(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			testMirror(t, ctx, New(store, nil))
		})
	}
}

func testMirror(t *testing.T, ctx context.Context, m *Mirror) {
	// absence is an empty collection
	recs, err := m.Records(ctx, record.Class)
	require.NoError(t, err)
	assert.Equal(t, []record.Map{}, recs)

	require.NoError(t, m.Snapshot(ctx, record.Class, []record.Map{
		{"c_id": "c1", "name": "Form 1"},
		{"classId": "c2"},
		{"c_id": "c3"},
	}))
	require.NoError(t, m.RemoveRecord(ctx, record.Class, "c2"))

	recs, err = m.Records(ctx, record.Class)
	require.NoError(t, err)
	assert.Equal(t, []record.Map{{"c_id": "c1", "name": "Form 1"}, {"c_id": "c3"}}, recs)

	// removing an unknown id keeps everything
	require.NoError(t, m.RemoveRecord(ctx, record.Class, "nope"))
	recs, err = m.Records(ctx, record.Class)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	// collections are independent
	recs, err = m.Records(ctx, record.Student)
	require.NoError(t, err)
	assert.Empty(t, recs)

	// subjects are not mirrored
	require.NoError(t, m.Snapshot(ctx, record.Subject, []record.Map{{"code": "PHY"}}))
	recs, err = m.Records(ctx, record.Subject)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMirror_UnreadableDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "teachers.json"), []byte(`{"oops":`), 0o644))

	m := New(fs, core.NopLogger())
	recs, err := m.Records(ctx, record.Teacher)
	require.NoError(t, err)
	assert.Equal(t, []record.Map{}, recs)

	// a broken document does not block removals
	require.NoError(t, m.RemoveRecord(ctx, record.Teacher, "t1"))
	data, err := os.ReadFile(filepath.Join(dir, "teachers.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "students.json"), []byte(`null`), 0o644))
	recs, err = m.Records(ctx, record.Student)
	require.NoError(t, err)
	assert.Equal(t, []record.Map{}, recs)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		conf    core.MirrorConfig
		wantErr bool
	}{
		{name: "memory", conf: core.MirrorConfig{Driver: "memory"}},
		{name: "file", conf: core.MirrorConfig{Driver: "file", Dir: t.TempDir()}},
		{name: "default", conf: core.MirrorConfig{Dir: t.TempDir()}},
		{name: "postgres without dsn", conf: core.MirrorConfig{Driver: "postgres"}, wantErr: true},
		{name: "unknown", conf: core.MirrorConfig{Driver: "redis"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.conf)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}
