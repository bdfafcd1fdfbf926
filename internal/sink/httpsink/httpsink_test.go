package httpsink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowsync/internal/sink"
	"rowsync/internal/value"
)

func TestWritePostsBulkArgs(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := Open(srv.URL)
	report, err := s.Write(context.Background(), "doc", "events", []string{"a", "b"}, [][]value.Value{
		{value.NewI32(1), value.NewString("x")},
		{value.NewNone(), value.NewVecI64([]int64{4, 5})},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.RowsWritten)
	assert.Equal(t, "/_sql", gotPath)

	var decoded struct {
		Stmt     string  `json:"stmt"`
		BulkArgs [][]any `json:"bulk_args"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, "INSERT INTO doc.events (a, b) VALUES (?, ?)", decoded.Stmt)
	require.Len(t, decoded.BulkArgs, 2)
	assert.Equal(t, float64(1), decoded.BulkArgs[0][0])
	assert.Equal(t, "x", decoded.BulkArgs[0][1])
	assert.Nil(t, decoded.BulkArgs[1][0])
	assert.Equal(t, []any{float64(4), float64(5)}, decoded.BulkArgs[1][1])
}

func TestWriteNon2xxFailsWithoutRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad stmt", http.StatusBadRequest)
	}))
	defer srv.Close()

	s := Open(srv.URL)
	_, err := s.Write(context.Background(), "doc", "events", []string{"a"}, [][]value.Value{{value.NewI32(1)}})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWriteValidatesBatchShape(t *testing.T) {
	s := Open("http://localhost:1")
	_, err := s.Write(context.Background(), "doc", "events", nil, nil)
	assert.ErrorIs(t, err, sink.ErrEmptyColumns)

	_, err = s.Write(context.Background(), "doc", "events", []string{"a", "b"}, [][]value.Value{{value.NewI32(1)}})
	assert.ErrorIs(t, err, sink.ErrRowArity)
}
