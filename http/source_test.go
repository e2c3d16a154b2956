package http

import (
	"bytes"
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/docview/remotezip"
)

var _ remotezip.Source = (*Source)(nil)

func serveContent(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	modTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("ETag", `"v1"`)
		nethttp.ServeContent(w, r, "data", modTime, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSourceReadRange(t *testing.T) {
	t.Parallel()

	data := []byte("hello world")
	server := serveContent(t, data)
	ctx := context.Background()

	src, err := NewSource(ctx, server.URL)
	require.NoError(t, err)

	size, err := src.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	got, err := src.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	assert.Equal(t, "world", string(got))

	got, err = src.ReadRange(ctx, int64(len(data)-3), 10)
	require.NoError(t, err)
	assert.Equal(t, "rld", string(got))

	got, err = src.ReadRange(ctx, 100, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = src.ReadRange(ctx, -1, 1)
	require.Error(t, err)
}

func TestSourceRangeUnsupported(t *testing.T) {
	t.Parallel()

	data := []byte("range unsupported")
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method == nethttp.MethodHead {
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)

	_, err := NewSource(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrRangeUnsupported)
}

func TestSourceModified(t *testing.T) {
	t.Parallel()

	var version atomic.Int32
	version.Store(1)
	data := []byte("versioned content")
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("ETag", `"v`+strconv.Itoa(int(version.Load()))+`"`)
		nethttp.ServeContent(w, r, "data", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)
	ctx := context.Background()

	src, err := NewSource(ctx, server.URL)
	require.NoError(t, err)

	version.Store(2)
	_, err = src.ReadRange(ctx, 0, 4)
	require.ErrorIs(t, err, ErrModified)
}

func TestSourceBuildsIndex(t *testing.T) {
	t.Parallel()

	// An empty ZIP is just an end of central directory record.
	eocd := []byte{0x50, 0x4b, 0x05, 0x06, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	server := serveContent(t, eocd)

	src, err := NewSource(context.Background(), server.URL)
	require.NoError(t, err)
	ix, err := remotezip.BuildIndex(context.Background(), src)
	require.NoError(t, err)
	assert.Zero(t, ix.Len())
}

func TestParseContentRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{value: "bytes 0-0/11", want: 11},
		{value: " bytes 5-9/100 ", want: 100},
		{value: "bytes 0-0/*", wantErr: true},
		{value: "items 0-0/11", wantErr: true},
		{value: "bytes 0-0", wantErr: true},
		{value: "bytes 0-0/-4", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			got, err := parseContentRange(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
