package webdav

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMultistatus_NamespacePrefixes(t *testing.T) {
	t.Parallel()

	body := `<?xml version="1.0"?>
<x:multistatus xmlns:x="DAV:" xmlns:y="http://example.com/ns">
  <x:response>
    <x:href>/docs/a.txt</x:href>
    <x:propstat>
      <x:prop><x:getcontentlength>12</x:getcontentlength><y:displayname>decoy</y:displayname></x:prop>
      <x:status>HTTP/1.1 200 OK</x:status>
    </x:propstat>
  </x:response>
</x:multistatus>`

	ms, err := parseMultistatus(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, ms.Responses, 1)
	r := ms.Responses[0]
	assert.Equal(t, "/docs/a.txt", r.Href)
	require.Len(t, r.Propstats, 1)
	assert.Equal(t, "12", r.Propstats[0].Prop.ContentLength)
	assert.Empty(t, r.Propstats[0].Prop.DisplayName, "displayname in a foreign namespace must be ignored")
}

func TestParseMultistatus_RejectsDoctype(t *testing.T) {
	t.Parallel()

	body := `<?xml version="1.0"?>
<!DOCTYPE foo [<!ENTITY xxe SYSTEM "file:///etc/passwd">]>
<D:multistatus xmlns:D="DAV:"><D:response><D:href>&xxe;</D:href></D:response></D:multistatus>`

	_, err := parseMultistatus(strings.NewReader(body))
	require.ErrorIs(t, err, ErrDoctype)
}

func TestParseMultistatus_Malformed(t *testing.T) {
	t.Parallel()

	_, err := parseMultistatus(strings.NewReader(`<D:multistatus xmlns:D="DAV:"><D:response>`))
	require.Error(t, err)

	_, err = parseMultistatus(strings.NewReader(""))
	require.Error(t, err)

	_, err = parseMultistatus(strings.NewReader(`<other xmlns="urn:x"/>`))
	require.Error(t, err)
}

func TestEscapePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "/docs/a b.txt", want: "/docs/a%20b.txt"},
		{in: "/docs/A+b.txt", want: "/docs/A%2Bb.txt"},
		{in: "/한글/파일.zip", want: "/%ED%95%9C%EA%B8%80/%ED%8C%8C%EC%9D%BC.zip"},
		{in: "/q?x#y", want: "/q%3Fx%23y"},
		{in: "/", want: "/"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, escapePath(tt.in))
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	c, err := New("https://dav.example.com/remote.php/dav/")
	require.NoError(t, err)

	assert.Equal(t, "https://dav.example.com/remote.php/dav/docs/A%2Bb.txt", c.resolve("docs/A+b.txt"))
	assert.Equal(t, "https://dav.example.com/remote.php/dav/", c.resolve("/"))

	rel, ok := c.relative("/remote.php/dav/docs/x")
	assert.True(t, ok)
	assert.Equal(t, "/docs/x", rel)

	_, ok = c.relative("/elsewhere/x")
	assert.False(t, ok)
	_, ok = c.relative("/remote.php/davx")
	assert.False(t, ok)
}

func TestStatusOK(t *testing.T) {
	t.Parallel()

	assert.True(t, statusOK("HTTP/1.1 200 OK"))
	assert.True(t, statusOK(""))
	assert.False(t, statusOK("HTTP/1.1 404 Not Found"))
	assert.False(t, statusOK("garbage"))
}
