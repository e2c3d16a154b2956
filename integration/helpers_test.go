//go:build integration

package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/docview"
)

const (
	davUser = "docview"
	davPass = "integration"
)

// --- WebDAV Container Setup ---

var (
	davOnce sync.Once
	davURL  string
	davErr  error
)

// getWebDAV returns the shared server URL, starting the container if needed.
// The container is shared across all tests for performance.
func getWebDAV(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	davOnce.Do(func() {
		davURL, davErr = startWebDAVContainer(context.Background())
	})

	if davErr != nil {
		tb.Fatalf("start webdav container: %v", davErr)
	}

	return davURL
}

// startWebDAVContainer starts an Apache WebDAV container with Basic auth
// and returns its base URL.
func startWebDAVContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "bytemark/webdav:2.4",
		ExposedPorts: []string{"80/tcp"},
		Env: map[string]string{
			"AUTH_TYPE": "Basic",
			"USERNAME":  davUser,
			"PASSWORD":  davPass,
		},
		WaitingFor: wait.ForHTTP("/").WithPort("80/tcp").WithStatusCodeMatcher(isServing),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start webdav container: %w", err)
	}

	// Container cleanup is handled by the testcontainers Reaper.

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve webdav host: %w", err)
	}

	port, err := container.MappedPort(ctx, "80/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve webdav port: %w", err)
	}

	return fmt.Sprintf("http://%s:%s", host, port.Port()), nil
}

// isServing accepts the 401 an unauthenticated probe gets once Apache is up.
func isServing(status int) bool {
	return status == http.StatusUnauthorized || (status >= 200 && status < 300)
}

// --- Test Client Factory ---

// newTestClient creates a client with the container registered as "dav".
func newTestClient(tb testing.TB, baseURL string, opts ...docview.Option) *docview.Client {
	tb.Helper()

	allOpts := append([]docview.Option{
		docview.WithServer("dav", baseURL),
		docview.WithCredentials(docview.StaticCredentials{"dav": {Username: davUser, Password: davPass}}),
	}, opts...)

	client, err := docview.New(allOpts...)
	require.NoError(tb, err, "create test client")
	tb.Cleanup(func() { _ = client.Close() })

	return client
}

// --- Test Data Helpers ---

// upload stores content at p on the server, creating parent collections.
// The library itself is read-only, so fixtures go in with plain requests.
func upload(tb testing.TB, baseURL, p string, content []byte) {
	tb.Helper()

	dir := ""
	for _, seg := range strings.Split(strings.Trim(path.Dir(p), "/"), "/") {
		if seg == "" {
			continue
		}
		dir += "/" + seg
		status := doRequest(tb, "MKCOL", baseURL+dir+"/", nil)
		// 405 means the collection already exists.
		require.Contains(tb, []int{http.StatusCreated, http.StatusMethodNotAllowed}, status, "MKCOL %s", dir)
	}

	status := doRequest(tb, http.MethodPut, baseURL+p, content)
	require.Contains(tb, []int{http.StatusCreated, http.StatusNoContent, http.StatusOK}, status, "PUT %s", p)
}

func doRequest(tb testing.TB, method, url string, body []byte) int {
	tb.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewReader(body))
	require.NoError(tb, err)
	req.SetBasicAuth(davUser, davPass)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(tb, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

// testPath generates a unique collection for a test to avoid collisions.
func testPath(testName string, elems ...string) string {
	return path.Join(append([]string{"/", "it", testName}, elems...)...)
}

// buildZip writes files into an in-memory archive. Names ending in .txt
// are deflated, everything else is stored.
func buildZip(tb testing.TB, files map[string][]byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		method := zip.Store
		if strings.HasSuffix(name, ".txt") {
			method = zip.Deflate
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		require.NoError(tb, err)
		_, err = w.Write(content)
		require.NoError(tb, err)
	}
	require.NoError(tb, zw.Close())
	return buf.Bytes()
}

// makeCompressibleContent creates content that benefits from compression.
func makeCompressibleContent(size int) []byte {
	pattern := []byte("This is a repeating pattern for compression testing. ")
	result := make([]byte, 0, size)
	for len(result) < size {
		result = append(result, pattern...)
	}
	return result[:size]
}

// makeRandomContent creates random binary content.
func makeRandomContent(size int) []byte {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	return data
}

// --- Standard Test Fixtures ---

// comicArchive is a small cbz-style container.
var comicArchive = map[string][]byte{
	"001.jpg":   makeRandomContent(32 * 1024),
	"002.jpg":   makeRandomContent(48 * 1024),
	"notes.txt": makeCompressibleContent(100 * 1024),
}
