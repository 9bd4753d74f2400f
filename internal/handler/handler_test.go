package handler

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lionrepo/internal/codec"
	"lionrepo/internal/domain"
	"lionrepo/internal/logging/loggingtest"
	"lionrepo/internal/service"
)

var (
	folder   = domain.NewMetaPointer("files", "1", "Folder")
	file     = domain.NewMetaPointer("files", "1", "File")
	entries  = domain.NewMetaPointer("files", "1", "entries")
	fileName = domain.NewMetaPointer("files", "1", "name")
)

type testAPI struct {
	t      *testing.T
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := loggingtest.New(t)
	svc := service.NewServer(service.WithLogger(logger))
	api := &testAPI{t: t, router: NewRouter(New(svc, nil, logger), nil)}
	api.expect(http.StatusOK, http.MethodPost, "/createRepository?repository=docs", nil, nil)
	return api
}

func (a *testAPI) do(method, target string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) expect(status int, method, target string, body io.Reader, out any) {
	a.t.Helper()
	rec := a.do(method, target, body, nil)
	require.Equal(a.t, status, rec.Code, rec.Body.String())
	if out != nil {
		require.NoError(a.t, gojson.Unmarshal(rec.Body.Bytes(), out))
	}
}

func chunkBody(t *testing.T, nodes ...*domain.Node) io.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, codec.NewJSONCodec(nil).Encode(domain.ChunkFromNodes("2023.1", nodes), &buf))
	return &buf
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := gojson.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func tree() []*domain.Node {
	b := domain.NewTreeBuilder()
	root := b.Root("home", folder)
	root.Child(entries, "readme", file).Property(fileName, "README.md")
	root.Child(entries, "src", folder).Child(entries, "main", file).Property(fileName, "main.go")
	return b.Nodes()
}

func (a *testAPI) seed() {
	a.t.Helper()
	nodes := tree()
	root := nodes[0].Clone()
	root.ClearContainments()
	a.expect(http.StatusOK, http.MethodPost, "/bulk/createPartitions?repository=docs", chunkBody(a.t, root), nil)
	a.expect(http.StatusOK, http.MethodPost, "/bulk/store?repository=docs", chunkBody(a.t, nodes...), nil)
}

func decodeChunk(t *testing.T, resp ChunkResponse) *domain.Chunk {
	t.Helper()
	chunk, err := codec.NewJSONCodec(nil).Decode(bytes.NewReader(resp.Chunk))
	require.NoError(t, err)
	return chunk
}

func TestRepositoryManagement(t *testing.T) {
	api := newTestAPI(t)

	var errResp ErrorResponse
	api.expect(http.StatusConflict, http.MethodPost, "/createRepository?repository=docs", nil, &errResp)
	assert.Equal(t, "Failed to create repository", errResp.Error)

	api.expect(http.StatusBadRequest, http.MethodPost, "/createRepository?repository=h&history=true", nil, nil)
	api.expect(http.StatusBadRequest, http.MethodPost, "/createRepository", nil, nil)

	var list RepositoriesResponse
	api.expect(http.StatusOK, http.MethodPost, "/listRepositories", nil, &list)
	require.Len(t, list.Repositories, 1)
	assert.Equal(t, "docs", list.Repositories[0].Name)
	assert.Equal(t, DefaultLionWebVersion, list.Repositories[0].LionWebVersion)

	api.expect(http.StatusOK, http.MethodPost, "/deleteRepository?repository=docs", nil, nil)
	api.expect(http.StatusNotFound, http.MethodPost, "/deleteRepository?repository=docs", nil, nil)
	api.expect(http.StatusNotFound, http.MethodPost, "/bulk/ids?repository=docs", nil, nil)
}

func TestBulkRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	api.seed()

	var partitions ChunkResponse
	api.expect(http.StatusOK, http.MethodPost, "/bulk/listPartitions?repository=docs", nil, &partitions)
	assert.Equal(t, "v-2", partitions.Version)
	roots := decodeChunk(t, partitions)
	require.Equal(t, 1, roots.Len())
	assert.Equal(t, "home", roots.Nodes()[0].ID)

	var full ChunkResponse
	api.expect(http.StatusOK, http.MethodPost, "/bulk/retrieve?repository=docs", jsonBody(t, RetrieveRequest{IDs: []string{"home"}}), &full)
	retrieved := decodeChunk(t, full)
	assert.True(t, domain.ChunkFromNodes("2023.1", tree()).Equal(retrieved))

	var shallow ChunkResponse
	api.expect(http.StatusOK, http.MethodPost, "/bulk/retrieve?repository=docs&depthLimit=1", jsonBody(t, RetrieveRequest{IDs: []string{"home"}}), &shallow)
	assert.Equal(t, 3, decodeChunk(t, shallow).Len())

	home := tree()[0]
	home.RemoveChild("src")
	var m MutationResponse
	api.expect(http.StatusOK, http.MethodPost, "/bulk/store?repository=docs", chunkBody(t, home), &m)
	assert.Equal(t, "v-3", m.Version)
	assert.ElementsMatch(t, []string{"src", "main"}, m.Deleted)

	api.expect(http.StatusOK, http.MethodPost, "/bulk/deletePartitions?repository=docs", jsonBody(t, []string{"home"}), &m)
	assert.Equal(t, []string{"home"}, m.DeletedPartitions)
	assert.ElementsMatch(t, []string{"home", "readme"}, m.Deleted)
}

// homeWithGhost returns the home partition listing a child that is not sent.
func homeWithGhost() *domain.Node {
	b := domain.NewTreeBuilder()
	b.Root("home", folder).Child(entries, "ghost", file)
	return b.Nodes()[0]
}

func TestBulkErrors(t *testing.T) {
	api := newTestAPI(t)
	api.seed()

	tests := []struct {
		name   string
		target string
		body   io.Reader
		status int
	}{
		{"malformed chunk", "/bulk/store?repository=docs", bytes.NewBufferString(`{"nodes":[{"id":1}]}`), http.StatusBadRequest},
		{"unknown child", "/bulk/store?repository=docs", chunkBody(t, homeWithGhost()), http.StatusBadRequest},
		{"root that is not a partition", "/bulk/store?repository=docs", chunkBody(t, domain.NewNode("loose", folder, "")), http.StatusBadRequest},
		{"existing partition", "/bulk/createPartitions?repository=docs", chunkBody(t, domain.NewNode("home", folder, "")), http.StatusConflict},
		{"id collision", "/bulk/createPartitions?repository=docs", chunkBody(t, domain.NewNode("readme", folder, "")), http.StatusConflict},
		{"unknown partition", "/bulk/deletePartitions?repository=docs", bytes.NewBufferString(`["nope"]`), http.StatusBadRequest},
		{"negative depth", "/bulk/retrieve?repository=docs&depthLimit=-1", bytes.NewBufferString(`{"ids":["home"]}`), http.StatusBadRequest},
		{"bad depth", "/bulk/retrieve?repository=docs&depthLimit=deep", bytes.NewBufferString(`{"ids":["home"]}`), http.StatusBadRequest},
		{"empty body", "/bulk/retrieve?repository=docs", http.NoBody, http.StatusBadRequest},
		{"negative count", "/bulk/ids?repository=docs&count=-2", nil, http.StatusBadRequest},
		{"huge count", "/bulk/ids?repository=docs&count=4611686018427387904", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			api.expect(tt.status, http.MethodPost, tt.target, tt.body, &resp)
			assert.NotEmpty(t, resp.Details)
		})
	}
}

func TestIDs(t *testing.T) {
	api := newTestAPI(t)

	var resp IDsResponse
	api.expect(http.StatusOK, http.MethodPost, "/bulk/ids?repository=docs&count=3", nil, &resp)
	assert.Equal(t, []string{"id-1", "id-2", "id-3"}, resp.IDs)

	api.expect(http.StatusOK, http.MethodPost, "/bulk/ids?repository=docs", nil, &resp)
	assert.Equal(t, []string{"id-4"}, resp.IDs)
}

func TestYAMLAndZstdBodies(t *testing.T) {
	api := newTestAPI(t)

	var yamlBody bytes.Buffer
	root := domain.NewNode("home", folder, "")
	require.NoError(t, codec.NewYAMLCodec(nil).Encode(domain.ChunkFromNodes("2023.1", []*domain.Node{root}), &yamlBody))
	rec := api.do(http.MethodPost, "/bulk/createPartitions?repository=docs", &yamlBody, http.Header{"Content-Type": {"application/yaml"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var zstdBody bytes.Buffer
	require.NoError(t, codec.NewZstdCodec(codec.NewJSONCodec(nil)).Encode(domain.ChunkFromNodes("2023.1", tree()), &zstdBody))
	rec = api.do(http.MethodPost, "/bulk/store?repository=docs", &zstdBody, http.Header{"Content-Encoding": {"zstd"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestChangeProperty(t *testing.T) {
	api := newTestAPI(t)
	api.seed()

	req := ChangePropertyRequest{
		Node:     "readme",
		Property: MetaPointerBody{Language: "files", Version: "1", Key: "name"},
		Value:    domain.Ptr("README.txt"),
	}
	var resp ChangePropertyResponse
	api.expect(http.StatusOK, http.MethodPost, "/delta/changeProperty?repository=docs", jsonBody(t, req), &resp)
	assert.Equal(t, "README.md", *resp.OldValue)
	assert.Equal(t, "v-3", resp.Version)

	var full ChunkResponse
	api.expect(http.StatusOK, http.MethodPost, "/bulk/retrieve?repository=docs&depthLimit=0", jsonBody(t, RetrieveRequest{IDs: []string{"readme"}}), &full)
	readme, ok := decodeChunk(t, full).NodeByID("readme")
	require.True(t, ok)
	pv, ok := readme.PropertyValue(fileName)
	require.True(t, ok)
	assert.Equal(t, "README.txt", pv.Value())

	req.Node = "ghost"
	api.expect(http.StatusBadRequest, http.MethodPost, "/delta/changeProperty?repository=docs", jsonBody(t, req), nil)
	api.expect(http.StatusBadRequest, http.MethodPost, "/delta/changeProperty?repository=docs", jsonBody(t, ChangePropertyRequest{}), nil)
}

func TestInspection(t *testing.T) {
	api := newTestAPI(t)
	api.seed()

	var byClassifier []ClassifierGroup
	api.expect(http.StatusOK, http.MethodGet, "/inspection/nodesByClassifier?repository=docs&limit=1", nil, &byClassifier)
	require.Len(t, byClassifier, 2)
	assert.Equal(t, "File", byClassifier[0].Classifier)
	assert.Equal(t, 2, byClassifier[0].Size)
	assert.Len(t, byClassifier[0].IDs, 1)
	assert.Equal(t, "Folder", byClassifier[1].Classifier)

	var byLanguage []LanguageGroup
	api.expect(http.StatusOK, http.MethodGet, "/inspection/nodesByLanguage?repository=docs", nil, &byLanguage)
	require.Len(t, byLanguage, 1)
	assert.Equal(t, LanguageGroup{Language: "files", IDs: []string{"home", "main", "readme", "src"}, Size: 4}, byLanguage[0])

	var consistency ConsistencyResponse
	api.expect(http.StatusOK, http.MethodGet, "/inspection/consistency?repository=docs", nil, &consistency)
	assert.True(t, consistency.Successful)
	assert.Empty(t, consistency.Issues)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(io.ErrUnexpectedEOF))
	assert.Equal(t, http.StatusBadRequest, statusFor(&codec.DecodeError{Field: "nodes", Msg: "missing"}))
}
