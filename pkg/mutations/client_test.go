package mutations_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parseq/mutation_sdk_go/internal/httpx"
	"github.com/parseq/mutation_sdk_go/pkg/mutations"
)

type recorded struct {
	Method  string
	Path    string
	RawPath string
	Query   map[string][]string
	Body    string
	Content string
}

type recorder struct {
	mu       sync.Mutex
	requests []recorded
}

func (r *recorder) add(req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recorded{
		Method:  req.Method,
		Path:    req.URL.Path,
		RawPath: req.URL.EscapedPath(),
		Query:   req.URL.Query(),
		Body:    string(body),
		Content: req.Header.Get("Content-Type"),
	})
}

func (r *recorder) last(t *testing.T) recorded {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.requests)
	return r.requests[len(r.requests)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func newAPI(t *testing.T) (*mutations.Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/mutations":
			io.WriteString(w, `{"page":{"zeroBasedNumber":1,"size":2},"resources":[{"mutationId":"m3","mutationType":"SNV","custom":{"x":1}},{"mutationId":"m4"}],"resourcesTotalNumber":7}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/lists":
			io.WriteString(w, `[{"name":"L1","description":"m1","mutations":["m1"]},{"name":"L2","description":"","mutations":[]}]`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/lists/create":
			json.NewEncoder(w).Encode(map[string]any{"list": map[string]any{"name": r.URL.Query().Get("name"), "description": "", "mutations": []string{}}})
		case r.Method == http.MethodPut:
			var payload mutations.UpdateListRequest
			_ = json.Unmarshal([]byte(rec.last(t).Body), &payload)
			json.NewEncoder(w).Encode(map[string]any{"list": map[string]any{"name": payload.Name, "description": payload.Description, "mutations": []string{"m1"}}})
		case r.Method == http.MethodDelete, r.Method == http.MethodPatch:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"message":"no route"}`)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := mutations.New(srv.URL + "/api")
	require.NoError(t, err)
	return client, rec
}

func TestFetchMutations(t *testing.T) {
	client, rec := newAPI(t)

	page, err := client.FetchMutations(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, 7, page.ResourcesTotalNumber)
	require.Equal(t, mutations.Page{ZeroBasedNumber: 1, Size: 2}, page.Page)
	require.Len(t, page.Resources, 2)
	require.Equal(t, "m3", page.Resources[0].MutationID)
	require.Equal(t, "SNV", page.Resources[0].MutationType)

	// unknown fields survive re-encoding
	out, err := json.Marshal(page.Resources[0])
	require.NoError(t, err)
	require.JSONEq(t, `{"mutationId":"m3","mutationType":"SNV","custom":{"x":1}}`, string(out))

	req := rec.last(t)
	require.Equal(t, http.MethodGet, req.Method)
	require.Equal(t, "/api/mutations", req.Path)
	require.Equal(t, []string{"1"}, req.Query["pageZeroBasedNumber"])
	require.Equal(t, []string{"2"}, req.Query["pageSize"])
}

func TestFetchMutationsValidatesWindow(t *testing.T) {
	client, rec := newAPI(t)

	_, err := client.FetchMutations(context.Background(), -1, 20)
	require.ErrorIs(t, err, mutations.ErrInvalidArgument)
	_, err = client.FetchMutations(context.Background(), 0, 0)
	require.ErrorIs(t, err, mutations.ErrInvalidArgument)
	require.Equal(t, 0, rec.count())
}

func TestFetchMutationLists(t *testing.T) {
	client, _ := newAPI(t)

	lists, err := client.FetchMutationLists(context.Background())
	require.NoError(t, err)
	require.Equal(t, []mutations.MutationList{
		{Name: "L1", Description: "m1", Mutations: []string{"m1"}},
		{Name: "L2", Description: "", Mutations: []string{}},
	}, lists)
}

func TestCreateMutationList(t *testing.T) {
	client, rec := newAPI(t)

	list, err := client.CreateMutationList(context.Background(), "my list")
	require.NoError(t, err)
	require.Equal(t, "my list", list.Name)

	req := rec.last(t)
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "/api/lists/create", req.Path)
	require.Equal(t, []string{"my list"}, req.Query["name"])

	_, err = client.CreateMutationList(context.Background(), "  ")
	require.ErrorIs(t, err, mutations.ErrInvalidArgument)
}

func TestUpdateMutationListUsesNewNameInPath(t *testing.T) {
	client, rec := newAPI(t)
	list, err := client.UpdateMutationList(context.Background(), "old/name", "new/name", "d")
	require.NoError(t, err)
	require.Equal(t, "new/name", list.Name)
	req := rec.last(t)
	require.Equal(t, http.MethodPut, req.Method)
	require.Equal(t, "/api/lists/new%2Fname/mutations", req.RawPath)
	require.Equal(t, []string{"old/name"}, req.Query[mutations.PreviousNameParam])
	require.Equal(t, "application/json", req.Content)
	require.JSONEq(t, `{"name":"new/name","description":"d"}`, req.Body)
}

func TestUpdateMutationListKeepingNameOmitsPreviousName(t *testing.T) {
	client, rec := newAPI(t)
	_, err := client.UpdateMutationList(context.Background(), "L2", "L2", "only the description")
	require.NoError(t, err)
	req := rec.last(t)
	require.Equal(t, "/api/lists/L2/mutations", req.RawPath)
	require.NotContains(t, req.Query, mutations.PreviousNameParam)
}

func TestDeleteMutationList(t *testing.T) {
	client, rec := newAPI(t)

	require.NoError(t, client.DeleteMutationList(context.Background(), "L1"))
	req := rec.last(t)
	require.Equal(t, http.MethodDelete, req.Method)
	require.Equal(t, "/api/lists/L1", req.Path)
}

func TestMemberPatches(t *testing.T) {
	client, rec := newAPI(t)

	require.NoError(t, client.AddMutationToList(context.Background(), "L1", []string{"m1", "m2"}))
	req := rec.last(t)
	require.Equal(t, http.MethodPatch, req.Method)
	require.Equal(t, "/api/lists/L1/mutations", req.Path)
	require.JSONEq(t, `["m1","m2"]`, req.Body)

	require.NoError(t, client.RemoveMutationFromList(context.Background(), "L1", nil))
	req = rec.last(t)
	require.Equal(t, http.MethodPatch, req.Method)
	require.JSONEq(t, `[]`, req.Body)
}

func TestErrorsAreReturnedUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"message":"list exists"}`)
	}))
	defer srv.Close()

	client, err := mutations.New(srv.URL)
	require.NoError(t, err)

	_, err = client.CreateMutationList(context.Background(), "L1")
	var httpErr *httpx.HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, http.StatusConflict, httpErr.StatusCode)
	require.Equal(t, "list exists", httpErr.Message())
}

func TestNilClient(t *testing.T) {
	var client *mutations.Client
	_, err := client.FetchMutationLists(context.Background())
	require.Error(t, err)
}
