package mutations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/parseq/mutation_sdk_go/internal/httpx"
	"github.com/parseq/mutation_sdk_go/internal/logger"
	"github.com/parseq/mutation_sdk_go/internal/metrics"
	"github.com/parseq/mutation_sdk_go/internal/mutapi"
)

// Backend performs the wire operations behind a Client. Add and remove share
// one HTTP endpoint but are distinct operations so in-memory backends can
// apply the right semantics.
type Backend interface {
	FetchMutations(ctx context.Context, pageNumber, pageSize int) (*MutationPage, error)
	FetchMutationLists(ctx context.Context) ([]MutationList, error)
	CreateMutationList(ctx context.Context, name string) (*MutationList, error)
	UpdateMutationList(ctx context.Context, listID, name, description string) (*MutationList, error)
	DeleteMutationList(ctx context.Context, listID string) error
	AddMutationsToList(ctx context.Context, listName string, mutations []string) error
	RemoveMutationsFromList(ctx context.Context, listName string, mutations []string) error
}

// Client provides access to the mutation REST API.
type Client struct {
	backend Backend
}

// New constructs a Client bound to the provided base URL. Request latency is
// reported to the SDK's Prometheus collectors.
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	all := append([]httpx.Option{httpx.WithObserver(metrics.ObserveRequest)}, opts...)
	cl, err := httpx.NewClient(baseURL, all...)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cl), nil
}

// NewWithHTTPClient wraps an existing httpx.Client.
func NewWithHTTPClient(httpClient *httpx.Client) *Client {
	return &Client{backend: &httpBackend{client: httpClient}}
}

// NewWithBackend allows callers to supply a custom backend (e.g., mocks).
func NewWithBackend(b Backend) *Client {
	return &Client{backend: b}
}

// Backend returns the backend the client delegates to.
func (c *Client) Backend() Backend {
	return c.backend
}

// FetchMutations returns one page of mutations. pageNumber is zero-based.
func (c *Client) FetchMutations(ctx context.Context, pageNumber, pageSize int) (*MutationPage, error) {
	if pageNumber < 0 {
		return nil, fmt.Errorf("%w: page number must be >= 0, got %d", ErrInvalidArgument, pageNumber)
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be > 0, got %d", ErrInvalidArgument, pageSize)
	}
	b, err := c.resolve()
	if err != nil {
		return nil, err
	}
	page, err := b.FetchMutations(ctx, pageNumber, pageSize)
	if err != nil {
		logFailure(ctx, "Error fetching mutations", err, logger.Page(pageNumber))
		return nil, err
	}
	if page.Resources == nil {
		page.Resources = []Mutation{}
	}
	return page, nil
}

// FetchMutationLists returns every list; the endpoint is not paginated.
func (c *Client) FetchMutationLists(ctx context.Context) ([]MutationList, error) {
	b, err := c.resolve()
	if err != nil {
		return nil, err
	}
	lists, err := b.FetchMutationLists(ctx)
	if err != nil {
		logFailure(ctx, "Error fetching mutation lists", err)
		return nil, err
	}
	if lists == nil {
		lists = []MutationList{}
	}
	return lists, nil
}

// CreateMutationList creates an empty list called name.
func (c *Client) CreateMutationList(ctx context.Context, name string) (*MutationList, error) {
	if err := requireName("list name", name); err != nil {
		return nil, err
	}
	b, err := c.resolve()
	if err != nil {
		return nil, err
	}
	list, err := b.CreateMutationList(ctx, name)
	if err != nil {
		logFailure(ctx, "Error creating mutation list", err, logger.ListName(name))
		return nil, err
	}
	return list, nil
}

// UpdateMutationList renames the list identified by listID and sets its
// description through the dedicated update endpoint. The request path
// carries the new name; listID travels as PreviousNameParam when it differs.
func (c *Client) UpdateMutationList(ctx context.Context, listID, name, description string) (*MutationList, error) {
	if err := requireName("list id", listID); err != nil {
		return nil, err
	}
	if err := requireName("list name", name); err != nil {
		return nil, err
	}
	b, err := c.resolve()
	if err != nil {
		return nil, err
	}
	list, err := b.UpdateMutationList(ctx, listID, name, description)
	if err != nil {
		logFailure(ctx, "Error updating mutation list", err, logger.ListName(listID))
		return nil, err
	}
	return list, nil
}

// DeleteMutationList removes the list identified by listID.
func (c *Client) DeleteMutationList(ctx context.Context, listID string) error {
	if err := requireName("list id", listID); err != nil {
		return err
	}
	b, err := c.resolve()
	if err != nil {
		return err
	}
	if err := b.DeleteMutationList(ctx, listID); err != nil {
		logFailure(ctx, "Error deleting mutation list", err, logger.ListName(listID))
		return err
	}
	return nil
}

// AddMutationToList sends the complete desired membership of listName. The
// server replaces the list's members with mutations.
func (c *Client) AddMutationToList(ctx context.Context, listName string, mutations []string) error {
	if err := requireName("list name", listName); err != nil {
		return err
	}
	b, err := c.resolve()
	if err != nil {
		return err
	}
	if err := b.AddMutationsToList(ctx, listName, nonNil(mutations)); err != nil {
		logFailure(ctx, "Error adding mutations to list", err, logger.ListName(listName))
		return err
	}
	return nil
}

// RemoveMutationFromList sends the ids to drop from listName.
func (c *Client) RemoveMutationFromList(ctx context.Context, listName string, mutations []string) error {
	if err := requireName("list name", listName); err != nil {
		return err
	}
	b, err := c.resolve()
	if err != nil {
		return err
	}
	if err := b.RemoveMutationsFromList(ctx, listName, nonNil(mutations)); err != nil {
		logFailure(ctx, "Error removing mutation from list", err, logger.ListName(listName))
		return err
	}
	return nil
}

func (c *Client) resolve() (Backend, error) {
	if c == nil || c.backend == nil {
		return nil, fmt.Errorf("mutations: client is nil")
	}
	return c.backend, nil
}

func logFailure(ctx context.Context, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	logger.From(ctx).Error(msg, fields...)
}

func requireName(what, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidArgument, what)
	}
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

type httpBackend struct {
	client *httpx.Client
}

func (b *httpBackend) FetchMutations(ctx context.Context, pageNumber, pageSize int) (*MutationPage, error) {
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "mutations",
		Route:  "/mutations",
		Query: url.Values{
			"pageZeroBasedNumber": {strconv.Itoa(pageNumber)},
			"pageSize":            {strconv.Itoa(pageSize)},
		},
	})
	if err != nil {
		return nil, err
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, err
	}
	var page MutationPage
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("mutations: decode mutation page: %w", err)
		}
	}
	return &page, nil
}

func (b *httpBackend) FetchMutationLists(ctx context.Context) ([]MutationList, error) {
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "lists",
		Route:  "/lists",
	})
	if err != nil {
		return nil, err
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, err
	}
	var lists []MutationList
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &lists); err != nil {
			return nil, fmt.Errorf("mutations: decode mutation lists: %w", err)
		}
	}
	return lists, nil
}

func (b *httpBackend) CreateMutationList(ctx context.Context, name string) (*MutationList, error) {
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "lists/create",
		Route:  "/lists/create",
		Query:  url.Values{"name": {name}},
	})
	if err != nil {
		return nil, err
	}
	return decodeListResponse(resp)
}

// PreviousNameParam is the query parameter carrying the current list name
// when an update renames the list. Servers that key updates on the path
// name alone ignore it.
const PreviousNameParam = "previousName"

// UpdateMutationList sends PUT lists/{name}/mutations where {name} is the
// new name from the request body.
func (b *httpBackend) UpdateMutationList(ctx context.Context, listID, name, description string) (*MutationList, error) {
	segment, err := pathSegment("name", name)
	if err != nil {
		return nil, err
	}
	var query url.Values
	if listID != name {
		query = url.Values{PreviousNameParam: {listID}}
	}
	body, err := httpx.JSONBody(UpdateListRequest{Name: name, Description: description})
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodPut,
		Path:   "lists/" + segment + "/mutations",
		Route:  "/lists/{name}/mutations",
		Query:  query,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return decodeListResponse(resp)
}

func (b *httpBackend) DeleteMutationList(ctx context.Context, listID string) error {
	segment, err := pathSegment("name", listID)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodDelete,
		Path:   "lists/" + segment,
		Route:  "/lists/{name}",
	})
	if err != nil {
		return err
	}
	_, err = httpx.ReadAllAndClose(resp.Body)
	return err
}

func (b *httpBackend) AddMutationsToList(ctx context.Context, listName string, mutations []string) error {
	return b.patchMembers(ctx, listName, mutations)
}

func (b *httpBackend) RemoveMutationsFromList(ctx context.Context, listName string, mutations []string) error {
	return b.patchMembers(ctx, listName, mutations)
}

func (b *httpBackend) patchMembers(ctx context.Context, listName string, mutations []string) error {
	segment, err := pathSegment("name", listName)
	if err != nil {
		return err
	}
	body, err := httpx.JSONBody(mutations)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(ctx, &httpx.Request{
		Method: http.MethodPatch,
		Path:   "lists/" + segment + "/mutations",
		Route:  "/lists/{name}/mutations",
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
	if err != nil {
		return err
	}
	_, err = httpx.ReadAllAndClose(resp.Body)
	return err
}

func decodeListResponse(resp *http.Response) (*MutationList, error) {
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, err
	}
	var list *MutationList
	if err := mutapi.DecodeList(data, &list); err != nil {
		return nil, fmt.Errorf("mutations: decode list response: %w", err)
	}
	if list == nil {
		return nil, fmt.Errorf("mutations: empty list response")
	}
	return list, nil
}

// pathSegment escapes a path parameter with the OpenAPI "simple" style.
func pathSegment(param, value string) (string, error) {
	return runtime.StyleParamWithLocation("simple", false, param, runtime.ParamLocationPath, value)
}

// HTTPError is the error returned for non-2xx responses.
type HTTPError = httpx.HTTPError

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a server response.
func StatusCode(err error) int {
	return httpx.StatusCode(err)
}
