// Package mutations is the remote access layer for the mutation API: one
// Client method per endpoint, each issuing exactly one HTTP request against a
// fixed base URL.
//
// The wire contract is:
//
//	GET    /mutations?pageZeroBasedNumber=&pageSize=   -> {page, resources, resourcesTotalNumber}
//	GET    /lists                                      -> [MutationList]
//	POST   /lists/create?name=                         -> {list}
//	PUT    /lists/{name}/mutations  {name,description} -> {list}  ({name} is the new name; ?previousName= on rename)
//	DELETE /lists/{name}
//	PATCH  /lists/{name}/mutations  [ids]              (add: full membership, remove: ids to drop)
//
// Errors are logged and returned unchanged: non-2xx responses surface as
// *HTTPError, transport failures as produced by net/http. Nothing is
// retried. The Client delegates to a Backend so tests and local runs can swap
// the HTTP implementation for the in-memory one in package mock.
package mutations
