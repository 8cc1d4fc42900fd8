// Package store holds the client-side view state of the mutation API: the
// cached mutation pages, the mutation lists, the current selection and filter,
// plus the last error and an in-flight indicator.
//
// A Store is created once with New and shared by its callers. Every action
// clears the error, marks the store as loading, performs one remote call and
// then either reconciles the local state or records an error message. Derived
// views are computed from a State snapshot on read.
//
//	s := store.New(client)
//	if err := s.Refresh(ctx); err != nil {
//		log.Println(s.State().Error)
//	}
//	for _, m := range s.State().FilteredMutations() {
//		fmt.Println(m.MutationID)
//	}
package store
