// Package mutation_sdk bootstraps a mutation API client and a view-state store
// from configuration or from the environment. The runtime mode is resolved
// from MUTATIONS_RUNTIME_MODE (auto, http or mock): http talks to
// MUTATIONS_API_URL, mock serves an in-memory API optionally seeded from
// MUTATIONS_MOCK_SEED, and auto picks http when an API URL is set. Both
// modes expose the same client and store types.
package mutation_sdk
