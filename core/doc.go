// Package core contains the relay's canonical domain types, collaborator
// contracts, and orchestration logic: row entry validation, message
// rendering, and webhook subscription reconciliation. Lower-level adapters
// and providers must depend on this package; core must not depend on
// provider-specific or transport-specific adapters.
package core
