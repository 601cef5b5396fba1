// Package app composes the trivia service into a running application.
//
// # Architecture Role
//
// The app package sits above the domain services and is responsible for
// wiring them together. It holds no game or settlement logic of its own.
//
// # Package Structure
//
//	internal/app/
//	├── application.go   # Application struct, wiring, lifecycle
//	├── system/          # Background service interface and manager
//	├── httpapi/         # HTTP routes over the application
//	└── runtime/         # HTTP server and graceful shutdown
//
// # Wiring
//
// New builds, in order: the ledger gateway, the faucet client, the rewards
// service with its mock ledger, the scoreboard, the payout dispatcher, the
// round store (memory or Redis), the social platform and the round service
// with its scheduler. Overrides replaces any of the external collaborators,
// which is how tests run the full stack without network access.
//
// # Lifecycle
//
// Start launches the registered background jobs: the payout retrier always,
// the round scheduler when enabled. Stop halts them in reverse order and
// closes the stores.
package app
