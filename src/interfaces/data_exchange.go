package interfaces

import "startpage-sync/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger pushes sync results to connected dashboards.
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// Broadcast queues a message for every connected client.
	Broadcast(msg models.MHubMessage)

	// -----------------------------------------------------------------------------

	// Start the server
	Start() error

	// -----------------------------------------------------------------------------

	// Stop the server gracefully
	Stop() error
}
