// Ganymede is a versioned configuration store backed by Git.
//
// Each application/environment pair owns one repository holding three
// JSON documents (application properties, deployment parameters,
// launch data) on a single branch. Ganymede serves any historical
// revision of those documents over HTTP and provisions repositories
// for new applications.
//
// Usage:
//
//	# Start the server with default configuration
//	ganymede run
//
//	# Start with a custom configuration file
//	ganymede run --config /etc/ganymede/config.yaml
//
//	# Provision an application without starting the server
//	ganymede bootstrap --application billing
//
//	# Show version information
//	ganymede version
package main

func main() {
	Execute()
}
