/*
Package fleet tracks status reports across a fleet of service instances.

Instances register with the Registry (self-registration at startup or via
the admin API). The Collector polls every registered instance's GET
/status endpoint on an interval, caches the latest report per instance,
and serves fleet-wide views:

  - GET /fleet/statuses - latest report per instance, with staleness
  - GET /fleet/summary  - instance counts per version, oldest start time

Registrations persist through a RegistryStore; PostgresStore survives
fleetd restarts, InMemoryStore serves tests and demo deployments.
*/
package fleet
