// Package database provides connection management, the model and foreign key
// registries, live schema introspection, table creation, SQL seed files,
// query hooks and logging for the rental data layer, built on top of Bun.
package database
