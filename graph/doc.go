// Package graph answers relationship questions over the connection graph:
// introduction paths, mutual connections, connection strength and network
// statistics.
//
// The relationship store only knows entity IDs. Service joins the
// attributes it returns from the entity store at query time.
package graph
