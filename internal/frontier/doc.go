// Package frontier implements the crawl frontier: the set of discovered but
// not yet visited URLs plus the set of already visited URLs.
//
// The frontier is the single owner of visitation state. All mutating
// operations (Enqueue, PopNext, Requeue, MarkVisited) are atomic, so the
// orchestrator's workers can share one frontier without additional locking.
package frontier
