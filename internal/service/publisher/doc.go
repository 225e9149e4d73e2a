// Package publisher orchestrates a full release publish: manifest validation,
// archive verification, package synthesis and ordered registry publishes.
//
// The run is single-threaded and strictly sequential. Every failure is fatal
// at its point of origin: nothing is retried, rolled back or downgraded to a
// warning, because a partially verified release is worse than no release.
package publisher
