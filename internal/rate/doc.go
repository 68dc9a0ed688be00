// Package rate implements Redis fixed-window counters for login throttling.
// Counters are best effort: a cold window sets its TTL on first increment and
// expires as a unit.
package rate
