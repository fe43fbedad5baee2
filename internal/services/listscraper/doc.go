// Package listscraper walks the entries of a map application's saved-list view.
//
// The host page has no stable markup for list entries, so entries are recognised by
// text heuristics (heuristics.go), opened one at a time by index (navigator.go), and
// confirmed by the detail URL the page navigates to. The Controller owns the loop and
// its stop conditions and reports every step on a progress channel.
package listscraper
