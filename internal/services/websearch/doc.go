// Package websearch wraps the Google Custom Search API. Results are folded
// into the recommendation prompt so the model can draw on titles newer than
// its training data. The client degrades to disabled when credentials are
// absent.
package websearch
