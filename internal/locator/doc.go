// Package locator finds plugin directories under a set of roots and turns
// them into validated descriptors. Problems with individual candidates are
// collected as scan errors; a scan itself never fails.
package locator
