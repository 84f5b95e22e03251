// Package testutil provides mocks for testing without Azure connectivity:
// a fake token credential and a recording control plane that captures every
// request in submission order.
package testutil
