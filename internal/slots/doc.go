// Package slots
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity connection slot table. The slot index is the client's
// identity on the wire ("Client <index>: ") and the fan-out key; freed
// indices are reused smallest first.
package slots
