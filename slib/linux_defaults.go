package slib

const (
	// wait4 reports peak resident set in kilobytes; results carry bytes.
	// Downstream consumers expect the decimal factor, not 1024.
	memoryUnitFactor = 1000
	// The address-space ceiling is set to a multiple of the data limit so
	// code, stack, and allocator overhead fit under it while growth stays
	// capped.
	addressSpaceFactor = 2
)
