// Package l3energy owns Layer 3 (Energy) of the break-up pipeline.
//
// Responsibilities: partitioning the polar raster into angular sectors,
// reducing each sector to a band-pass contrast energy, and accumulating
// the per-frame energies into the SectorEnergyMatrix time series.
// Key types: Extractor, Params, Matrix.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3energy
