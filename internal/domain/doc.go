// Package domain turns raw numerical-weather-model output into canonical
// per-sub-basin daily rainfall forecasts.
//
// # Sources
//
// Two kinds of model output feed the service:
//
//	Bias-corrected basin tables ("<MODEL>_rem_vies.dat"), one row per basin:
//
//	  <basin name>  <lon>  <lat>  <v1> <v2> ... <vN>
//
//	  N is the model's forecast horizon in days. It differs between models
//	  (ECMWF, ETA40 and GEFS do not share a horizon) and is inferred from the
//	  file's column layout, never hard-coded. See [InferBasinSchema].
//
//	Grid-mean daily files ("PMEDIA_p<ddmmyy run>a<ddmmyy forecast>.dat"), one
//	grid point per row, one file per forecast day 1..14:
//
//	  <lon>  <lat>  <rain>
//
// Both are whitespace-aligned fixed-width text. Column boundaries are the
// character positions that are blank on every line. See [ReadFixedWidth].
// Files whose fields do not line up are split on whitespace instead: a grid
// line is exactly three fields, and a basin line ends in lon, lat and the day
// values with the basin name before them.
//
// # Sub-basin resolution
//
// Basin rows are joined to the sub-basin catalog by exact name and grid points
// by exact (lon, lat) value. There is no nearest-neighbour fallback: the grid
// files and the catalog share the same coordinate precision. A miss drops the
// row or point and is counted, it never fails the file.
//
// # Ensemble blending
//
// A derived ("conjunto") model keeps a single model's own forecast up to the
// next Thursday strictly after the run date and takes the grid-mean forecast
// from that Thursday on. Blending is positional date-splitting, not weighting.
// See [CutoffDate] and [Blend].
//
// # Dates
//
// All dates are calendar dates held as UTC-midnight time.Time values. The run
// timestamp sent to the forecast service is the run date at 00:00:00.
package domain
