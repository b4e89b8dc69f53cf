// Package health turns instantaneous resource pressure into a 0–100 score and
// a severity band.
//
// score.go holds the pure Score function and the Policy that selects the
// uptime bonus and input validation. status.go maps a score to its band.
//
// Bands (lower bound inclusive): Excellent ≥90, Good 75–89, Fair 60–74,
// Warning 40–59, Critical 20–39, Emergency <20.
package health
