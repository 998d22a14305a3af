// Package triage provides the business boundary for ServiceSense's request
// triage pipeline. It defines the Service (validation, pipeline sequencing,
// persistence and notification dispatch), the Store interface, and the
// domain result model.
package triage
