// Package outcome derives the consent, triage, session and vaccination
// statuses of a patient from their raw records.
//
// Every function here is pure: it reads only its arguments and is safe to
// call from any number of goroutines. A record carrying a value outside its
// closed set is a programming defect and panics; callers that process many
// patients are expected to recover per patient.
package outcome
