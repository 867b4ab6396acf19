// Package testutil holds fixtures shared by command and integration tests.
package testutil

// StaticSessionID returns the same session id every time.
//
// Unlike engine.FixedGenerator, which panics once its ids are consumed,
// StaticSessionID serves any number of engines, so a test that runs
// several commands still sees one stable id in logs and traces.
//
// Thread-safety: StaticSessionID is stateless and safe for concurrent use.
type StaticSessionID struct {
	id string
}

// NewStaticSessionID creates a generator for id.
// If id is empty, Generate returns "test-session".
func NewStaticSessionID(id string) *StaticSessionID {
	if id == "" {
		id = "test-session"
	}
	return &StaticSessionID{id: id}
}

// Generate returns the fixed id.
//
// Implements engine.SessionIDGenerator.
func (g *StaticSessionID) Generate() string {
	return g.id
}
