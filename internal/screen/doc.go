// Package screen implements the pool-selection and leaderboard-refresh state
// machine behind the RaceScreen view.
//
// The main components are:
//
//   - [State]: the view-state record with pure transition methods
//   - [Screen]: the controller that owns a State, loads pools once, and
//     refreshes standings for the selected pool on a fixed interval
//
// A Screen runs one goroutine that is the only writer of its State. The
// refresh ticker is created through a [github.com/jonboulle/clockwork.Clock]
// so tests can advance time deterministically.
package screen
